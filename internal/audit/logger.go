package audit

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/relaychat/moderation/internal/models"
)

// Logger provides structured audit logging for moderation events. This is the
// internal operational trail; the persisted ban_events table is the
// authoritative, tamper-evident history.
type Logger struct {
	log zerolog.Logger
}

// New creates a new audit logger
func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// BanCreated logs a new suspension
func (l *Logger) BanCreated(rec *models.BanRecord) {
	evt := l.log.Warn().
		Str("action", "ban_created").
		Str("ban_id", rec.ID.String()).
		Str("subject", rec.Subject.String()).
		Str("actor_id", rec.CreatedBy.String()).
		Str("reason", rec.Reason)
	if rec.EndAt != nil {
		evt = evt.Time("end_at", *rec.EndAt)
	}
	evt.Msg("Subject banned")
}

// BanLifted logs a manual lift
func (l *Logger) BanLifted(subject models.Subject, actorID uuid.UUID) {
	l.log.Info().
		Str("action", "ban_lifted").
		Str("subject", subject.String()).
		Str("actor_id", actorID.String()).
		Msg("Ban lifted")
}

// BanExpired logs a lazy, system-originated expiration
func (l *Logger) BanExpired(subject models.Subject, banID uuid.UUID) {
	l.log.Info().
		Str("action", "ban_expired").
		Str("subject", subject.String()).
		Str("ban_id", banID.String()).
		Msg("Ban expired on read")
}

// AccountDeleted logs a cascade hard delete
func (l *Logger) AccountDeleted(accountID, actorID uuid.UUID) {
	l.log.Warn().
		Str("action", "account_deleted").
		Str("account_id", accountID.String()).
		Str("actor_id", actorID.String()).
		Msg("Account hard-deleted")
}

// AccountDeactivated logs a tombstone; shimmed is true when the deployment
// lacks the deactivated column and the display-name fallback was used.
func (l *Logger) AccountDeactivated(accountID, actorID uuid.UUID, shimmed bool) {
	evt := l.log.Warn()
	if shimmed {
		evt = evt.Bool("display_name_shim", true)
	}
	evt.
		Str("action", "account_deactivated").
		Str("account_id", accountID.String()).
		Str("actor_id", actorID.String()).
		Msg("Account deactivated")
}

// CredentialReset logs a forced credential change
func (l *Logger) CredentialReset(accountID, actorID uuid.UUID) {
	l.log.Warn().
		Str("action", "credential_reset").
		Str("account_id", accountID.String()).
		Str("actor_id", actorID.String()).
		Msg("Credential reset")
}

// AccountRenamed logs a forced display-name change
func (l *Logger) AccountRenamed(accountID, actorID uuid.UUID, newName string) {
	l.log.Info().
		Str("action", "account_renamed").
		Str("account_id", accountID.String()).
		Str("actor_id", actorID.String()).
		Str("new_display_name", newName).
		Msg("Account renamed")
}

// DataWiped logs the bulk maintenance wipe
func (l *Logger) DataWiped(actorID uuid.UUID) {
	l.log.Warn().
		Str("action", "data_wiped").
		Str("actor_id", actorID.String()).
		Msg("Message and relationship data wiped")
}

// AuditPurged logs the explicit audit bulk purge
func (l *Logger) AuditPurged(actorID uuid.UUID) {
	l.log.Warn().
		Str("action", "audit_purged").
		Str("actor_id", actorID.String()).
		Msg("Ban audit history purged")
}

// AuthorizationFailed logs a rejected secret re-check. The admin-facing
// message stays generic; the detail lives here.
func (l *Logger) AuthorizationFailed(actorID uuid.UUID, action string) {
	l.log.Warn().
		Str("action", "authorization_failed").
		Str("actor_id", actorID.String()).
		Str("command", action).
		Msg("Privileged command rejected")
}

// StorageFailure retains the root cause of a persistence error whose
// admin-facing message is generic.
func (l *Logger) StorageFailure(action string, err error) {
	l.log.Error().
		Str("action", "storage_failure").
		Str("command", action).
		Err(err).
		Msg("Transaction rolled back")
}
