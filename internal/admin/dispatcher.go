package admin

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/relaychat/moderation/internal/audit"
	"github.com/relaychat/moderation/internal/auth"
	"github.com/relaychat/moderation/internal/models"
)

// ChannelDirectory is the channel lookup the dispatcher consumes.
type ChannelDirectory interface {
	Exists(id uuid.UUID) (bool, error)
}

// BanStore is the mutation surface of the entity ban store.
type BanStore interface {
	CreateBan(subject models.Subject, reason string, actorID uuid.UUID, durationSecs int64) (*models.BanRecord, error)
	LiftBan(subject models.Subject, actorID uuid.UUID) error
	PurgeAudit() (int64, error)
}

// Cascade is the multi-table delete orchestrator.
type Cascade interface {
	HardDelete(accountID, actorID uuid.UUID) error
	Deactivate(accountID, actorID uuid.UUID) error
	WipeData(actorID uuid.UUID) error
}

// Dispatcher routes a named admin command through validation, the privileged
// action gate, and its handler, and reports a structured result. No error
// escapes as a raw fault.
type Dispatcher struct {
	gate     *Gate
	accounts AccountDirectory
	channels ChannelDirectory
	bans     BanStore
	cascade  Cascade
	audit    *audit.Logger
}

func NewDispatcher(gate *Gate, accounts AccountDirectory, channels ChannelDirectory, bans BanStore, cascade Cascade, auditLog *audit.Logger) *Dispatcher {
	return &Dispatcher{
		gate:     gate,
		accounts: accounts,
		channels: channels,
		bans:     bans,
		cascade:  cascade,
		audit:    auditLog,
	}
}

// selfRestricted actions may never target the acting admin.
var selfRestricted = map[string]bool{
	models.ActionBanUser:         true,
	models.ActionDeleteUser:      true,
	models.ActionDeactivateUser:  true,
	models.ActionResetCredential: true,
}

// adminExempt actions may never target an account flagged administrator,
// regardless of secret correctness.
var adminExempt = map[string]bool{
	models.ActionBanUser:         true,
	models.ActionResetCredential: true,
}

var knownActions = map[string]bool{
	models.ActionVerifySecret:    true,
	models.ActionBanUser:         true,
	models.ActionUnbanUser:       true,
	models.ActionBanChannel:      true,
	models.ActionUnbanChannel:    true,
	models.ActionDeleteUser:      true,
	models.ActionDeactivateUser:  true,
	models.ActionRenameUser:      true,
	models.ActionResetCredential: true,
	models.ActionWipeData:        true,
	models.ActionPurgeAudit:      true,
}

// Dispatch runs one privileged command: unknown-action check, secret
// re-verification, parameter validation, handler. On authorization failure
// nothing is mutated and nothing is audited.
func (d *Dispatcher) Dispatch(cmd models.Command) models.CommandResult {
	if !knownActions[cmd.Action] {
		return models.CommandResult{Success: false, Message: MsgUnknownAction}
	}

	if _, err := d.gate.Authorize(cmd.ActorID, cmd.SuppliedSecret); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			d.audit.AuthorizationFailed(cmd.ActorID, cmd.Action)
			return models.CommandResult{Success: false, Message: MsgUnauthorized}
		}
		return d.fail(cmd, err)
	}

	if err := d.validate(cmd); err != nil {
		return d.fail(cmd, err)
	}

	msg, err := d.handle(cmd)
	if err != nil {
		return d.fail(cmd, err)
	}
	return models.CommandResult{Success: true, Message: msg}
}

func (d *Dispatcher) validate(cmd models.Command) error {
	if selfRestricted[cmd.Action] && cmd.TargetID == cmd.ActorID {
		return ErrInvalidParameter
	}

	switch cmd.Action {
	case models.ActionBanUser, models.ActionBanChannel:
		if strings.TrimSpace(cmd.Reason) == "" {
			return ErrInvalidParameter
		}
		if cmd.DurationSecs < 0 {
			return ErrInvalidParameter
		}
	case models.ActionRenameUser:
		name := strings.TrimSpace(cmd.NewDisplayName)
		if len(name) < 2 || len(name) > 100 {
			return ErrInvalidParameter
		}
	case models.ActionResetCredential:
		if len(cmd.NewSecret) < 8 {
			return ErrInvalidParameter
		}
	}

	if adminExempt[cmd.Action] {
		target, err := d.accounts.GetByID(cmd.TargetID)
		if err != nil {
			return err
		}
		if target.IsAdmin {
			return ErrForbidden
		}
	}

	return nil
}

func (d *Dispatcher) handle(cmd models.Command) (string, error) {
	switch cmd.Action {
	case models.ActionVerifySecret:
		// The gate already did the work; this is the pre-check used before
		// showing a confirmation step.
		return MsgSecretVerified, nil

	case models.ActionBanUser:
		if _, err := d.bans.CreateBan(models.AccountSubject(cmd.TargetID), cmd.Reason, cmd.ActorID, cmd.DurationSecs); err != nil {
			return "", err
		}
		return MsgUserBanned, nil

	case models.ActionUnbanUser:
		if err := d.bans.LiftBan(models.AccountSubject(cmd.TargetID), cmd.ActorID); err != nil {
			return "", err
		}
		return MsgUserUnbanned, nil

	case models.ActionBanChannel:
		exists, err := d.channels.Exists(cmd.TargetID)
		if err != nil {
			return "", err
		}
		if !exists {
			return "", models.ErrNotFound
		}
		if _, err := d.bans.CreateBan(models.ChannelSubject(cmd.TargetID), cmd.Reason, cmd.ActorID, cmd.DurationSecs); err != nil {
			return "", err
		}
		return MsgChannelBanned, nil

	case models.ActionUnbanChannel:
		if err := d.bans.LiftBan(models.ChannelSubject(cmd.TargetID), cmd.ActorID); err != nil {
			return "", err
		}
		return MsgChannelUnbanned, nil

	case models.ActionDeleteUser:
		if err := d.cascade.HardDelete(cmd.TargetID, cmd.ActorID); err != nil {
			return "", err
		}
		return MsgUserDeleted, nil

	case models.ActionDeactivateUser:
		if err := d.cascade.Deactivate(cmd.TargetID, cmd.ActorID); err != nil {
			return "", err
		}
		return MsgUserDeactivated, nil

	case models.ActionRenameUser:
		name := strings.TrimSpace(cmd.NewDisplayName)
		if err := d.accounts.UpdateDisplayName(cmd.TargetID, name); err != nil {
			return "", err
		}
		d.audit.AccountRenamed(cmd.TargetID, cmd.ActorID, name)
		return MsgUserRenamed, nil

	case models.ActionResetCredential:
		hash, err := auth.HashPassword(cmd.NewSecret)
		if err != nil {
			return "", err
		}
		if err := d.accounts.UpdateCredential(cmd.TargetID, hash); err != nil {
			return "", err
		}
		d.audit.CredentialReset(cmd.TargetID, cmd.ActorID)
		return MsgCredentialReset, nil

	case models.ActionWipeData:
		if err := d.cascade.WipeData(cmd.ActorID); err != nil {
			return "", err
		}
		return MsgDataWiped, nil

	case models.ActionPurgeAudit:
		if _, err := d.bans.PurgeAudit(); err != nil {
			return "", err
		}
		d.audit.AuditPurged(cmd.ActorID)
		return MsgAuditPurged, nil
	}

	return "", ErrUnknownAction
}

// fail converts an error into its enumerated admin-facing message. Anything
// outside the enumerated kinds is reported generically; the root cause stays
// in the internal log.
func (d *Dispatcher) fail(cmd models.Command, err error) models.CommandResult {
	var msg string
	switch {
	case errors.Is(err, ErrUnknownAction):
		msg = MsgUnknownAction
	case errors.Is(err, ErrInvalidParameter):
		msg = MsgInvalidParameter
	case errors.Is(err, ErrForbidden):
		msg = MsgForbidden
	case errors.Is(err, models.ErrNotFound):
		msg = MsgNotFound
	case errors.Is(err, models.ErrNotBanned):
		msg = MsgNotBanned
	case errors.Is(err, models.ErrBanConflict):
		msg = MsgBanConflict
	default:
		d.audit.StorageFailure(cmd.Action, err)
		msg = MsgStorageFailure
	}
	return models.CommandResult{Success: false, Message: msg}
}
