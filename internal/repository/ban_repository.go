package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/relaychat/moderation/internal/audit"
	"github.com/relaychat/moderation/internal/cache"
	"github.com/relaychat/moderation/internal/database"
	"github.com/relaychat/moderation/internal/models"
)

const pqUniqueViolation = "23505"

type BanRepository struct {
	db    *database.DB
	audit *audit.Logger
	redis *cache.RedisClient
}

// NewBanRepository creates the ban store. redis may be nil; the badge cache
// is an optimization, not a dependency.
func NewBanRepository(db *database.DB, auditLog *audit.Logger, redis *cache.RedisClient) *BanRepository {
	return &BanRepository{db: db, audit: auditLog, redis: redis}
}

func (r *BanRepository) invalidateBadge(subject models.Subject) {
	if r.redis != nil {
		_ = r.redis.InvalidateBanBadge(subject)
	}
}

// CreateBan suspends a subject. duration is in seconds; 0 means permanent.
// Any record still marked active for the subject is superseded (lifted, with
// a lift event attributed to the acting admin) in the same transaction that
// inserts the new record and its ban event, so there is never a moment with
// two active records or a record without its creation event.
func (r *BanRepository) CreateBan(subject models.Subject, reason string, actorID uuid.UUID, durationSecs int64) (*models.BanRecord, error) {
	now := time.Now()

	rec := &models.BanRecord{
		ID:        uuid.New(),
		Subject:   subject,
		Reason:    reason,
		CreatedBy: actorID,
		StartAt:   now,
		Status:    models.BanActive,
	}
	if durationSecs > 0 {
		end := now.Add(time.Duration(durationSecs) * time.Second)
		rec.EndAt = &end
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	// Supersede whatever is still active for this subject.
	var supersededID uuid.UUID
	err = tx.QueryRow(`
		UPDATE bans SET status = 'lifted'
		WHERE subject_type = $1 AND subject_id = $2 AND status = 'active'
		RETURNING id
	`, subject.Type, subject.ID).Scan(&supersededID)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to supersede ban: %w", err)
	}
	if err == nil {
		if _, err := tx.Exec(`
			INSERT INTO ban_events (id, ban_id, action, actor_id, occurred_at)
			VALUES ($1, $2, 'lift', $3, $4)
		`, uuid.New(), supersededID, actorID, now); err != nil {
			return nil, fmt.Errorf("failed to record supersede event: %w", err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO bans (id, subject_type, subject_id, reason, created_by, start_at, end_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'active')
	`, rec.ID, subject.Type, subject.ID, rec.Reason, rec.CreatedBy, rec.StartAt, rec.EndAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			// A concurrent ban won the race; this command loses cleanly.
			return nil, models.ErrBanConflict
		}
		return nil, fmt.Errorf("failed to insert ban: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO ban_events (id, ban_id, action, actor_id, occurred_at)
		VALUES ($1, $2, 'ban', $3, $4)
	`, uuid.New(), rec.ID, actorID, now); err != nil {
		return nil, fmt.Errorf("failed to record ban event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	r.invalidateBadge(subject)
	r.audit.BanCreated(rec)
	return rec, nil
}

// LiftBan manually ends the active ban on a subject. Returns ErrNotBanned
// when no record is active.
func (r *BanRepository) LiftBan(subject models.Subject, actorID uuid.UUID) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	var banID uuid.UUID
	err = tx.QueryRow(`
		UPDATE bans SET status = 'lifted'
		WHERE subject_type = $1 AND subject_id = $2 AND status = 'active'
		RETURNING id
	`, subject.Type, subject.ID).Scan(&banID)
	if err == sql.ErrNoRows {
		return models.ErrNotBanned
	}
	if err != nil {
		return fmt.Errorf("failed to lift ban: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO ban_events (id, ban_id, action, actor_id, occurred_at)
		VALUES ($1, $2, 'lift', $3, NOW())
	`, uuid.New(), banID, actorID); err != nil {
		return fmt.Errorf("failed to record lift event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	r.invalidateBadge(subject)
	r.audit.BanLifted(subject, actorID)
	return nil
}

// GetActiveBan returns the ban currently in force for a subject, or nil when
// there is none. A record whose end has passed is transitioned to expired
// here, on read; callers never observe a ban past its end_at.
func (r *BanRepository) GetActiveBan(subject models.Subject) (*models.BanRecord, error) {
	rec := &models.BanRecord{Subject: subject}
	err := r.db.QueryRow(`
		SELECT id, reason, created_by, start_at, end_at, status
		FROM bans
		WHERE subject_type = $1 AND subject_id = $2 AND status = 'active'
	`, subject.Type, subject.ID).Scan(
		&rec.ID,
		&rec.Reason,
		&rec.CreatedBy,
		&rec.StartAt,
		&rec.EndAt,
		&rec.Status,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active ban: %w", err)
	}

	if rec.Expired(time.Now()) {
		if err := r.resolveExpired(rec); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return rec, nil
}

// resolveExpired transitions an elapsed record to expired. The update is
// conditioned on the record still being active, so of two concurrent
// resolutions only one writes the expire event; the other is a no-op.
func (r *BanRepository) resolveExpired(rec *models.BanRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE bans SET status = 'expired'
		WHERE id = $1 AND status = 'active'
	`, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to expire ban: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Someone else already resolved it.
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO ban_events (id, ban_id, action, actor_id, occurred_at)
		VALUES ($1, $2, 'expire', NULL, NOW())
	`, uuid.New(), rec.ID); err != nil {
		return fmt.Errorf("failed to record expire event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	r.invalidateBadge(rec.Subject)
	r.audit.BanExpired(rec.Subject, rec.ID)
	return nil
}

// AuditIterator walks a subject's audit history newest first without loading
// it all at once. Calling ListAudit again restarts the sequence.
type AuditIterator struct {
	rows *sql.Rows
	cur  models.AuditEntry
	err  error
}

// Next advances the iterator. It returns false when the sequence is done or
// an error occurred; check Err afterwards.
func (it *AuditIterator) Next() bool {
	if it.err != nil || !it.rows.Next() {
		if it.err == nil {
			it.err = it.rows.Err()
		}
		return false
	}
	it.err = it.rows.Scan(
		&it.cur.Action,
		&it.cur.ActorDisplayName,
		&it.cur.OccurredAt,
		&it.cur.Reason,
		&it.cur.BanStart,
		&it.cur.BanEnd,
	)
	return it.err == nil
}

// Entry returns the current audit entry
func (it *AuditIterator) Entry() models.AuditEntry {
	return it.cur
}

func (it *AuditIterator) Err() error {
	return it.err
}

func (it *AuditIterator) Close() error {
	return it.rows.Close()
}

// ListAudit opens the audit history for a subject, newest event first.
func (r *BanRepository) ListAudit(subject models.Subject) (*AuditIterator, error) {
	rows, err := r.db.Query(`
		SELECT e.action,
		       CASE
		           WHEN e.actor_id IS NULL THEN 'system'
		           ELSE COALESCE(a.display_name, 'deleted account')
		       END,
		       e.occurred_at, b.reason, b.start_at, b.end_at
		FROM ban_events e
		JOIN bans b ON b.id = e.ban_id
		LEFT JOIN accounts a ON a.id = e.actor_id
		WHERE b.subject_type = $1 AND b.subject_id = $2
		ORDER BY e.occurred_at DESC, e.id DESC
	`, subject.Type, subject.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	return &AuditIterator{rows: rows}, nil
}

// ListAuditEntries drains ListAudit into a slice for presentation callers.
func (r *BanRepository) ListAuditEntries(subject models.Subject) ([]models.AuditEntry, error) {
	it, err := r.ListAudit(subject)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	entries := []models.AuditEntry{}
	for it.Next() {
		entries = append(entries, it.Entry())
	}
	if it.Err() != nil {
		return nil, fmt.Errorf("failed to scan audit events: %w", it.Err())
	}
	return entries, nil
}

// PurgeAudit deletes the entire ban audit history. This is the one deliberate
// exception to append-only, reachable only through the purge_audit command.
func (r *BanRepository) PurgeAudit() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM ban_events`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit events: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
