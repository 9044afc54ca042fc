package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/relaychat/moderation/internal/audit"
	"github.com/relaychat/moderation/internal/database"
	"github.com/relaychat/moderation/internal/models"
)

// CascadeRepository performs the multi-table removals behind forced-delete
// commands. Optional tables are guarded by the capability descriptor resolved
// at startup, so a partially-provisioned schema degrades per table instead of
// failing the whole command.
type CascadeRepository struct {
	db    *database.DB
	caps  database.Capabilities
	audit *audit.Logger
}

func NewCascadeRepository(db *database.DB, caps database.Capabilities, auditLog *audit.Logger) *CascadeRepository {
	return &CascadeRepository{db: db, caps: caps, audit: auditLog}
}

// HardDelete removes an account and every row that references it in a single
// transaction: direct messages in both directions, channel messages it sent,
// channel memberships, friendships in both directions, sessions, then the
// account itself. Any failure rolls everything back and the account is left
// fully intact.
func (r *CascadeRepository) HardDelete(accountID, actorID uuid.UUID) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	// Lock the account row first; a missing account fails before anything
	// is touched.
	var id uuid.UUID
	err = tx.QueryRow(`SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, accountID).Scan(&id)
	if err == sql.ErrNoRows {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock account: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM direct_messages WHERE sender_id = $1 OR recipient_id = $1`, accountID); err != nil {
		return fmt.Errorf("failed to delete direct messages: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM channel_messages WHERE sender_id = $1`, accountID); err != nil {
		return fmt.Errorf("failed to delete channel messages: %w", err)
	}

	if r.caps.HasChannelMembers {
		if _, err := tx.Exec(`DELETE FROM channel_members WHERE account_id = $1`, accountID); err != nil {
			return fmt.Errorf("failed to delete channel memberships: %w", err)
		}
	}

	if r.caps.HasFriendships {
		if _, err := tx.Exec(`DELETE FROM friendships WHERE account_id = $1 OR friend_id = $1`, accountID); err != nil {
			return fmt.Errorf("failed to delete friendships: %w", err)
		}
	}

	if r.caps.HasSessions {
		if _, err := tx.Exec(`DELETE FROM sessions WHERE account_id = $1`, accountID); err != nil {
			return fmt.Errorf("failed to delete sessions: %w", err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM accounts WHERE id = $1`, accountID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	r.audit.AccountDeleted(accountID, actorID)
	return nil
}

// Deactivate tombstones an account instead of deleting rows. When the schema
// predates the deactivated column the display name is overwritten with a
// sentinel instead; the shim is logged so it is never silent.
func (r *CascadeRepository) Deactivate(accountID, actorID uuid.UUID) error {
	var result sql.Result
	var err error

	shimmed := !r.caps.HasDeactivatedColumn
	if shimmed {
		result, err = r.db.Exec(
			`UPDATE accounts SET display_name = $1, updated_at = NOW() WHERE id = $2`,
			models.DeactivatedNameSentinel, accountID,
		)
	} else {
		result, err = r.db.Exec(
			`UPDATE accounts SET deactivated = true, updated_at = NOW() WHERE id = $1`,
			accountID,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to deactivate account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return models.ErrNotFound
	}

	r.audit.AccountDeactivated(accountID, actorID, shimmed)
	return nil
}

// WipeData is the bulk maintenance wipe: all direct and channel messages and
// all friendships, in one transaction. Accounts, channels, ban records, and
// the ban audit history are preserved; purging the audit trail has its own
// explicit command.
func (r *CascadeRepository) WipeData(actorID uuid.UUID) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM channel_messages`); err != nil {
		return fmt.Errorf("failed to wipe channel messages: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM direct_messages`); err != nil {
		return fmt.Errorf("failed to wipe direct messages: %w", err)
	}

	if r.caps.HasFriendships {
		if _, err := tx.Exec(`DELETE FROM friendships`); err != nil {
			return fmt.Errorf("failed to wipe friendships: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	r.audit.DataWiped(actorID)
	return nil
}
