package database

import (
	"database/sql"
	"fmt"
)

// Capabilities describes which optional tables and columns are present in the
// schema. It is resolved once at startup and passed to the cascade delete
// orchestrator, so a partially-provisioned deployment (an older install that
// never ran the sessions or friendships migrations) does not fail every
// forced-removal command, and no mutating command pays for introspection.
type Capabilities struct {
	HasSessions          bool
	HasFriendships       bool
	HasChannelMembers    bool
	HasDeactivatedColumn bool
}

// DetectCapabilities probes information_schema for the optional parts of the
// schema. Core tables (accounts, bans, ban_events, messages) are assumed; a
// deployment without those cannot serve moderation at all.
func DetectCapabilities(db *sql.DB) (Capabilities, error) {
	caps := Capabilities{}

	var err error
	if caps.HasSessions, err = tableExists(db, "sessions"); err != nil {
		return caps, err
	}
	if caps.HasFriendships, err = tableExists(db, "friendships"); err != nil {
		return caps, err
	}
	if caps.HasChannelMembers, err = tableExists(db, "channel_members"); err != nil {
		return caps, err
	}
	if caps.HasDeactivatedColumn, err = columnExists(db, "accounts", "deactivated"); err != nil {
		return caps, err
	}

	return caps, nil
}

func tableExists(db *sql.DB, name string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)
	`
	var exists bool
	if err := db.QueryRow(query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to probe table %s: %w", name, err)
	}
	return exists, nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = 'public' AND table_name = $1 AND column_name = $2
		)
	`
	var exists bool
	if err := db.QueryRow(query, table, column).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to probe column %s.%s: %w", table, column, err)
	}
	return exists, nil
}
