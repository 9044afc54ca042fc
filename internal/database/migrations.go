package database

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Up      string
	Down    string
}

// Migrations contains all database migrations
var Migrations = []Migration{
	{
		Version: 1,
		Up: `
			CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

			CREATE TABLE IF NOT EXISTS accounts (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				email VARCHAR(255) UNIQUE NOT NULL,
				display_name VARCHAR(255) NOT NULL,
				password_hash VARCHAR(255) NOT NULL,
				is_admin BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email);
		`,
		Down: `
			DROP TABLE IF EXISTS accounts;
		`,
	},
	{
		Version: 2,
		Up: `
			CREATE TABLE IF NOT EXISTS channels (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				owner_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
				slug VARCHAR(255) UNIQUE NOT NULL,
				title VARCHAR(255) NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_channels_owner ON channels(owner_id);
			CREATE INDEX IF NOT EXISTS idx_channels_slug ON channels(slug);
		`,
		Down: `
			DROP TABLE IF EXISTS channels;
		`,
	},
	{
		Version: 3,
		Up: `
			CREATE TABLE IF NOT EXISTS direct_messages (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				sender_id UUID NOT NULL REFERENCES accounts(id),
				recipient_id UUID NOT NULL REFERENCES accounts(id),
				body TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_direct_messages_sender ON direct_messages(sender_id);
			CREATE INDEX IF NOT EXISTS idx_direct_messages_recipient ON direct_messages(recipient_id);

			CREATE TABLE IF NOT EXISTS channel_messages (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				channel_id UUID NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
				sender_id UUID NOT NULL REFERENCES accounts(id),
				body TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_channel_messages_channel ON channel_messages(channel_id, created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_channel_messages_sender ON channel_messages(sender_id);
		`,
		Down: `
			DROP TABLE IF EXISTS channel_messages;
			DROP TABLE IF EXISTS direct_messages;
		`,
	},
	{
		Version: 4,
		Up: `
			CREATE TABLE IF NOT EXISTS channel_members (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				channel_id UUID NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
				account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
				role VARCHAR(50) NOT NULL DEFAULT 'member',
				joined_at TIMESTAMP NOT NULL DEFAULT NOW(),
				UNIQUE(channel_id, account_id)
			);

			CREATE INDEX IF NOT EXISTS idx_channel_members_channel ON channel_members(channel_id);
			CREATE INDEX IF NOT EXISTS idx_channel_members_account ON channel_members(account_id);
		`,
		Down: `
			DROP TABLE IF EXISTS channel_members;
		`,
	},
	{
		Version: 5,
		Up: `
			CREATE TABLE IF NOT EXISTS friendships (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
				friend_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				UNIQUE(account_id, friend_id)
			);

			CREATE INDEX IF NOT EXISTS idx_friendships_account ON friendships(account_id);
			CREATE INDEX IF NOT EXISTS idx_friendships_friend ON friendships(friend_id);
		`,
		Down: `
			DROP TABLE IF EXISTS friendships;
		`,
	},
	{
		Version: 6,
		Up: `
			CREATE TABLE IF NOT EXISTS sessions (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
				token_hash VARCHAR(255) NOT NULL,
				expires_at TIMESTAMP NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_sessions_account ON sessions(account_id);
		`,
		Down: `
			DROP TABLE IF EXISTS sessions;
		`,
	},
	{
		Version: 7,
		Up: `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				version INT PRIMARY KEY,
				applied_at TIMESTAMP NOT NULL DEFAULT NOW()
			);
		`,
		Down: `
			DROP TABLE IF EXISTS schema_migrations;
		`,
	},
	{
		Version: 8,
		Up: `
			CREATE TABLE IF NOT EXISTS bans (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				subject_type VARCHAR(20) NOT NULL,
				subject_id UUID NOT NULL,
				reason TEXT NOT NULL,
				-- no FK: the record must survive deletion of the acting admin
				created_by UUID NOT NULL,
				start_at TIMESTAMP NOT NULL DEFAULT NOW(),
				end_at TIMESTAMP NULL,
				status VARCHAR(20) NOT NULL DEFAULT 'active',
				CHECK (subject_type IN ('account', 'channel')),
				CHECK (status IN ('active', 'lifted', 'expired')),
				CHECK (end_at IS NULL OR end_at > start_at)
			);

			CREATE INDEX IF NOT EXISTS idx_bans_subject ON bans(subject_type, subject_id);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_bans_one_active
				ON bans(subject_type, subject_id) WHERE status = 'active';
		`,
		Down: `
			DROP TABLE IF EXISTS bans;
		`,
	},
	{
		Version: 9,
		Up: `
			CREATE TABLE IF NOT EXISTS ban_events (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				ban_id UUID NOT NULL REFERENCES bans(id) ON DELETE CASCADE,
				action VARCHAR(20) NOT NULL,
				actor_id UUID NULL,
				occurred_at TIMESTAMP NOT NULL DEFAULT NOW(),
				CHECK (action IN ('ban', 'lift', 'expire'))
			);

			CREATE INDEX IF NOT EXISTS idx_ban_events_ban ON ban_events(ban_id);
			CREATE INDEX IF NOT EXISTS idx_ban_events_occurred ON ban_events(occurred_at DESC);
		`,
		Down: `
			DROP TABLE IF EXISTS ban_events;
		`,
	},
	{
		Version: 10,
		Up: `
			ALTER TABLE accounts ADD COLUMN IF NOT EXISTS deactivated BOOLEAN NOT NULL DEFAULT false;
		`,
		Down: `
			ALTER TABLE accounts DROP COLUMN IF EXISTS deactivated;
		`,
	},
}

// RunMigrations runs all pending migrations
func RunMigrations(db *sql.DB) error {
	// Ensure migrations table exists
	if err := ensureMigrationsTable(db); err != nil {
		return err
	}

	// Get current version
	currentVersion, err := getCurrentVersion(db)
	if err != nil {
		return err
	}

	// Run pending migrations in ascending order by version
	sorted := make([]Migration, len(Migrations))
	copy(sorted, Migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	// Run pending migrations
	for _, migration := range sorted {
		if migration.Version <= currentVersion {
			continue
		}

		fmt.Printf("Running migration %d...\n", migration.Version)

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if _, err := tx.Exec(migration.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to run migration %d: %w", migration.Version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES ($1)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		fmt.Printf("Migration %d completed\n", migration.Version)
	}

	return nil
}

func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func getCurrentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}
