//go:build integration
// +build integration

package repository_test

import (
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/relaychat/moderation/internal/audit"
	"github.com/relaychat/moderation/internal/database"
)

// setupDB opens the test database, migrates it, and wipes all rows so each
// test starts clean. Skipped unless TEST_DATABASE_URL is set.
func setupDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.NewPostgresDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.RunMigrations(db.DB))

	_, err = db.Exec(`
		TRUNCATE ban_events, bans, sessions, friendships, channel_members,
		channel_messages, direct_messages, channels, accounts CASCADE
	`)
	require.NoError(t, err)

	return db
}

func nopAudit() *audit.Logger {
	return audit.New(zerolog.Nop())
}

func insertAccount(t *testing.T, db *database.DB, name string, isAdmin bool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(`
		INSERT INTO accounts (id, email, display_name, password_hash, is_admin)
		VALUES ($1, $2, $3, 'irrelevant-hash', $4)
	`, id, fmt.Sprintf("%s@example.com", name), name, isAdmin)
	require.NoError(t, err)
	return id
}

func insertChannel(t *testing.T, db *database.DB, ownerID uuid.UUID, slug string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(`
		INSERT INTO channels (id, owner_id, slug, title)
		VALUES ($1, $2, $3, $4)
	`, id, ownerID, slug, slug)
	require.NoError(t, err)
	return id
}

func countRows(t *testing.T, db *database.DB, query string, args ...interface{}) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}
