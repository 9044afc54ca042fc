package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/relaychat/moderation/internal/database"
	"github.com/relaychat/moderation/internal/models"
)

type ChannelRepository struct {
	db *database.DB
}

func NewChannelRepository(db *database.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// GetByID retrieves a channel by ID
func (r *ChannelRepository) GetByID(id uuid.UUID) (*models.Channel, error) {
	query := `
		SELECT id, owner_id, slug, title, created_at, updated_at
		FROM channels WHERE id = $1
	`

	ch := &models.Channel{}
	err := r.db.QueryRow(query, id).Scan(
		&ch.ID,
		&ch.OwnerID,
		&ch.Slug,
		&ch.Title,
		&ch.CreatedAt,
		&ch.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	return ch, nil
}

// GetBySlug retrieves a channel by slug
func (r *ChannelRepository) GetBySlug(slug string) (*models.Channel, error) {
	query := `
		SELECT id, owner_id, slug, title, created_at, updated_at
		FROM channels WHERE slug = $1
	`

	ch := &models.Channel{}
	err := r.db.QueryRow(query, slug).Scan(
		&ch.ID,
		&ch.OwnerID,
		&ch.Slug,
		&ch.Title,
		&ch.CreatedAt,
		&ch.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	return ch, nil
}

// Exists reports whether a channel exists
func (r *ChannelRepository) Exists(id uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM channels WHERE id = $1)`
	var exists bool
	if err := r.db.QueryRow(query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check channel: %w", err)
	}
	return exists, nil
}
