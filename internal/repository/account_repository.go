package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/relaychat/moderation/internal/database"
	"github.com/relaychat/moderation/internal/models"
)

type AccountRepository struct {
	db *database.DB
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetByID retrieves an account by ID. Always a fresh read: the privileged
// action gate calls this on every command and must see the current
// credential hash.
func (r *AccountRepository) GetByID(id uuid.UUID) (*models.Account, error) {
	query := `
		SELECT id, email, display_name, password_hash, is_admin, deactivated, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	account := &models.Account{}
	err := r.db.QueryRow(query, id).Scan(
		&account.ID,
		&account.Email,
		&account.DisplayName,
		&account.PasswordHash,
		&account.IsAdmin,
		&account.Deactivated,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// GetByEmail retrieves an account by email
func (r *AccountRepository) GetByEmail(email string) (*models.Account, error) {
	query := `
		SELECT id, email, display_name, password_hash, is_admin, deactivated, created_at, updated_at
		FROM accounts
		WHERE email = $1
	`

	account := &models.Account{}
	err := r.db.QueryRow(query, email).Scan(
		&account.ID,
		&account.Email,
		&account.DisplayName,
		&account.PasswordHash,
		&account.IsAdmin,
		&account.Deactivated,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// Create creates a new account
func (r *AccountRepository) Create(account *models.Account) error {
	query := `
		INSERT INTO accounts (id, email, display_name, password_hash, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		account.ID,
		account.Email,
		account.DisplayName,
		account.PasswordHash,
		account.IsAdmin,
		account.CreatedAt,
		account.UpdatedAt,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// UpdateDisplayName sets a new display name on an account
func (r *AccountRepository) UpdateDisplayName(id uuid.UUID, displayName string) error {
	query := `UPDATE accounts SET display_name = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.Exec(query, displayName, id)
	if err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return models.ErrNotFound
	}

	return nil
}

// UpdateCredential replaces the password hash on an account
func (r *AccountRepository) UpdateCredential(id uuid.UUID, passwordHash string) error {
	query := `UPDATE accounts SET password_hash = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.Exec(query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return models.ErrNotFound
	}

	return nil
}
