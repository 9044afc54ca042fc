package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeactivatedNameSentinel replaces the display name when a deployment lacks
// the deactivated column and Deactivate has to fall back to overwriting it.
const DeactivatedNameSentinel = "[deactivated]"

type Account struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
	Deactivated  bool      `json:"deactivated" db:"deactivated"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks basic account fields
func (a *Account) Validate() error {
	if a.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !strings.Contains(a.Email, "@") {
		return fmt.Errorf("invalid email")
	}
	if a.DisplayName == "" {
		return fmt.Errorf("display name is required")
	}
	if len(a.DisplayName) < 2 || len(a.DisplayName) > 100 {
		return fmt.Errorf("display name length invalid")
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token   string  `json:"token"`
	Account Account `json:"account"`
}
