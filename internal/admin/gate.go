package admin

import (
	"errors"

	"github.com/google/uuid"

	"github.com/relaychat/moderation/internal/auth"
	"github.com/relaychat/moderation/internal/models"
)

// AccountDirectory is the slice of account storage the gate and dispatcher
// need. GetByID must always hit the store: a credential change made by one
// actor is visible to the very next command from anyone.
type AccountDirectory interface {
	GetByID(id uuid.UUID) (*models.Account, error)
	UpdateDisplayName(id uuid.UUID, displayName string) error
	UpdateCredential(id uuid.UUID, passwordHash string) error
}

// Gate re-verifies the acting admin's current secret on every privileged
// command. The session already proved who the actor is; the gate proves they
// are present and intend this action now, so a hijacked or unattended
// session cannot run destructive commands.
type Gate struct {
	accounts AccountDirectory
}

func NewGate(accounts AccountDirectory) *Gate {
	return &Gate{accounts: accounts}
}

// Authorize loads the actor's credential fresh and compares the supplied
// secret against the current hash. Every rejection maps to the same
// ErrUnauthorized: the caller learns nothing beyond "verification failed".
func (g *Gate) Authorize(actorID uuid.UUID, suppliedSecret string) (*models.Account, error) {
	actor, err := g.accounts.GetByID(actorID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	if actor.Deactivated || !actor.IsAdmin {
		return nil, ErrUnauthorized
	}

	if err := auth.CheckPassword(actor.PasswordHash, suppliedSecret); err != nil {
		return nil, ErrUnauthorized
	}

	return actor, nil
}
