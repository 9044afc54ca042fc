package models

import "errors"

// Domain errors surfaced by the stores. The dispatcher maps each of these to
// one enumerated admin-facing message; anything else is a storage failure.
var (
	ErrNotFound  = errors.New("not found")
	ErrNotBanned = errors.New("no active ban")
	// ErrBanConflict is the losing side of two concurrent bans on one
	// subject: the partial unique index rejected the second active row.
	ErrBanConflict = errors.New("subject already has an active ban")
)
