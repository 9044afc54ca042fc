package admin

import "errors"

// Dispatcher-level error kinds. Store-level kinds (not found, not banned,
// ban conflict) come from the models package; everything else that reaches
// the dispatcher boundary is treated as a storage failure.
var (
	ErrUnauthorized     = errors.New("secret verification failed")
	ErrUnknownAction    = errors.New("unknown action")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrForbidden        = errors.New("target is an administrator")
)
