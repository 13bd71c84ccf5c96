package domain

import "errors"

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")

	// ErrAuth marks authentication failures against the mail account.
	// Always fatal: the run aborts immediately.
	ErrAuth = errors.New("authentication failed")
)

// IsFatal reports whether err must abort the entire run rather than just the
// current message.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuth)
}
