package service

import "errors"

// Sentinel errors surfaced by the service layer. Handlers map these to
// HTTP status codes with errors.Is.
var (
	// ErrNotFound means the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the caller's role or organization does not
	// permit the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState means a lifecycle transition was attempted from
	// a status that does not allow it.
	ErrInvalidState = errors.New("invalid state for operation")

	// ErrValidation means the input was malformed or incomplete.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials is returned on failed login attempts.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
