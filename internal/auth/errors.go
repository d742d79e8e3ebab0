package auth

import "errors"

var (
	// ErrInvalidCredential covers both an unknown username and a wrong
	// password so callers cannot tell which one it was.
	ErrInvalidCredential = errors.New("invalid username or password")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrPersistence       = errors.New("could not persist user")
	ErrInternal          = errors.New("internal authentication error")
)
