package server

import "errors"

// Sentinel errors returned by the stores and the upload adapter. Handlers
// match them with errors.Is and convert them into a flash message plus a
// redirect; anything else is treated as unexpected and becomes a 500.
var (
	// Store-level errors.
	ErrDuplicateKey = errors.New("username or email already registered")
	ErrNotFound     = errors.New("not found")

	// Auth errors.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrWeakPassword       = errors.New("password must not be empty")

	// Upload adapter errors.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrPayloadTooLarge    = errors.New("file too large")
)
