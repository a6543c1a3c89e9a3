package shared

import "errors"

var (
	// ErrSessionNotFound indicates the session expired or never existed.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoSession indicates a request reached a handler without session middleware.
	ErrNoSession = errors.New("session missing from context")
)
