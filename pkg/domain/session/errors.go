package session

import "errors"

var (
	// ErrSessionNotFound covers ids that were never allocated and ids
	// already removed; callers surface both as "not found or expired".
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired covers the window between expiry and the next
	// sweep tick, where the record still exists but must not be joinable.
	ErrSessionExpired = errors.New("session expired")
	// ErrInvalidRole rejects bind attempts for anything other than
	// desktop or phone.
	ErrInvalidRole = errors.New("invalid session role")
)
