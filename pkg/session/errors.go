package session

import "errors"

var (
	// ErrSessionNotFound indicates no record exists for the session ID.
	ErrSessionNotFound = errors.New("session.not_found")

	// ErrSessionExpired indicates the record exists but its expiry has passed.
	ErrSessionExpired = errors.New("session.expired")

	// ErrSessionExists indicates Create was called with an ID already in use.
	ErrSessionExists = errors.New("session.already_exists")

	// ErrInvalidSession indicates a structurally invalid session record.
	ErrInvalidSession = errors.New("session.invalid")

	// ErrStorageFailure wraps backend failures (network, serialization).
	ErrStorageFailure = errors.New("session.storage_failure")
)
