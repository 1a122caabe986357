package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store defines the interface for session persistence. Every mutation
// executes as one atomic unit against the backing storage.
type Store interface {
	// Create stores a new session, failing with ErrSessionExists when the ID
	// is already in use.
	Create(ctx context.Context, s *Session) error

	// Get retrieves a session by ID. It returns ErrSessionNotFound when the
	// record is absent and ErrSessionExpired when it is present but past its
	// expiry - presence does not imply validity.
	Get(ctx context.Context, id uuid.UUID) (*Session, error)

	// Touch persists the last-active timestamp and, when the session has
	// SlidingRefresh enabled, extends expiry by IdleTimeout from now. With
	// sliding refresh off the expiry set at creation is immutable.
	Touch(ctx context.Context, id uuid.UUID) (*Session, error)

	// Delete revokes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteUserSessions revokes every session of a user and returns how
	// many were removed.
	DeleteUserSessions(ctx context.Context, userID uuid.UUID) (int, error)

	// Exists reports whether a live (non-expired) session exists.
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// TTL returns the time remaining until the session expires, agreeing
	// with Get's expiry notion.
	TTL(ctx context.Context, id uuid.UUID) (time.Duration, error)
}
