package flow

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is the read model flows consult. The projection it comes from is
// mutated only by event application elsewhere.
type User struct {
	ID          uuid.UUID
	Email       string
	Name        string
	AvatarURL   string
	CreatedAt   time.Time
	LastLoginAt time.Time
	LastLoginIP string
}

// Device is a browser or authenticator platform previously seen for a user.
type Device struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	UserAgent   string
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

// UserRepository is a read-only view over the user projection.
// Implementations return ErrUserNotFound for absent users.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// DeviceRepository is a read-only view over the device projection.
type DeviceRepository interface {
	FindByUser(ctx context.Context, userID uuid.UUID) ([]Device, error)

	// FindByUserAndAgent returns the user's device matching the user agent,
	// or nil when none is known yet.
	FindByUserAndAgent(ctx context.Context, userID uuid.UUID, userAgent string) (*Device, error)
}
