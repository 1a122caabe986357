package passkey

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Credential is a registered WebAuthn credential. ID is the authenticator's
// credential ID in URL-safe base64. Counter is the authenticator's signature
// counter and is strictly non-decreasing across successful authentications.
type Credential struct {
	ID         string    `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	DeviceID   uuid.UUID `json:"device_id"`
	PublicKey  []byte    `json:"public_key"`
	Counter    uint32    `json:"counter"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// Validate checks the fields a store needs before persisting.
func (c Credential) Validate() error {
	if c.ID == "" {
		return ErrCredentialIDRequired
	}
	if c.UserID == uuid.Nil {
		return ErrUserIDRequired
	}
	return nil
}

// CredentialStore persists credentials and enforces counter monotonicity.
type CredentialStore interface {
	// Create inserts the credential, failing with ErrCredentialExists when
	// the ID is already taken.
	Create(ctx context.Context, cred Credential) error

	// Get returns the credential or ErrCredentialNotFound.
	Get(ctx context.Context, id string) (*Credential, error)

	// ListByUser returns all credentials registered to the user.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Credential, error)

	// UpdateCounter advances the signature counter iff the stored value still
	// equals old. The compare and the write are one atomic step; of two racing
	// callers with the same old, exactly one succeeds and the other observes
	// ErrCounterConflict. It also stamps LastUsedAt.
	UpdateCounter(ctx context.Context, id string, old, new uint32) error

	// TouchLastUsed stamps LastUsedAt without moving the counter. Used for
	// authenticators that always report a zero counter.
	TouchLastUsed(ctx context.Context, id string, at time.Time) error

	// Delete removes the credential. Deleting a missing credential is not an
	// error.
	Delete(ctx context.Context, id string) error
}
