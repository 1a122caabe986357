package singleuse

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// TokenType identifies what kind of ceremony a single-use record belongs to.
type TokenType string

const (
	TokenTypeMagicLink                      TokenType = "magic_link"
	TokenTypeOAuthState                     TokenType = "oauth_state"
	TokenTypePasskeyRegistrationChallenge   TokenType = "passkey_registration_challenge"
	TokenTypePasskeyAuthenticationChallenge TokenType = "passkey_authentication_challenge"
)

// TokenData is a single-use record keyed by a caller-supplied random ID.
// Token holds the opaque secret the caller must present back on consumption.
type TokenData struct {
	Type      TokenType         `json:"type"`
	Token     string            `json:"-"`
	Payload   map[string]string `json:"payload,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// ChallengeData is a single-use WebAuthn challenge keyed by (user ID, challenge).
type ChallengeData struct {
	UserID    uuid.UUID `json:"user_id"`
	Challenge string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenStore stores single-use secrets keyed by a random identifier.
type TokenStore interface {
	// Store inserts the record unconditionally. The caller owns ID freshness.
	Store(ctx context.Context, id string, data TokenData) error

	// Consume atomically looks up the record, compares the presented secret
	// in constant time, checks expiry and deletes the record. It returns the
	// stored data iff the secret matched and the record had not expired;
	// every other outcome is ErrTokenNotFound. Expired records are deleted
	// even when the presented secret does not match.
	Consume(ctx context.Context, id, presented string) (*TokenData, error)

	// Exists reports whether a live (non-expired) record exists for the ID.
	Exists(ctx context.Context, id string) (bool, error)

	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error
}

// ChallengeStore stores WebAuthn challenges under the same single-use,
// atomic, constant-time contract as TokenStore.
type ChallengeStore interface {
	Store(ctx context.Context, data ChallengeData) error
	Consume(ctx context.Context, userID uuid.UUID, challenge string) (*ChallengeData, error)
	Exists(ctx context.Context, userID uuid.UUID, challenge string) (bool, error)
	Delete(ctx context.Context, userID uuid.UUID, challenge string) error
}

// secretSize is the entropy carried by generated secrets. OAuth state values
// and WebAuthn challenges must hold at least 256 bits of CSPRNG output.
const secretSize = 32

// NewSecret returns a fresh URL-safe secret with 256 bits of entropy.
func NewSecret() (string, error) {
	b := make([]byte, secretSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewTokenID returns a fresh random record identifier.
func NewTokenID() string {
	return uuid.NewString()
}

// digest hashes a secret for storage and comparison. Stores never keep the
// raw secret, only this digest.
func digest(secret string) [sha256.Size]byte {
	return sha256.Sum256([]byte(secret))
}
