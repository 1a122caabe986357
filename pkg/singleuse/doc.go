// Package singleuse provides storage for ephemeral single-use secrets:
// magic-link tokens, OAuth CSRF state values and WebAuthn challenges.
//
// Every record carries a TTL and can be consumed exactly once. Consumption
// is atomic: of N concurrent Consume calls for the same record, exactly one
// observes the stored data and every other caller observes absence. Failure
// modes (missing record, wrong secret, expired record) are deliberately
// indistinguishable to callers - all of them surface as ErrTokenNotFound or
// ErrChallengeNotFound - so the store cannot be used as an oracle.
//
// Secrets are never persisted in plain form. Stores keep a SHA-256 digest of
// the secret and compare presented values with crypto/subtle, so lookup,
// comparison and expiry checks cost the same wall-clock time regardless of
// which check fails.
//
// Two families of stores are provided:
//
//   - TokenStore keyed by a caller-supplied random token ID (magic links,
//     OAuth state). Callers must generate a fresh CSPRNG-derived ID per
//     issuance; ID collisions are not defended against.
//   - ChallengeStore keyed by (user ID, challenge) because the WebAuthn
//     protocol round-trips the challenge value itself and supplies no
//     separate identifier.
//
// In-memory implementations serialize consumption under a single mutex and
// are intended for tests and single-process deployments. Redis-backed
// implementations execute consumption as a single Lua script so the
// read-check-delete sequence stays atomic across processes.
//
// # Usage
//
//	store := singleuse.NewMemoryTokenStore()
//	defer store.Close()
//
//	id := singleuse.NewTokenID()
//	secret, _ := singleuse.NewSecret()
//	err := store.Store(ctx, id, singleuse.TokenData{
//		Type:      singleuse.TokenTypeMagicLink,
//		Token:     secret,
//		Payload:   map[string]string{"email": "user@example.com"},
//		CreatedAt: time.Now(),
//		ExpiresAt: time.Now().Add(10 * time.Minute),
//	})
//
//	data, err := store.Consume(ctx, id, secret) // second call returns ErrTokenNotFound
package singleuse
