// Package passkey stores WebAuthn credentials and verifies registration and
// authentication ceremonies.
//
// A credential's signature counter is the replay defense: it must never move
// backwards. UpdateCounter is therefore a compare-and-swap - it succeeds only
// when the stored counter still equals the caller's expected value, so of two
// racing logins replaying the same assertion exactly one wins. A CAS failure
// after a cryptographically valid assertion indicates a possible cloned
// authenticator and must reject the login.
//
// Verification itself is delegated to github.com/go-webauthn/webauthn.
// WebAuthnVerifier wraps it behind the Verifier interface and surfaces origin
// and relying-party mismatches as distinct security-class errors before the
// library runs its full checks. ChallengeFromResponse peels the challenge out
// of a client response without full parsing, so callers can consume the
// stored challenge before any expensive verification work.
//
// MemoryCredentialStore serves tests and single-process deployments;
// RedisCredentialStore runs its compare-and-swap as a Lua script so the
// check-and-update stays atomic across processes.
package passkey
