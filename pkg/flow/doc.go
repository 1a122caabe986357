// Package flow coordinates the three login ceremonies - magic link, OAuth
// and passkey - into session issuance.
//
// Each flow is a short, synchronous command-in/result-out pipeline over
// injected collaborators: the single-use token and challenge stores, the
// session store, the rate limiter, the risk calculator, and the external
// providers (email, OAuth, WebAuthn verification). Flows never write users
// or devices; identity mutations leave the package as events through
// EventEmitter and are applied elsewhere. The caller that invokes a command
// owns timeouts and retries.
//
// Failure modes that could act as an oracle are collapsed before they leave
// the package: a magic-link token that is missing, expired or already used
// is always ErrMagicLinkInvalid; a reused or forged OAuth state is always
// ErrOAuthStateInvalid. Security-class causes (origin or RP ID mismatch,
// state reuse, counter conflicts) are logged with logger.Security() for
// alerting but surface to callers in the same generic form.
//
// Every successful ceremony ends the same way: compute the login risk, check
// it against the ceremony's strength, create a session, emit a login event.
// If the assessed risk demands a stronger ceremony than the one the user
// completed, the login fails with ErrStrongerAuthRequired.
package flow
