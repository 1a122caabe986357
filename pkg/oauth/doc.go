// Package oauth adapts external OAuth2/OIDC providers behind one Provider
// interface: build an authorization URL carrying a caller-supplied CSRF state,
// exchange the callback code for a token, and fetch the user's profile.
//
// State generation, storage and single-use consumption are deliberately NOT
// here - flows own the state lifecycle through their token store, so a reused
// or forged state never reaches a provider adapter.
//
// Google and GitHub adapters are provided on golang.org/x/oauth2. Both refuse
// to surface unverified email addresses by default, which blocks account
// takeover through a provider account whose address was never confirmed.
// Registry resolves a provider by its wire identifier for callback routing.
package oauth
