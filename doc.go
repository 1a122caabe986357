// Package authkit is a passwordless-first authentication core: single-use
// tokens and challenges, session lifecycle, rate limiting, login risk
// scoring, and the magic-link, OAuth and passkey ceremonies that tie them
// together.
//
// Everything lives under pkg/ as independently usable packages:
//
//   - pkg/singleuse - single-use token and WebAuthn challenge stores
//   - pkg/session - session lifecycle with idle timeout and sliding refresh
//   - pkg/ratelimit - token-bucket and sliding-window limiters
//   - pkg/risk - login risk scoring (IP reputation, impossible travel,
//     breached-email lookup)
//   - pkg/passkey - WebAuthn credential storage and verification
//   - pkg/oauth - Google and GitHub providers
//   - pkg/email - magic-link delivery via Postmark
//   - pkg/flow - the three login ceremonies composed into session issuance
//   - pkg/projection - PostgreSQL read models materialized from flow events
//
// Stores ship in-memory and Redis variants; pkg/pg, pkg/redis and pkg/config
// carry the supporting infrastructure.
package authkit
