// Package session manages authenticated session records with TTL-bound
// lifetimes and fixed-or-sliding expiration.
//
// A Session is created only after a login flow completes, is touched on each
// validated request, and is destroyed by explicit logout or a bulk per-user
// revoke ("log out everywhere"). Once deleted a session never resurrects.
// The session ID doubles as the externally visible bearer credential; any
// HTTP-facing shaping (cookies, headers) belongs to the caller.
//
// Presence does not imply validity: Get distinguishes ErrSessionNotFound from
// ErrSessionExpired, and Exists and TTL agree with Get's expiry notion.
//
// Sessions with SlidingRefresh enabled have their expiry extended by
// IdleTimeout on every Touch; otherwise the expiry set at creation is final
// and the session dies at that instant regardless of activity.
//
// The package is storage-agnostic: a concurrent in-memory store ships for
// tests and single-process use, and a Redis-backed store executes every
// mutation as one atomic unit (Lua script or native command) so concurrent
// requests observe a serialized session ledger.
package session
