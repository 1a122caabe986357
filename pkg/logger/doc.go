// Package logger builds configured slog loggers and provides attribute
// helpers for the identifiers that recur across authentication code: user,
// session, device, flow, provider, risk level.
//
// Attr helpers keep log keys consistent so audit queries do not have to
// guess between "user_id" and "userId". Security-class events (state
// mismatch, origin mismatch, counter conflicts) are logged with Security()
// so alerting can key on one attribute.
package logger
