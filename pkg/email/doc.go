// Package email delivers authentication emails, chiefly magic links.
//
// Sender is the delivery interface flows depend on. PostmarkSender is the
// production implementation on the Postmark transactional API; DevSender
// logs the message through slog instead of sending it, for local runs and
// tests where nothing should leave the process.
//
// Delivery failures surface as ErrSendFailed and become flow errors - a
// magic link that cannot be delivered is a failed login attempt, not a
// silently dropped one.
package email
