// Package mail provides goAccount.Mailer implementations: an SMTP sender for
// production, a slog-backed mailer for development, and an in-memory
// Recorder for tests.
package mail
