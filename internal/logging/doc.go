// Package logging provides structured logging utilities for gmailnotify.
//
// All components log through the standard library's slog package. This
// package keeps attribute names consistent across the pipeline and keeps
// secrets and mailbox identities out of the log stream.
//
// # Usage Patterns
//
// Create a logger for a component:
//
//	logger := logging.WithComponent(slog.Default(), "mailbox")
//	logger.Info("inbox selected", logging.Mailbox("INBOX"))
//
// Attach per-message context:
//
//	logger.Debug("deleting message",
//	    logging.UID(42),
//	    logging.Sender("spam@example.com"))
//
// # Security Considerations
//
//   - The mailbox account is hashed (UserHash) so log lines can be correlated
//     without exposing the address.
//   - Tokens and passwords are never logged; use SanitizeToken when a token
//     has to be referenced.
package logging
