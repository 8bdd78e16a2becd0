// Package logging provides structured logging utilities for the scheduling service.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - Pseudonymous user identifiers (hashed user ids)
//   - Consistent attribute naming for providers, connections and calendars
//
// # Usage Patterns
//
// Create a logger scoped to one connection:
//
//	logger := logging.WithConnection(slog.Default(), "google", conn.ID)
//	logger.Warn("calendar fetch degraded",
//	    logging.CalendarID(calendarID),
//	    logging.Err(err))
//
// # Security Considerations
//
//   - User ids are hashed to prevent leaking platform identifiers into log pipelines
//   - OAuth tokens are never logged directly, only their length via SanitizeToken
package logging
