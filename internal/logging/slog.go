package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation    = "operation"
	KeyProvider     = "provider"
	KeyConnectionID = "connection_id"
	KeyCalendarID   = "calendar_id"
	KeyUserHash     = "user_hash"
	KeyDuration     = "duration"
	KeyStatus       = "status"
	KeyError        = "error"
	KeyRequestID    = "request_id"
)

// Status values for consistent logging.
// Note: These are intentionally duplicated from instrumentation package
// to avoid circular dependencies.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusDegraded = "degraded"
)

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithProvider returns a logger with the provider attribute set.
func WithProvider(logger *slog.Logger, provider string) *slog.Logger {
	return logger.With(slog.String(KeyProvider, provider))
}

// WithConnection returns a logger scoped to one calendar connection.
func WithConnection(logger *slog.Logger, provider, connectionID string) *slog.Logger {
	return logger.With(
		slog.String(KeyProvider, provider),
		slog.String(KeyConnectionID, connectionID),
	)
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Provider returns a slog attribute for the calendar provider.
func Provider(provider string) slog.Attr {
	return slog.String(KeyProvider, provider)
}

// ConnectionID returns a slog attribute for a calendar connection id.
func ConnectionID(id string) slog.Attr {
	return slog.String(KeyConnectionID, id)
}

// CalendarID returns a slog attribute for a provider calendar id.
// The empty id denotes the account's default calendar.
func CalendarID(id string) slog.Attr {
	if id == "" {
		id = "default"
	}
	return slog.String(KeyCalendarID, id)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Duration returns a slog attribute for an elapsed time.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration(KeyDuration, d)
}

// RequestID returns a slog attribute for the HTTP request id.
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeUserID returns a hashed representation of a user id for logging purposes.
// This allows correlation of log entries without exposing the platform's user ids.
func AnonymizeUserID(userID string) string {
	if userID == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(userID))
	return "user:" + hex.EncodeToString(hash[:8])
}

// UserHash returns a slog attribute with the anonymized user id.
//
// Usage:
//
//	logger.Info("aggregated busy periods", logging.UserHash(userID))
func UserHash(userID string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeUserID(userID))
}

// SanitizeToken returns a masked version of a token for logging.
// It returns a length indicator without exposing any token content,
// as even partial token prefixes (like JWT headers) can aid attacks.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
