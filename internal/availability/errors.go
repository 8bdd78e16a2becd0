package availability

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned when the connection store cannot be reached.
var ErrUnavailable = errors.New("availability: connection store unavailable")

// ValidationError describes a malformed or out of range request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
