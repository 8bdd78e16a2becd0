package instrumentation

import (
	"context"
	"errors"
	"net/http"
)

// Cardinality management helpers for metrics.
// Provider responses and error values are collapsed into a handful of
// classes before being used as label values.

// StatusClass reduces an HTTP outcome to a low-cardinality label.
//
// Example:
//
//	StatusClass(200, nil)                        // "2xx"
//	StatusClass(503, err)                        // "5xx"
//	StatusClass(0, context.DeadlineExceeded)     // "timeout"
//	StatusClass(0, errors.New("dial tcp: ..."))  // "transport"
func StatusClass(statusCode int, err error) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode == http.StatusTooManyRequests:
		return "429"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case err != nil:
		return "transport"
	default:
		return StatusUnknown
	}
}

// Reasons a calendar source degraded to an empty busy set.
const (
	DegradeReasonNoRefresh   = "no_refresh_token"
	DegradeReasonAuth        = "auth"
	DegradeReasonFetch       = "fetch"
	DegradeReasonTimeout     = "timeout"
	DegradeReasonUnsupported = "unsupported_provider"
)

// Store operation names.
const (
	OperationGetConnections   = "get_calendar_connections"
	OperationUpdateToken      = "update_connection_token"
	OperationUpsertConnection = "upsert_connection"
	OperationDeleteConnection = "delete_connection"
	OperationPing             = "ping"
)
