package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestStatusClass(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		err      error
		expected string
	}{
		{"ok", 200, nil, "2xx"},
		{"created", 201, nil, "2xx"},
		{"rate limited", 429, errors.New("slow down"), "429"},
		{"unauthorized", 401, errors.New("denied"), "4xx"},
		{"server error", 500, errors.New("boom"), "5xx"},
		{"deadline", 0, fmt.Errorf("fetch: %w", context.DeadlineExceeded), "timeout"},
		{"canceled", 0, context.Canceled, "canceled"},
		{"transport", 0, errors.New("dial tcp: connection refused"), "transport"},
		{"nothing", 0, nil, StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusClass(tt.code, tt.err); got != tt.expected {
				t.Errorf("StatusClass(%d, %v) = %q, want %q", tt.code, tt.err, got, tt.expected)
			}
		})
	}
}
