package availability

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are the ISO-8601 forms ParseTimestamp accepts. Fractional
// seconds are accepted after any seconds field.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
}

// ParseTimestamp parses an ISO-8601 timestamp with an explicit offset, with
// or without seconds and with or without a colon in the offset. A bare date
// is taken as UTC midnight.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("is required")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("must be an ISO-8601 timestamp with offset or a date, got %q", s)
}
