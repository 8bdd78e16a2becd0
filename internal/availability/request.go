package availability

import (
	"strings"
	"time"
)

const (
	// DefaultDurationMinutes is used by callers when the request omits a duration.
	DefaultDurationMinutes = 30

	// MinDurationMinutes and MaxDurationMinutes bound the meeting length.
	MinDurationMinutes = 1
	MaxDurationMinutes = 480

	// MaxWindow bounds the search window.
	MaxWindow = 62 * 24 * time.Hour

	// DefaultTimeZone is used when the request omits a time zone.
	DefaultTimeZone = "UTC"
)

// Request is an availability query as received from a caller.
type Request struct {
	UserIDs         []string
	Start           time.Time
	End             time.Time
	DurationMinutes int
	TimeZone        string
}

// Query is a validated Request.
type Query struct {
	UserIDs  []string
	Start    time.Time
	End      time.Time
	Duration time.Duration
	Location *time.Location
}

// Validate checks r and returns the normalized query. User ids are trimmed
// and deduplicated in first-seen order; an empty time zone means UTC.
func (r Request) Validate() (Query, error) {
	if len(r.UserIDs) == 0 {
		return Query{}, invalid("userIds", "at least one user id is required")
	}

	seen := make(map[string]struct{}, len(r.UserIDs))
	ids := make([]string, 0, len(r.UserIDs))
	for _, id := range r.UserIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return Query{}, invalid("userIds", "user ids must not be empty")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	if r.Start.IsZero() {
		return Query{}, invalid("startDate", "is required")
	}
	if r.End.IsZero() {
		return Query{}, invalid("endDate", "is required")
	}
	if !r.Start.Before(r.End) {
		return Query{}, invalid("startDate", "must be before endDate")
	}
	if r.End.Sub(r.Start) > MaxWindow {
		return Query{}, invalid("endDate", "window must not exceed %d days", int(MaxWindow.Hours()/24))
	}

	if r.DurationMinutes < MinDurationMinutes || r.DurationMinutes > MaxDurationMinutes {
		return Query{}, invalid("duration", "must be between %d and %d minutes, got %d",
			MinDurationMinutes, MaxDurationMinutes, r.DurationMinutes)
	}

	tz := strings.TrimSpace(r.TimeZone)
	if tz == "" {
		tz = DefaultTimeZone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Query{}, invalid("timeZone", "unknown time zone %q", tz)
	}

	return Query{
		UserIDs:  ids,
		Start:    r.Start,
		End:      r.End,
		Duration: time.Duration(r.DurationMinutes) * time.Minute,
		Location: loc,
	}, nil
}
