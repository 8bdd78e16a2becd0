package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Provider identifies an external calendar service.
type Provider string

const (
	ProviderGoogle    Provider = "google"
	ProviderMicrosoft Provider = "microsoft"
)

// ParseProvider converts a user supplied provider name into a Provider.
// "outlook" is accepted as an alias for Microsoft.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ProviderGoogle):
		return ProviderGoogle, nil
	case string(ProviderMicrosoft), "outlook":
		return ProviderMicrosoft, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, s)
	}
}

// CalendarRef references one calendar inside a provider account.
type CalendarRef struct {
	ID       string `json:"id"`
	Selected bool   `json:"selected"`
}

// CalendarConnection is a stored OAuth credential set linking one local user
// to one external provider account. It is unique per
// (UserID, Provider, ProviderAccountID).
type CalendarConnection struct {
	ID                string        `json:"id"`
	UserID            string        `json:"userId"`
	Provider          Provider      `json:"provider"`
	ProviderAccountID string        `json:"providerAccountId"`
	AccessToken       string        `json:"-"`
	RefreshToken      string        `json:"-"`
	TokenExpiresAt    time.Time     `json:"tokenExpiresAt"`
	Calendars         []CalendarRef `json:"calendars"`
	SyncEnabled       bool          `json:"syncEnabled"`
	LastSyncedAt      time.Time     `json:"lastSyncedAt"`
}

// DefaultCalendarID is passed to adapters when a connection has no calendar
// references; adapters map it to the account's primary calendar.
const DefaultCalendarID = ""

// SelectedCalendarIDs returns the calendar ids to query for this connection.
// A connection without any calendar references queries the default calendar.
// A connection with references but none selected queries nothing.
func (c CalendarConnection) SelectedCalendarIDs() []string {
	if len(c.Calendars) == 0 {
		return []string{DefaultCalendarID}
	}
	ids := make([]string, 0, len(c.Calendars))
	for _, ref := range c.Calendars {
		if ref.Selected {
			ids = append(ids, ref.ID)
		}
	}
	return ids
}

// BusyInterval is a half-open range [Start, End) during which a participant is
// unavailable according to one connection.
type BusyInterval struct {
	Start        time.Time
	End          time.Time
	ConnectionID string
}

// Overlaps reports whether the interval intersects the half-open range [start, end).
func (b BusyInterval) Overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && start.Before(b.End)
}

// Clip trims the interval to [start, end). The second return value is false if
// nothing of positive length remains.
func (b BusyInterval) Clip(start, end time.Time) (BusyInterval, bool) {
	if b.Start.Before(start) {
		b.Start = start
	}
	if b.End.After(end) {
		b.End = end
	}
	return b, b.End.After(b.Start)
}

// UserAvailability is the merged view of one participant's calendars.
type UserAvailability struct {
	UserID               string
	HasCalendarConnected bool
	ConnectionCount      int
	// FailedSources counts calendars whose fetch degraded to an empty set.
	FailedSources int
	// Busy is sorted by start and non-overlapping.
	Busy []BusyInterval
}

// FreeSlot is a half-open candidate meeting time [Start, End).
type FreeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
