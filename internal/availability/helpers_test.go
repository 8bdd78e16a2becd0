package availability

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/calendar"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/store"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/token"
)

type fetchFunc func(ctx context.Context, accessToken, calendarID string, start, end time.Time) ([]calendar.BusyInterval, error)

// fakeAdapter is a calendar.Adapter driven by a function.
type fakeAdapter struct {
	provider calendar.Provider
	fetch    fetchFunc

	mu    sync.Mutex
	calls []string
}

func (f *fakeAdapter) Provider() calendar.Provider { return f.provider }

func (f *fakeAdapter) FetchBusyPeriods(ctx context.Context, accessToken, calendarID string, start, end time.Time) ([]calendar.BusyInterval, error) {
	f.mu.Lock()
	f.calls = append(f.calls, accessToken+"/"+calendarID)
	f.mu.Unlock()
	return f.fetch(ctx, accessToken, calendarID, start, end)
}

func (f *fakeAdapter) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// busyBy returns a fetchFunc serving fixed intervals per access token.
func busyBy(byToken map[string][]calendar.BusyInterval) fetchFunc {
	return func(_ context.Context, accessToken, _ string, _, _ time.Time) ([]calendar.BusyInterval, error) {
		out := make([]calendar.BusyInterval, len(byToken[accessToken]))
		copy(out, byToken[accessToken])
		return out, nil
	}
}

func at(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2024-06-03 "+hhmm)
	if err != nil {
		panic(err)
	}
	return t
}

func interval(start, end string) calendar.BusyInterval {
	return calendar.BusyInterval{Start: at(start), End: at(end)}
}

func connection(id, userID string, provider calendar.Provider, refs ...calendar.CalendarRef) calendar.CalendarConnection {
	return calendar.CalendarConnection{
		ID:                id,
		UserID:            userID,
		Provider:          provider,
		ProviderAccountID: id + "@example.com",
		AccessToken:       "tok-" + id,
		TokenExpiresAt:    time.Now().Add(time.Hour),
		Calendars:         refs,
		SyncEnabled:       true,
	}
}

func newSession(t *testing.T) *token.Session {
	t.Helper()
	return token.NewManager(store.NewMemory(), nil).NewSession()
}
