package availability

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/calendar"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/instrumentation"
)

func TestAggregator_MergesAcrossConnections(t *testing.T) {
	google := &fakeAdapter{provider: calendar.ProviderGoogle, fetch: busyBy(map[string][]calendar.BusyInterval{
		"tok-g1": {interval("09:00", "10:00"), interval("13:00", "14:00")},
	})}
	microsoft := &fakeAdapter{provider: calendar.ProviderMicrosoft, fetch: busyBy(map[string][]calendar.BusyInterval{
		"tok-m1": {interval("10:00", "10:30"), interval("13:30", "15:00")},
	})}
	agg := NewAggregator(calendar.NewRegistry(google, microsoft))

	conns := []calendar.CalendarConnection{
		connection("g1", "alice", calendar.ProviderGoogle),
		connection("m1", "alice", calendar.ProviderMicrosoft),
	}

	got := agg.Aggregate(context.Background(), "alice", conns, newSession(t), at("00:00"), at("23:00"))

	assert.Equal(t, "alice", got.UserID)
	assert.True(t, got.HasCalendarConnected)
	assert.Equal(t, 2, got.ConnectionCount)
	assert.Zero(t, got.FailedSources)
	require.Len(t, got.Busy, 2)
	// Touching intervals from different connections coalesce.
	assert.Equal(t, at("09:00"), got.Busy[0].Start)
	assert.Equal(t, at("10:30"), got.Busy[0].End)
	assert.Equal(t, "g1", got.Busy[0].ConnectionID)
	assert.Equal(t, at("13:00"), got.Busy[1].Start)
	assert.Equal(t, at("15:00"), got.Busy[1].End)
}

func TestAggregator_QueriesSelectedCalendarsOnly(t *testing.T) {
	google := &fakeAdapter{provider: calendar.ProviderGoogle, fetch: busyBy(nil)}
	agg := NewAggregator(calendar.NewRegistry(google))

	withRefs := connection("g1", "alice", calendar.ProviderGoogle,
		calendar.CalendarRef{ID: "work", Selected: true},
		calendar.CalendarRef{ID: "birthdays", Selected: false},
		calendar.CalendarRef{ID: "team", Selected: true},
	)
	defaultOnly := connection("g2", "alice", calendar.ProviderGoogle)
	disabled := connection("g3", "alice", calendar.ProviderGoogle)
	disabled.SyncEnabled = false
	noneSelected := connection("g4", "alice", calendar.ProviderGoogle,
		calendar.CalendarRef{ID: "x", Selected: false})

	got := agg.Aggregate(context.Background(), "alice",
		[]calendar.CalendarConnection{withRefs, defaultOnly, disabled, noneSelected},
		newSession(t), at("00:00"), at("23:00"))

	assert.ElementsMatch(t, []string{"tok-g1/work", "tok-g1/team", "tok-g2/"}, google.Calls())
	assert.Equal(t, 4, got.ConnectionCount)
	assert.Equal(t, []calendar.BusyInterval{}, got.Busy)
}

func TestAggregator_DegradesFailingSources(t *testing.T) {
	google := &fakeAdapter{provider: calendar.ProviderGoogle, fetch: func(_ context.Context, accessToken, calendarID string, _, _ time.Time) ([]calendar.BusyInterval, error) {
		if calendarID == "broken" {
			return nil, &calendar.ProviderFetchError{Provider: calendar.ProviderGoogle, CalendarID: calendarID, HTTPStatus: 500}
		}
		return []calendar.BusyInterval{interval("11:00", "12:00")}, nil
	}}
	agg := NewAggregator(calendar.NewRegistry(google))

	expired := connection("g2", "alice", calendar.ProviderGoogle)
	expired.TokenExpiresAt = time.Now().Add(-time.Minute)
	unknown := connection("x1", "alice", calendar.Provider("caldav"))

	conns := []calendar.CalendarConnection{
		connection("g1", "alice", calendar.ProviderGoogle,
			calendar.CalendarRef{ID: "ok", Selected: true},
			calendar.CalendarRef{ID: "broken", Selected: true}),
		expired,
		unknown,
	}

	got := agg.Aggregate(context.Background(), "alice", conns, newSession(t), at("00:00"), at("23:00"))

	assert.True(t, got.HasCalendarConnected)
	assert.Equal(t, 3, got.ConnectionCount)
	assert.Equal(t, 3, got.FailedSources)
	require.Len(t, got.Busy, 1)
	assert.Equal(t, at("11:00"), got.Busy[0].Start)
}

func TestAggregator_TimesOutSlowSources(t *testing.T) {
	slow := &fakeAdapter{provider: calendar.ProviderMicrosoft, fetch: func(ctx context.Context, _, _ string, _, _ time.Time) ([]calendar.BusyInterval, error) {
		<-ctx.Done()
		return nil, &calendar.ProviderFetchError{Provider: calendar.ProviderMicrosoft, Err: ctx.Err()}
	}}
	agg := NewAggregator(calendar.NewRegistry(slow), WithProviderTimeout(20*time.Millisecond))

	began := time.Now()
	got := agg.Aggregate(context.Background(), "alice",
		[]calendar.CalendarConnection{connection("m1", "alice", calendar.ProviderMicrosoft)},
		newSession(t), at("00:00"), at("23:00"))

	assert.Less(t, time.Since(began), 5*time.Second)
	assert.Equal(t, 1, got.FailedSources)
	assert.Empty(t, got.Busy)
}

// tokenFunc adapts a function to TokenSource.
type tokenFunc func(ctx context.Context, conn calendar.CalendarConnection) (string, error)

func (f tokenFunc) Token(ctx context.Context, conn calendar.CalendarConnection) (string, error) {
	return f(ctx, conn)
}

func TestAggregator_TokenRefreshTimeoutIsReportedAsTimeout(t *testing.T) {
	google := &fakeAdapter{provider: calendar.ProviderGoogle, fetch: busyBy(nil)}
	var logs bytes.Buffer
	agg := NewAggregator(calendar.NewRegistry(google),
		WithProviderTimeout(20*time.Millisecond),
		WithAggregatorLogger(slog.New(slog.NewJSONHandler(&logs, nil))))

	// oauth2 formats transport errors with %v, so the deadline is only in the text.
	hanging := tokenFunc(func(ctx context.Context, _ calendar.CalendarConnection) (string, error) {
		<-ctx.Done()
		return "", &calendar.ProviderAuthError{
			Provider: calendar.ProviderGoogle,
			Err:      fmt.Errorf("oauth2: cannot fetch token: %v", ctx.Err()),
		}
	})

	got := agg.Aggregate(context.Background(), "alice",
		[]calendar.CalendarConnection{connection("g1", "alice", calendar.ProviderGoogle)},
		hanging, at("00:00"), at("23:00"))

	assert.Equal(t, 1, got.FailedSources)
	assert.Empty(t, got.Busy)
	assert.Empty(t, google.Calls())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	assert.Equal(t, instrumentation.DegradeReasonTimeout, entry["reason"])
}

func TestAggregator_AuthFailureBeforeDeadlineIsReportedAsAuth(t *testing.T) {
	google := &fakeAdapter{provider: calendar.ProviderGoogle, fetch: busyBy(nil)}
	var logs bytes.Buffer
	agg := NewAggregator(calendar.NewRegistry(google),
		WithAggregatorLogger(slog.New(slog.NewJSONHandler(&logs, nil))))

	rejected := tokenFunc(func(context.Context, calendar.CalendarConnection) (string, error) {
		return "", &calendar.ProviderAuthError{Provider: calendar.ProviderGoogle, HTTPStatus: 400}
	})

	got := agg.Aggregate(context.Background(), "alice",
		[]calendar.CalendarConnection{connection("g1", "alice", calendar.ProviderGoogle)},
		rejected, at("00:00"), at("23:00"))

	assert.Equal(t, 1, got.FailedSources)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	assert.Equal(t, instrumentation.DegradeReasonAuth, entry["reason"])
}

func TestWithDeadline(t *testing.T) {
	authErr := &calendar.ProviderAuthError{Provider: calendar.ProviderMicrosoft, Err: errors.New("oauth2: cannot fetch token: context deadline exceeded")}

	assert.Same(t, authErr, withDeadline(context.Background(), authErr))

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	got := withDeadline(ctx, authErr)
	assert.ErrorIs(t, got, context.DeadlineExceeded)
	var target *calendar.ProviderAuthError
	assert.ErrorAs(t, got, &target)
	assert.Equal(t, instrumentation.DegradeReasonTimeout, degradeReason(got))

	already := &calendar.ProviderFetchError{Err: context.DeadlineExceeded}
	assert.Same(t, already, withDeadline(ctx, already))
}

func TestAggregator_NoConnections(t *testing.T) {
	agg := NewAggregator(calendar.NewRegistry())

	got := agg.Aggregate(context.Background(), "bob", nil, newSession(t), at("00:00"), at("23:00"))

	assert.False(t, got.HasCalendarConnected)
	assert.Zero(t, got.ConnectionCount)
	assert.Empty(t, got.Busy)
}

func TestDegradeReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"no refresh token", calendar.ErrTokenExpiredNoRefresh, instrumentation.DegradeReasonNoRefresh},
		{"auth", &calendar.ProviderAuthError{Provider: calendar.ProviderGoogle, HTTPStatus: 400}, instrumentation.DegradeReasonAuth},
		{"timeout", &calendar.ProviderFetchError{Err: context.DeadlineExceeded}, instrumentation.DegradeReasonTimeout},
		{"unsupported", fmt.Errorf("%w: %q", calendar.ErrUnsupportedProvider, "caldav"), instrumentation.DegradeReasonUnsupported},
		{"fetch", &calendar.ProviderFetchError{HTTPStatus: 503}, instrumentation.DegradeReasonFetch},
		{"other", errors.New("boom"), instrumentation.DegradeReasonFetch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, degradeReason(tt.err))
		})
	}
}
