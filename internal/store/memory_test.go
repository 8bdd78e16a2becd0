package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/calendar"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/instrumentation"
)

func testConnection() calendar.CalendarConnection {
	return calendar.CalendarConnection{
		UserID:            "user-a",
		Provider:          calendar.ProviderGoogle,
		ProviderAccountID: "a@example.com",
		AccessToken:       "access",
		RefreshToken:      "refresh",
		TokenExpiresAt:    time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		Calendars:         []calendar.CalendarRef{{ID: "primary", Selected: true}},
		SyncEnabled:       true,
	}
}

func TestMemory_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	stored, err := s.UpsertConnection(ctx, testConnection())
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)

	conns, err := s.GetCalendarConnections(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, stored, conns[0])

	none, err := s.GetCalendarConnections(ctx, "user-b")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemory_UpsertIsUniquePerNaturalKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	first, err := s.UpsertConnection(ctx, testConnection())
	require.NoError(t, err)

	update := testConnection()
	update.AccessToken = "access-2"
	update.RefreshToken = ""
	second, err := s.UpsertConnection(ctx, update)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "access-2", second.AccessToken)
	assert.Equal(t, "refresh", second.RefreshToken, "empty refresh token keeps the stored one")

	conns, err := s.GetCalendarConnections(ctx, "user-a")
	require.NoError(t, err)
	assert.Len(t, conns, 1)
}

func TestMemory_UpdateConnectionToken(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	stored, err := s.UpsertConnection(ctx, testConnection())
	require.NoError(t, err)

	expiry := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpdateConnectionToken(ctx, stored.ID, "access-2", expiry, ""))

	conns, _ := s.GetCalendarConnections(ctx, "user-a")
	assert.Equal(t, "access-2", conns[0].AccessToken)
	assert.Equal(t, expiry, conns[0].TokenExpiresAt)
	assert.Equal(t, "refresh", conns[0].RefreshToken)

	require.NoError(t, s.UpdateConnectionToken(ctx, stored.ID, "access-3", expiry, "refresh-2"))
	conns, _ = s.GetCalendarConnections(ctx, "user-a")
	assert.Equal(t, "refresh-2", conns[0].RefreshToken)

	err = s.UpdateConnectionToken(ctx, "missing", "x", expiry, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	_, err := s.UpsertConnection(ctx, testConnection())
	require.NoError(t, err)

	conns, _ := s.GetCalendarConnections(ctx, "user-a")
	conns[0].Calendars[0].Selected = false

	again, _ := s.GetCalendarConnections(ctx, "user-a")
	assert.True(t, again[0].Calendars[0].Selected)
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	stored, err := s.UpsertConnection(ctx, testConnection())
	require.NoError(t, err)

	require.NoError(t, s.DeleteConnection(ctx, stored.ID))
	assert.ErrorIs(t, s.DeleteConnection(ctx, stored.ID), ErrNotFound)

	// Natural key is free again.
	again, err := s.UpsertConnection(ctx, testConnection())
	require.NoError(t, err)
	assert.NotEqual(t, stored.ID, again.ID)
}

func TestMemory_ClosedIsUnavailable(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Close())

	_, err := s.GetCalendarConnections(ctx, "user-a")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, s.Ping(ctx), ErrUnavailable)
}

func TestWithMetrics(t *testing.T) {
	s := NewMemory()
	assert.Same(t, s, WithMetrics(s, nil))

	wrapped := WithMetrics(s, &instrumentation.Metrics{})
	_, ok := wrapped.(*Instrumented)
	require.True(t, ok)

	ctx := context.Background()
	stored, err := wrapped.UpsertConnection(ctx, testConnection())
	require.NoError(t, err)
	conns, err := wrapped.GetCalendarConnections(ctx, "user-a")
	require.NoError(t, err)
	assert.Len(t, conns, 1)
	require.NoError(t, wrapped.UpdateConnectionToken(ctx, stored.ID, "a", time.Now(), ""))
	require.NoError(t, wrapped.Ping(ctx))
	require.NoError(t, wrapped.DeleteConnection(ctx, stored.ID))
}
