// Package store defines the persistence contract for calendar connections and
// provides an in-memory implementation. SQL backed implementations live in the
// postgres and sqlite subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/calendar"
)

var (
	// ErrNotFound indicates a missing connection.
	ErrNotFound = errors.New("record not found")

	// ErrUnavailable indicates the backing store could not be reached or
	// failed to answer. Callers treat it as a server-side outage.
	ErrUnavailable = errors.New("connection store unavailable")
)

// Store persists calendar connections.
type Store interface {
	// GetCalendarConnections returns every connection owned by userID. A user
	// without connections yields an empty slice and no error.
	GetCalendarConnections(ctx context.Context, userID string) ([]calendar.CalendarConnection, error)

	// UpdateConnectionToken stores refreshed credentials. An empty
	// refreshToken leaves the stored refresh token unchanged.
	UpdateConnectionToken(ctx context.Context, connectionID, accessToken string, expiresAt time.Time, refreshToken string) error

	// UpsertConnection inserts conn, or updates the existing record with the
	// same (UserID, Provider, ProviderAccountID). The stored record is returned.
	UpsertConnection(ctx context.Context, conn calendar.CalendarConnection) (calendar.CalendarConnection, error)

	// DeleteConnection removes a connection by id.
	DeleteConnection(ctx context.Context, connectionID string) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// ConnectionKey is the natural key of a connection.
type ConnectionKey struct {
	UserID            string
	Provider          calendar.Provider
	ProviderAccountID string
}

// KeyOf returns the natural key of conn.
func KeyOf(conn calendar.CalendarConnection) ConnectionKey {
	return ConnectionKey{
		UserID:            conn.UserID,
		Provider:          conn.Provider,
		ProviderAccountID: conn.ProviderAccountID,
	}
}
