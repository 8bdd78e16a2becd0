package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/calendar"
)

// Memory is an in-memory Store. Returned connections are copies; callers may
// modify them freely.
type Memory struct {
	mu          sync.RWMutex
	connections map[string]calendar.CalendarConnection // connection id -> record
	byKey       map[ConnectionKey]string               // natural key -> connection id
	closed      bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		connections: make(map[string]calendar.CalendarConnection),
		byKey:       make(map[ConnectionKey]string),
	}
}

// GetCalendarConnections implements Store.
func (m *Memory) GetCalendarConnections(_ context.Context, userID string) ([]calendar.CalendarConnection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrUnavailable
	}

	out := []calendar.CalendarConnection{}
	for _, conn := range m.connections {
		if conn.UserID == userID {
			out = append(out, clone(conn))
		}
	}
	slices.SortFunc(out, func(a, b calendar.CalendarConnection) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// UpdateConnectionToken implements Store.
func (m *Memory) UpdateConnectionToken(_ context.Context, connectionID, accessToken string, expiresAt time.Time, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrUnavailable
	}

	conn, ok := m.connections[connectionID]
	if !ok {
		return fmt.Errorf("connection %s: %w", connectionID, ErrNotFound)
	}
	conn.AccessToken = accessToken
	conn.TokenExpiresAt = expiresAt
	if refreshToken != "" {
		conn.RefreshToken = refreshToken
	}
	m.connections[connectionID] = conn
	return nil
}

// UpsertConnection implements Store.
func (m *Memory) UpsertConnection(_ context.Context, conn calendar.CalendarConnection) (calendar.CalendarConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return calendar.CalendarConnection{}, ErrUnavailable
	}

	key := KeyOf(conn)
	if id, ok := m.byKey[key]; ok {
		existing := m.connections[id]
		conn.ID = id
		if conn.RefreshToken == "" {
			conn.RefreshToken = existing.RefreshToken
		}
	} else if conn.ID == "" {
		conn.ID = uuid.NewString()
	}

	conn = clone(conn)
	m.connections[conn.ID] = conn
	m.byKey[key] = conn.ID
	return clone(conn), nil
}

// DeleteConnection implements Store.
func (m *Memory) DeleteConnection(_ context.Context, connectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrUnavailable
	}

	conn, ok := m.connections[connectionID]
	if !ok {
		return fmt.Errorf("connection %s: %w", connectionID, ErrNotFound)
	}
	delete(m.connections, connectionID)
	delete(m.byKey, KeyOf(conn))
	return nil
}

// Ping implements Store.
func (m *Memory) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrUnavailable
	}
	return nil
}

// Close marks the store unavailable. Subsequent calls fail with ErrUnavailable.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func clone(conn calendar.CalendarConnection) calendar.CalendarConnection {
	conn.Calendars = slices.Clone(conn.Calendars)
	return conn
}
