// Package postgres implements store.Store on PostgreSQL using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/calendar"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/store"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS calendar_connections (
		id                  TEXT PRIMARY KEY,
		user_id             TEXT NOT NULL,
		provider            TEXT NOT NULL,
		provider_account_id TEXT NOT NULL,
		access_token        TEXT NOT NULL DEFAULT '',
		refresh_token       TEXT NOT NULL DEFAULT '',
		token_expires_at    TIMESTAMPTZ,
		calendars           JSONB NOT NULL DEFAULT '[]',
		sync_enabled        BOOLEAN NOT NULL DEFAULT TRUE,
		last_synced_at      TIMESTAMPTZ,
		UNIQUE (user_id, provider, provider_account_id)
	)`,
	`CREATE INDEX IF NOT EXISTS calendar_connections_user_id_idx ON calendar_connections (user_id)`,
}

const selectConnections = `
SELECT id, user_id, provider, provider_account_id, access_token, refresh_token,
       token_expires_at, calendars, sync_enabled, last_synced_at
FROM calendar_connections
WHERE user_id = $1
ORDER BY id`

const updateToken = `
UPDATE calendar_connections
SET access_token = $2,
    token_expires_at = $3,
    refresh_token = COALESCE(NULLIF($4::text, ''), refresh_token)
WHERE id = $1`

const upsertConnection = `
INSERT INTO calendar_connections (
    id, user_id, provider, provider_account_id, access_token, refresh_token,
    token_expires_at, calendars, sync_enabled, last_synced_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (user_id, provider, provider_account_id) DO UPDATE SET
    access_token     = EXCLUDED.access_token,
    refresh_token    = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), calendar_connections.refresh_token),
    token_expires_at = EXCLUDED.token_expires_at,
    calendars        = EXCLUDED.calendars,
    sync_enabled     = EXCLUDED.sync_enabled,
    last_synced_at   = EXCLUDED.last_synced_at
RETURNING id, refresh_token`

// Store is a PostgreSQL backed store.Store.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to dsn, verifies connectivity and applies migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", i, err)
		}
	}
	return nil
}

// GetCalendarConnections implements store.Store.
func (s *Store) GetCalendarConnections(ctx context.Context, userID string) ([]calendar.CalendarConnection, error) {
	rows, err := s.pool.Query(ctx, selectConnections, userID)
	if err != nil {
		return nil, unavailable("list connections", err)
	}
	defer rows.Close()

	conns := []calendar.CalendarConnection{}
	for rows.Next() {
		var (
			conn         calendar.CalendarConnection
			provider     string
			expiresAt    *time.Time
			lastSyncedAt *time.Time
			calendars    []byte
		)
		if err := rows.Scan(&conn.ID, &conn.UserID, &provider, &conn.ProviderAccountID,
			&conn.AccessToken, &conn.RefreshToken, &expiresAt, &calendars,
			&conn.SyncEnabled, &lastSyncedAt); err != nil {
			return nil, unavailable("scan connection", err)
		}
		conn.Provider = calendar.Provider(provider)
		if expiresAt != nil {
			conn.TokenExpiresAt = *expiresAt
		}
		if lastSyncedAt != nil {
			conn.LastSyncedAt = *lastSyncedAt
		}
		if err := json.Unmarshal(calendars, &conn.Calendars); err != nil {
			return nil, fmt.Errorf("connection %s: invalid calendars column: %w", conn.ID, err)
		}
		conns = append(conns, conn)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list connections", err)
	}
	return conns, nil
}

// UpdateConnectionToken implements store.Store.
func (s *Store) UpdateConnectionToken(ctx context.Context, connectionID, accessToken string, expiresAt time.Time, refreshToken string) error {
	tag, err := s.pool.Exec(ctx, updateToken, connectionID, accessToken, expiresAt, refreshToken)
	if err != nil {
		return unavailable("update token", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("connection %s: %w", connectionID, store.ErrNotFound)
	}
	return nil
}

// UpsertConnection implements store.Store.
func (s *Store) UpsertConnection(ctx context.Context, conn calendar.CalendarConnection) (calendar.CalendarConnection, error) {
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	if conn.Calendars == nil {
		conn.Calendars = []calendar.CalendarRef{}
	}
	calendars, err := json.Marshal(conn.Calendars)
	if err != nil {
		return calendar.CalendarConnection{}, fmt.Errorf("failed to encode calendars: %w", err)
	}

	err = s.pool.QueryRow(ctx, upsertConnection,
		conn.ID, conn.UserID, string(conn.Provider), conn.ProviderAccountID,
		conn.AccessToken, conn.RefreshToken, nullTime(conn.TokenExpiresAt),
		calendars, conn.SyncEnabled, nullTime(conn.LastSyncedAt),
	).Scan(&conn.ID, &conn.RefreshToken)
	if err != nil {
		return calendar.CalendarConnection{}, unavailable("upsert connection", err)
	}
	return conn, nil
}

// DeleteConnection implements store.Store.
func (s *Store) DeleteConnection(ctx context.Context, connectionID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM calendar_connections WHERE id = $1`, connectionID)
	if err != nil {
		return unavailable("delete connection", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("connection %s: %w", connectionID, store.ErrNotFound)
	}
	return nil
}

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func unavailable(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	return fmt.Errorf("%w: %s: %w", store.ErrUnavailable, op, err)
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
