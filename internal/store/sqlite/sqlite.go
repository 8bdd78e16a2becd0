// Package sqlite implements store.Store on an embedded SQLite database using
// the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/calendar"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/store"
)

const driverName = "sqlite"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS calendar_connections (
		id                  TEXT PRIMARY KEY,
		user_id             TEXT NOT NULL,
		provider            TEXT NOT NULL,
		provider_account_id TEXT NOT NULL,
		access_token        TEXT NOT NULL DEFAULT '',
		refresh_token       TEXT NOT NULL DEFAULT '',
		token_expires_at    INTEGER NOT NULL DEFAULT 0,
		calendars           TEXT NOT NULL DEFAULT '[]',
		sync_enabled        INTEGER NOT NULL DEFAULT 1,
		last_synced_at      INTEGER NOT NULL DEFAULT 0,
		UNIQUE (user_id, provider, provider_account_id)
	)`,
	`CREATE INDEX IF NOT EXISTS calendar_connections_user_id_idx ON calendar_connections (user_id)`,
}

// row mirrors the calendar_connections table. Times are unix milliseconds,
// zero meaning unset.
type row struct {
	ID                string `db:"id"`
	UserID            string `db:"user_id"`
	Provider          string `db:"provider"`
	ProviderAccountID string `db:"provider_account_id"`
	AccessToken       string `db:"access_token"`
	RefreshToken      string `db:"refresh_token"`
	TokenExpiresAt    int64  `db:"token_expires_at"`
	Calendars         string `db:"calendars"`
	SyncEnabled       bool   `db:"sync_enabled"`
	LastSyncedAt      int64  `db:"last_synced_at"`
}

// Store is a SQLite backed store.Store.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the database at path and applies
// migrations. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlx.Open(driverName, dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent token refreshes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply migration %d: %w", i, err)
		}
	}
	return s, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// GetCalendarConnections implements store.Store.
func (s *Store) GetCalendarConnections(ctx context.Context, userID string) ([]calendar.CalendarConnection, error) {
	var rows []row
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM calendar_connections WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, unavailable("list connections", err)
	}

	conns := make([]calendar.CalendarConnection, 0, len(rows))
	for _, r := range rows {
		conn, err := r.connection()
		if err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}
	return conns, nil
}

// UpdateConnectionToken implements store.Store.
func (s *Store) UpdateConnectionToken(ctx context.Context, connectionID, accessToken string, expiresAt time.Time, refreshToken string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE calendar_connections
		SET access_token = ?,
		    token_expires_at = ?,
		    refresh_token = COALESCE(NULLIF(?, ''), refresh_token)
		WHERE id = ?`,
		accessToken, millis(expiresAt), refreshToken, connectionID)
	if err != nil {
		return unavailable("update token", err)
	}
	return requireAffected(res, connectionID)
}

// UpsertConnection implements store.Store.
func (s *Store) UpsertConnection(ctx context.Context, conn calendar.CalendarConnection) (calendar.CalendarConnection, error) {
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	r, err := toRow(conn)
	if err != nil {
		return calendar.CalendarConnection{}, err
	}

	query := `
		INSERT INTO calendar_connections (
			id, user_id, provider, provider_account_id, access_token, refresh_token,
			token_expires_at, calendars, sync_enabled, last_synced_at
		) VALUES (
			:id, :user_id, :provider, :provider_account_id, :access_token, :refresh_token,
			:token_expires_at, :calendars, :sync_enabled, :last_synced_at
		)
		ON CONFLICT (user_id, provider, provider_account_id) DO UPDATE SET
			access_token     = excluded.access_token,
			refresh_token    = COALESCE(NULLIF(excluded.refresh_token, ''), calendar_connections.refresh_token),
			token_expires_at = excluded.token_expires_at,
			calendars        = excluded.calendars,
			sync_enabled     = excluded.sync_enabled,
			last_synced_at   = excluded.last_synced_at
		RETURNING id, refresh_token`

	named, args, err := s.db.BindNamed(query, r)
	if err != nil {
		return calendar.CalendarConnection{}, fmt.Errorf("failed to bind upsert: %w", err)
	}
	if err := s.db.QueryRowxContext(ctx, named, args...).Scan(&conn.ID, &conn.RefreshToken); err != nil {
		return calendar.CalendarConnection{}, unavailable("upsert connection", err)
	}
	if conn.Calendars == nil {
		conn.Calendars = []calendar.CalendarRef{}
	}
	return conn, nil
}

// DeleteConnection implements store.Store.
func (s *Store) DeleteConnection(ctx context.Context, connectionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM calendar_connections WHERE id = ?`, connectionID)
	if err != nil {
		return unavailable("delete connection", err)
	}
	return requireAffected(res, connectionID)
}

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (r row) connection() (calendar.CalendarConnection, error) {
	conn := calendar.CalendarConnection{
		ID:                r.ID,
		UserID:            r.UserID,
		Provider:          calendar.Provider(r.Provider),
		ProviderAccountID: r.ProviderAccountID,
		AccessToken:       r.AccessToken,
		RefreshToken:      r.RefreshToken,
		TokenExpiresAt:    fromMillis(r.TokenExpiresAt),
		SyncEnabled:       r.SyncEnabled,
		LastSyncedAt:      fromMillis(r.LastSyncedAt),
	}
	if err := json.Unmarshal([]byte(r.Calendars), &conn.Calendars); err != nil {
		return calendar.CalendarConnection{}, fmt.Errorf("connection %s: invalid calendars column: %w", r.ID, err)
	}
	return conn, nil
}

func toRow(conn calendar.CalendarConnection) (row, error) {
	refs := conn.Calendars
	if refs == nil {
		refs = []calendar.CalendarRef{}
	}
	calendars, err := json.Marshal(refs)
	if err != nil {
		return row{}, fmt.Errorf("failed to encode calendars: %w", err)
	}
	return row{
		ID:                conn.ID,
		UserID:            conn.UserID,
		Provider:          string(conn.Provider),
		ProviderAccountID: conn.ProviderAccountID,
		AccessToken:       conn.AccessToken,
		RefreshToken:      conn.RefreshToken,
		TokenExpiresAt:    millis(conn.TokenExpiresAt),
		Calendars:         string(calendars),
		SyncEnabled:       conn.SyncEnabled,
		LastSyncedAt:      millis(conn.LastSyncedAt),
	}, nil
}

func requireAffected(res sql.Result, connectionID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("connection %s: %w", connectionID, store.ErrNotFound)
	}
	return nil
}

func unavailable(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	return fmt.Errorf("%w: %s: %w", store.ErrUnavailable, op, err)
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
