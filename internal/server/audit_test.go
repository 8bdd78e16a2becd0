package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/availability"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/instrumentation"
)

func TestAvailability_WritesAuditRecord(t *testing.T) {
	var buf bytes.Buffer
	audit := instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)), true)

	router := NewRouter(RouterConfig{
		Finder: finderFunc(func(_ context.Context, _ availability.Request) (*availability.Result, error) {
			return &availability.Result{
				FreeSlots: make([]availability.TimeRange, 3),
				Users: []availability.UserSummary{
					{UserID: "alice", FailedSources: 1},
					{UserID: "bob", FailedSources: 2},
				},
			}, nil
		}),
		Authenticator: newTestAuthenticator(t),
		Audit:         audit,
	})

	rec := postJSON(t, router, validToken(t), map[string]any{
		"userIds":   []string{"alice", "bob"},
		"startDate": "2024-06-03T00:00:00Z",
		"endDate":   "2024-06-04T00:00:00Z",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "availability_query", record["msg"])
	assert.Equal(t, "caller-1", record["caller"])
	assert.EqualValues(t, 2, record["participants"])
	assert.EqualValues(t, 3, record["free_slots"])
	assert.EqualValues(t, 3, record["failed_sources"])
	assert.EqualValues(t, float64(30*time.Minute), record["meeting_duration"])
}

func TestAvailability_AuditsFailures(t *testing.T) {
	var buf bytes.Buffer
	audit := instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)), false)

	router := NewRouter(RouterConfig{
		Finder: finderFunc(func(context.Context, availability.Request) (*availability.Result, error) {
			return nil, errors.New("boom")
		}),
		Authenticator: newTestAuthenticator(t),
		Audit:         audit,
	})

	rec := postJSON(t, router, validToken(t), map[string]any{
		"userIds":   []string{"alice"},
		"startDate": "2024-06-03T00:00:00Z",
		"endDate":   "2024-06-04T00:00:00Z",
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "availability_query_failed", record["msg"])
	assert.Equal(t, "boom", record["error"])
	assert.NotContains(t, record, "caller")
}
