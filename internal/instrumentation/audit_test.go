package instrumentation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	return record
}

func TestAvailabilityQueryStatus(t *testing.T) {
	q := NewAvailabilityQuery("caller-1")
	assert.Equal(t, StatusError, q.Status())

	q.CompleteSuccess(4, 1)
	assert.Equal(t, StatusSuccess, q.Status())
	assert.Equal(t, 4, q.FreeSlots)
	assert.Equal(t, 1, q.FailedSources)
	assert.GreaterOrEqual(t, q.Elapsed, time.Duration(0))

	q.CompleteWithError(errors.New("store down"))
	assert.Equal(t, StatusError, q.Status())
	assert.Equal(t, "store down", q.Error)
}

func TestAuditLoggerOmitsIdentitiesByDefault(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)), false)

	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	q := NewAvailabilityQuery("caller-1").
		WithWindow([]string{"alice", "bob"}, start, start.Add(24*time.Hour), 30*time.Minute).
		CompleteSuccess(32, 0)
	audit.LogQuery(context.Background(), q)

	record := decodeRecord(t, &buf)
	assert.Equal(t, "availability_query", record["msg"])
	assert.Equal(t, "INFO", record["level"])
	assert.EqualValues(t, 2, record["participants"])
	assert.EqualValues(t, 32, record["free_slots"])
	assert.NotContains(t, record, "caller")
	assert.NotContains(t, record, "user_ids")
}

func TestAuditLoggerIncludesIdentities(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)), true)

	q := NewAvailabilityQuery("caller-1").
		WithWindow([]string{"alice"}, time.Time{}, time.Time{}, time.Hour).
		CompleteWithError(errors.New("boom"))
	audit.LogQuery(context.Background(), q)

	record := decodeRecord(t, &buf)
	assert.Equal(t, "availability_query_failed", record["msg"])
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "caller-1", record["caller"])
	assert.Equal(t, []any{"alice"}, record["user_ids"])
	assert.Equal(t, "boom", record["error"])
	assert.NotContains(t, record, "free_slots")
}

func TestAvailabilityQueryWithSpanContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "query")
	defer span.End()

	q := NewAvailabilityQuery("caller-1").WithSpanContext(ctx)
	assert.Equal(t, span.SpanContext().TraceID().String(), q.TraceID)
	assert.Equal(t, span.SpanContext().SpanID().String(), q.SpanID)

	empty := NewAvailabilityQuery("caller-1").WithSpanContext(context.Background())
	assert.Empty(t, empty.TraceID)
}

func TestNilAuditLogger(t *testing.T) {
	var audit *AuditLogger
	assert.NotPanics(t, func() {
		audit.LogQuery(context.Background(), NewAvailabilityQuery("x").CompleteSuccess(0, 0))
	})
}
