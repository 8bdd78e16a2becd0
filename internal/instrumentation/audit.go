package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// AvailabilityQuery captures one availability computation for audit logging.
//
// # Privacy Considerations
//
// Caller and UserIDs identify people. LogAttrs omits them unless the
// AuditLogger is configured to include identities.
type AvailabilityQuery struct {
	// Caller is the authenticated subject that issued the query.
	Caller string

	UserIDs     []string
	WindowStart time.Time
	WindowEnd   time.Time
	Duration    time.Duration

	// Outcome
	FreeSlots     int
	FailedSources int
	StartTime     time.Time
	Elapsed       time.Duration
	Success       bool
	Error         string

	// Tracing context
	TraceID string
	SpanID  string
}

// NewAvailabilityQuery starts timing a query issued by caller.
func NewAvailabilityQuery(caller string) *AvailabilityQuery {
	return &AvailabilityQuery{
		Caller:    caller,
		StartTime: time.Now(),
	}
}

// WithWindow records the requested participants and search window.
func (q *AvailabilityQuery) WithWindow(userIDs []string, start, end time.Time, duration time.Duration) *AvailabilityQuery {
	q.UserIDs = userIDs
	q.WindowStart = start
	q.WindowEnd = end
	q.Duration = duration
	return q
}

// WithSpanContext extracts trace context from the current span.
func (q *AvailabilityQuery) WithSpanContext(ctx context.Context) *AvailabilityQuery {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		q.TraceID = span.SpanContext().TraceID().String()
		q.SpanID = span.SpanContext().SpanID().String()
	}
	return q
}

// CompleteSuccess marks the query as answered.
func (q *AvailabilityQuery) CompleteSuccess(freeSlots, failedSources int) *AvailabilityQuery {
	q.Elapsed = time.Since(q.StartTime)
	q.Success = true
	q.FreeSlots = freeSlots
	q.FailedSources = failedSources
	return q
}

// CompleteWithError marks the query as failed.
func (q *AvailabilityQuery) CompleteWithError(err error) *AvailabilityQuery {
	q.Elapsed = time.Since(q.StartTime)
	q.Success = false
	if err != nil {
		q.Error = err.Error()
	}
	return q
}

// Status returns "success" or "error" based on the Success field.
func (q *AvailabilityQuery) Status() string {
	if q.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the audit attributes. Identities are only included when
// includeIdentities is set.
func (q *AvailabilityQuery) LogAttrs(includeIdentities bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.Int("participants", len(q.UserIDs)),
		slog.Time("window_start", q.WindowStart),
		slog.Time("window_end", q.WindowEnd),
		slog.Duration("meeting_duration", q.Duration),
		slog.Duration("elapsed", q.Elapsed),
		slog.String("status", q.Status()),
	}
	if includeIdentities {
		attrs = append(attrs,
			slog.String("caller", q.Caller),
			slog.Any("user_ids", q.UserIDs),
		)
	}
	if q.Success {
		attrs = append(attrs,
			slog.Int("free_slots", q.FreeSlots),
			slog.Int("failed_sources", q.FailedSources),
		)
	}
	if q.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", q.TraceID))
	}
	if q.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", q.SpanID))
	}
	if q.Error != "" {
		attrs = append(attrs, slog.String("error", q.Error))
	}
	return attrs
}

// AuditLogger writes one structured record per availability query.
type AuditLogger struct {
	logger            *slog.Logger
	includeIdentities bool
}

// NewAuditLogger creates an AuditLogger. A nil logger uses slog.Default.
func NewAuditLogger(logger *slog.Logger, includeIdentities bool) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger, includeIdentities: includeIdentities}
}

// LogQuery logs q. It is a no-op on a nil AuditLogger.
func (al *AuditLogger) LogQuery(ctx context.Context, q *AvailabilityQuery) {
	if al == nil || q == nil {
		return
	}

	attrs := q.LogAttrs(al.includeIdentities)
	if q.Success {
		al.logger.LogAttrs(ctx, slog.LevelInfo, "availability_query", attrs...)
	} else {
		al.logger.LogAttrs(ctx, slog.LevelWarn, "availability_query_failed", attrs...)
	}
}
