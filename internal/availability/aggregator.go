package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/calendar"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/instrumentation"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/logging"
)

// DefaultProviderTimeout bounds one calendar source (token plus fetch).
const DefaultProviderTimeout = 10 * time.Second

// TokenSource hands out access tokens for connections. *token.Session
// implements it.
type TokenSource interface {
	Token(ctx context.Context, conn calendar.CalendarConnection) (string, error)
}

// Aggregator collects and merges one participant's busy intervals.
type Aggregator struct {
	registry *calendar.Registry
	timeout  time.Duration
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithProviderTimeout sets the per-source timeout.
func WithProviderTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithAggregatorMetrics records provider fetches and degraded sources.
func WithAggregatorMetrics(metrics *instrumentation.Metrics) AggregatorOption {
	return func(a *Aggregator) { a.metrics = metrics }
}

// WithAggregatorLogger sets the logger.
func WithAggregatorLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) { a.logger = logger }
}

// NewAggregator creates an Aggregator that resolves adapters from registry.
func NewAggregator(registry *calendar.Registry, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		registry: registry,
		timeout:  DefaultProviderTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type source struct {
	conn       calendar.CalendarConnection
	calendarID string
}

// Aggregate fetches every selected calendar of every sync-enabled connection
// concurrently and merges the results. A failing source contributes no
// intervals and increments FailedSources; Aggregate itself never fails.
func (a *Aggregator) Aggregate(ctx context.Context, userID string, conns []calendar.CalendarConnection, tokens TokenSource, start, end time.Time) calendar.UserAvailability {
	result := calendar.UserAvailability{
		UserID:               userID,
		HasCalendarConnected: len(conns) > 0,
		ConnectionCount:      len(conns),
	}

	var sources []source
	for _, conn := range conns {
		if !conn.SyncEnabled {
			continue
		}
		for _, id := range conn.SelectedCalendarIDs() {
			sources = append(sources, source{conn: conn, calendarID: id})
		}
	}

	fetched := make([][]calendar.BusyInterval, len(sources))
	failed := make([]bool, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			busy, err := a.fetch(ctx, src, tokens, start, end)
			if err != nil {
				failed[i] = true
				a.degrade(ctx, userID, src, err)
				return nil
			}
			fetched[i] = busy
			return nil
		})
	}
	_ = g.Wait()

	var all []calendar.BusyInterval
	for i := range sources {
		if failed[i] {
			result.FailedSources++
			continue
		}
		all = append(all, fetched[i]...)
	}
	result.Busy = calendar.MergeIntervals(all)
	return result
}

func (a *Aggregator) fetch(ctx context.Context, src source, tokens TokenSource, start, end time.Time) ([]calendar.BusyInterval, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	adapter, err := a.registry.Get(src.conn.Provider)
	if err != nil {
		return nil, err
	}

	accessToken, err := tokens.Token(ctx, src.conn)
	if err != nil {
		return nil, withDeadline(ctx, err)
	}

	provider := string(src.conn.Provider)
	ctx, span := instrumentation.StartProviderSpan(ctx, provider, "fetch",
		attribute.String(instrumentation.SpanAttrConnectionID, src.conn.ID),
		attribute.String(instrumentation.SpanAttrCalendarID, src.calendarID),
	)
	defer span.End()

	began := time.Now()
	busy, err := adapter.FetchBusyPeriods(ctx, accessToken, src.calendarID, start, end)
	elapsed := time.Since(began)

	if err != nil {
		var fetchErr *calendar.ProviderFetchError
		status := 0
		if errors.As(err, &fetchErr) {
			status = fetchErr.HTTPStatus
		}
		if status != 0 {
			span.SetAttributes(attribute.Int(instrumentation.SpanAttrHTTPStatus, status))
		}
		err = withDeadline(ctx, err)
		a.metrics.RecordProviderFetch(ctx, provider, instrumentation.StatusClass(status, err), elapsed)
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	a.metrics.RecordProviderFetch(ctx, provider, instrumentation.StatusClass(200, nil), elapsed)
	instrumentation.SetSpanSuccess(span)

	for i := range busy {
		busy[i].ConnectionID = src.conn.ID
	}
	return busy, nil
}

// withDeadline attaches ctx's error to err when the source's context ended
// but err does not carry it. oauth2 reports transport failures with %v,
// which drops context.DeadlineExceeded from the chain.
func withDeadline(ctx context.Context, err error) error {
	ctxErr := ctx.Err()
	if ctxErr == nil || errors.Is(err, ctxErr) {
		return err
	}
	return fmt.Errorf("%w: %w", ctxErr, err)
}

func (a *Aggregator) degrade(ctx context.Context, userID string, src source, err error) {
	reason := degradeReason(err)
	a.metrics.RecordDegradedSource(ctx, string(src.conn.Provider), reason)

	logging.WithConnection(a.logger, string(src.conn.Provider), src.conn.ID).Warn("calendar source degraded to empty busy set",
		logging.UserHash(userID),
		logging.CalendarID(src.calendarID),
		slog.String("reason", reason),
		logging.Err(err))
}

func degradeReason(err error) string {
	var authErr *calendar.ProviderAuthError
	switch {
	case errors.Is(err, calendar.ErrTokenExpiredNoRefresh):
		return instrumentation.DegradeReasonNoRefresh
	case errors.Is(err, context.DeadlineExceeded):
		return instrumentation.DegradeReasonTimeout
	case errors.As(err, &authErr):
		return instrumentation.DegradeReasonAuth
	case errors.Is(err, calendar.ErrUnsupportedProvider):
		return instrumentation.DegradeReasonUnsupported
	default:
		return instrumentation.DegradeReasonFetch
	}
}
