package store

import (
	"context"
	"time"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/calendar"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/instrumentation"
)

// Instrumented wraps a Store and records per-operation latency.
type Instrumented struct {
	Store
	metrics *instrumentation.Metrics
}

// WithMetrics wraps s so each call is observed by metrics. A nil metrics
// returns s unchanged.
func WithMetrics(s Store, metrics *instrumentation.Metrics) Store {
	if metrics == nil {
		return s
	}
	return &Instrumented{Store: s, metrics: metrics}
}

func (i *Instrumented) observe(ctx context.Context, operation string, start time.Time, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	i.metrics.RecordStoreOperation(ctx, operation, status, time.Since(start))
}

func (i *Instrumented) GetCalendarConnections(ctx context.Context, userID string) ([]calendar.CalendarConnection, error) {
	start := time.Now()
	conns, err := i.Store.GetCalendarConnections(ctx, userID)
	i.observe(ctx, instrumentation.OperationGetConnections, start, err)
	return conns, err
}

func (i *Instrumented) UpdateConnectionToken(ctx context.Context, connectionID, accessToken string, expiresAt time.Time, refreshToken string) error {
	start := time.Now()
	err := i.Store.UpdateConnectionToken(ctx, connectionID, accessToken, expiresAt, refreshToken)
	i.observe(ctx, instrumentation.OperationUpdateToken, start, err)
	return err
}

func (i *Instrumented) UpsertConnection(ctx context.Context, conn calendar.CalendarConnection) (calendar.CalendarConnection, error) {
	start := time.Now()
	out, err := i.Store.UpsertConnection(ctx, conn)
	i.observe(ctx, instrumentation.OperationUpsertConnection, start, err)
	return out, err
}

func (i *Instrumented) DeleteConnection(ctx context.Context, connectionID string) error {
	start := time.Now()
	err := i.Store.DeleteConnection(ctx, connectionID)
	i.observe(ctx, instrumentation.OperationDeleteConnection, start, err)
	return err
}

func (i *Instrumented) Ping(ctx context.Context) error {
	start := time.Now()
	err := i.Store.Ping(ctx)
	i.observe(ctx, instrumentation.OperationPing, start, err)
	return err
}
