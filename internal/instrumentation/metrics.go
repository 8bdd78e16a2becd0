package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrProvider  = "provider"
	attrResult    = "result"
	attrReason    = "reason"
	attrUsers     = "users"
)

// Label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusUnknown = "unknown"
	StatusInvalid = "invalid"

	TokenResultRefreshed = "refreshed"
	TokenResultFailure   = "failure"
	TokenResultNoRefresh = "no_refresh_token"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Provider metrics
	providerFetchTotal    metric.Int64Counter
	providerFetchDuration metric.Float64Histogram
	degradedSourcesTotal  metric.Int64Counter

	// OAuth metrics
	tokenRefreshTotal metric.Int64Counter

	// Availability metrics
	availabilityRequestsTotal metric.Int64Counter
	availabilityDuration      metric.Float64Histogram
	freeSlots                 metric.Int64Histogram

	// Store metrics
	storeOperationDuration metric.Float64Histogram

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.providerFetchTotal, err = meter.Int64Counter(
		"provider_fetch_total",
		metric.WithDescription("Total number of calendar provider event fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_fetch_total counter: %w", err)
	}

	m.providerFetchDuration, err = meter.Float64Histogram(
		"provider_fetch_duration_seconds",
		metric.WithDescription("Calendar provider fetch duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_fetch_duration_seconds histogram: %w", err)
	}

	m.degradedSourcesTotal, err = meter.Int64Counter(
		"degraded_sources_total",
		metric.WithDescription("Calendar sources that degraded to an empty busy set"),
		metric.WithUnit("{source}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create degraded_sources_total counter: %w", err)
	}

	m.tokenRefreshTotal, err = meter.Int64Counter(
		"token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_refresh_total counter: %w", err)
	}

	m.availabilityRequestsTotal, err = meter.Int64Counter(
		"availability_requests_total",
		metric.WithDescription("Total number of availability computations"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create availability_requests_total counter: %w", err)
	}

	m.availabilityDuration, err = meter.Float64Histogram(
		"availability_duration_seconds",
		metric.WithDescription("End-to-end availability computation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create availability_duration_seconds histogram: %w", err)
	}

	m.freeSlots, err = meter.Int64Histogram(
		"availability_free_slots",
		metric.WithDescription("Number of free slots returned per availability request"),
		metric.WithUnit("{slot}"),
		metric.WithExplicitBucketBoundaries(0, 1, 5, 10, 25, 50, 100, 250, 500),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create availability_free_slots histogram: %w", err)
	}

	m.storeOperationDuration, err = meter.Float64Histogram(
		"store_operation_duration_seconds",
		metric.WithDescription("Connection store operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store_operation_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
// path should be a route pattern, never a raw URL.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordProviderFetch records one calendar fetch against a provider.
//
// Parameters:
//   - provider: calendar provider (google, microsoft)
//   - status: StatusClass of the HTTP outcome (2xx, 4xx, 5xx, timeout, ...)
//   - duration: time taken including pagination
func (m *Metrics) RecordProviderFetch(ctx context.Context, provider, status string, duration time.Duration) {
	if m == nil || m.providerFetchTotal == nil || m.providerFetchDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrProvider, provider),
		attribute.String(attrStatus, status),
	}

	m.providerFetchTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.providerFetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordDegradedSource records a calendar source whose failure was absorbed.
// Reason should be one of the DegradeReason* constants.
func (m *Metrics) RecordDegradedSource(ctx context.Context, provider, reason string) {
	if m == nil || m.degradedSourcesTotal == nil {
		return // Instrumentation not initialized
	}

	m.degradedSourcesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrProvider, provider),
		attribute.String(attrReason, reason),
	))
}

// RecordTokenRefresh records an OAuth token refresh attempt with result.
// Result should be one of the TokenResult* constants.
func (m *Metrics) RecordTokenRefresh(ctx context.Context, provider, result string) {
	if m == nil || m.tokenRefreshTotal == nil {
		return // Instrumentation not initialized
	}

	m.tokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrProvider, provider),
		attribute.String(attrResult, result),
	))
}

// RecordAvailabilityRequest records one availability computation.
// The participant count is only attached when detailed labels are enabled.
func (m *Metrics) RecordAvailabilityRequest(ctx context.Context, status string, users, slots int, duration time.Duration) {
	if m == nil || m.availabilityRequestsTotal == nil || m.availabilityDuration == nil || m.freeSlots == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels {
		attrs = append(attrs, attribute.Int(attrUsers, users))
	}

	m.availabilityRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.availabilityDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if status == StatusSuccess {
		m.freeSlots.Record(ctx, int64(slots))
	}
}

// RecordStoreOperation records the latency of a connection store call.
func (m *Metrics) RecordStoreOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.storeOperationDuration == nil {
		return // Instrumentation not initialized
	}

	m.storeOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	))
}
