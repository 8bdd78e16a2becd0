// Package instrumentation provides OpenTelemetry instrumentation for the
// scheduling service.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for HTTP requests, provider fetches, token refreshes
//     and availability computations
//   - Distributed tracing for availability requests and provider calls
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, route, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Provider Metrics:
//   - provider_fetch_total: Counter of calendar fetches by provider and status class
//   - provider_fetch_duration_seconds: Histogram of calendar fetch durations
//   - degraded_sources_total: Counter of sources absorbed as empty busy sets
//   - token_refresh_total: Counter of token refresh attempts by provider and result
//
// Availability Metrics:
//   - availability_requests_total: Counter of computations by status
//   - availability_duration_seconds: Histogram of end-to-end computation time
//   - availability_free_slots: Histogram of slots returned per request
//
// Store Metrics:
//   - store_operation_duration_seconds: Histogram of connection store latency
//
// # Tracing
//
// Spans are created for:
//   - inbound HTTP requests (otelhttp)
//   - availability.compute
//   - provider.<name>.fetch and provider.<name>.refresh
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: schedsvc)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordProviderFetch(ctx, "google", instrumentation.StatusClass(200, nil), time.Since(start))
package instrumentation
