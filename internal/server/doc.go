// Package server exposes the availability engine over HTTP.
//
// # Routes
//
//	POST /meetings/availability   bearer JWT required, rate limited per client IP
//	GET  /healthz                 liveness
//	GET  /readyz                  readiness, pings the connection store
//	GET  /healthz/detailed        uptime and per-check status
//
// Prometheus metrics are served by a separate MetricsServer so operational
// data never shares a listener with application traffic.
//
// # Errors
//
// Error responses are JSON objects of the form
//
//	{"error": "validation_error", "message": "invalid duration: ...", "field": "duration"}
//
// with 400 for validation failures, 401 for missing or invalid credentials,
// 429 when the client exceeds its rate limit and 500 when the connection
// store is unavailable.
package server
