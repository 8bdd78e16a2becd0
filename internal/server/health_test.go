package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthRouter(h *HealthChecker) http.Handler {
	r := chi.NewRouter()
	h.RegisterHealthEndpoints(r)
	return r
}

func get(t *testing.T, handler http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker(pingFunc(func(context.Context) error { return errors.New("down") }))

	rec, body := get(t, healthRouter(h), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, healthStatusOK, body["status"])
}

func TestHealthChecker_Readiness(t *testing.T) {
	var storeErr error
	h := NewHealthChecker(pingFunc(func(context.Context) error { return storeErr }))
	router := healthRouter(h)

	rec, body := get(t, router, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, healthStatusOK, body["checks"].(map[string]any)["store"])

	storeErr = errors.New("connection refused")
	rec, body = get(t, router, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, healthStatusUnavailable, body["checks"].(map[string]any)["store"])

	storeErr = nil
	h.SetReady(false)
	rec, _ = get(t, router, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, h.IsReady())
}

func TestHealthChecker_ShuttingDown(t *testing.T) {
	h := NewHealthChecker(nil)
	router := healthRouter(h)

	rec, body := get(t, router, "/healthz/detailed")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["uptime"])
	assert.NotContains(t, body["checks"], "store")

	h.MarkShuttingDown()

	rec, body = get(t, router, "/healthz/detailed")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, healthStatusShuttingDown, body["status"])

	rec, _ = get(t, router, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_HealthEndpointsSkipAuth(t *testing.T) {
	router := NewRouter(RouterConfig{
		Authenticator: newTestAuthenticator(t),
		Health:        NewHealthChecker(nil),
	})

	rec, _ := get(t, router, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}
