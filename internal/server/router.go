package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/instrumentation"
)

// AvailabilityRoute is the path of the availability endpoint.
const AvailabilityRoute = "/meetings/availability"

// RouterConfig holds the router's dependencies.
type RouterConfig struct {
	Finder        AvailabilityFinder
	Authenticator *Authenticator
	// RateLimiter is optional.
	RateLimiter *RateLimiter
	Health      *HealthChecker
	Metrics     *instrumentation.Metrics
	// Audit is optional.
	Audit  *instrumentation.AuditLogger
	Logger *slog.Logger
	// TrustProxy honors X-Forwarded-For and X-Real-IP for the client address.
	TrustProxy bool
}

// NewRouter wires the API and health routes.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(observe(cfg.Metrics, logger))

	if cfg.Health != nil {
		cfg.Health.RegisterHealthEndpoints(r)
	}

	r.Group(func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware)
		}
		r.Use(cfg.Authenticator.Middleware)
		r.Method(http.MethodPost, AvailabilityRoute, &availabilityHandler{
			finder: cfg.Finder,
			audit:  cfg.Audit,
			logger: logger,
		})
	})

	return instrumentation.WrapHandler(r, "schedsvc")
}
