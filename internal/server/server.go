package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultHTTPAddr is the default address for the API server.
	DefaultHTTPAddr = ":8080"

	// DefaultReadHeaderTimeout bounds slow clients.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultWriteTimeout must exceed the provider timeout so degraded
	// requests can still be answered.
	DefaultWriteTimeout = 60 * time.Second

	// DefaultIdleTimeout is the keep-alive idle timeout.
	DefaultIdleTimeout = 120 * time.Second
)

// Server is the API HTTP server.
type Server struct {
	httpServer *http.Server
	health     *HealthChecker
	logger     *slog.Logger
}

// NewServer creates a Server serving handler on addr. health may be nil.
func NewServer(addr string, handler http.Handler, health *HealthChecker, logger *slog.Logger) *Server {
	if addr == "" {
		addr = DefaultHTTPAddr
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			WriteTimeout:      DefaultWriteTimeout,
			IdleTimeout:       DefaultIdleTimeout,
		},
		health: health,
		logger: logger,
	}
}

// Start serves until Shutdown. It returns http.ErrServerClosed after a
// graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown fails readiness first, then drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.health != nil {
		s.health.MarkShuttingDown()
	}
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
