package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/instrumentation"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/server"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/store"
)

// serveConfig is the fully resolved configuration of the serve command.
type serveConfig struct {
	HTTPAddr  string
	Metrics   MetricsConfig
	Store     StoreConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Engine    engineConfig
	Debug     bool
	// AuditIdentities adds caller and participant ids to audit records.
	AuditIdentities bool
}

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the availability HTTP service",
		Long: `Start the HTTP service answering POST /meetings/availability.

Callers authenticate with an HS256 bearer JWT signed with --jwt-secret.
Health endpoints (/healthz, /readyz, /healthz/detailed) are served on the
API port; Prometheus metrics on --metrics-addr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveServeConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().String("http-addr", server.DefaultHTTPAddr, "HTTP listen address. Can also use HTTP_ADDR env var.")
	cmd.Flags().String("jwt-secret", "", "HS256 secret used to verify caller bearer tokens. Can also use JWT_SECRET env var.")
	cmd.Flags().String("jwt-issuer", "", "Required iss claim of caller tokens (optional). Can also use JWT_ISSUER env var.")
	cmd.Flags().Bool("trust-proxy", false, "Trust X-Forwarded-For and X-Real-IP for client addresses. Can also use TRUST_PROXY env var.")
	cmd.Flags().Float64("rate-limit", 10, "Requests per second allowed per client IP, 0 disables. Can also use RATE_LIMIT env var.")
	cmd.Flags().Int("rate-burst", 20, "Burst size per client IP. Can also use RATE_BURST env var.")
	cmd.Flags().Bool("audit-identities", false, "Include caller and participant ids in audit logs. Can also use AUDIT_INCLUDE_IDENTITIES env var.")

	// Metrics server flags
	cmd.Flags().Bool("metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().String("metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	addStoreFlags(cmd)
	addProviderFlags(cmd)

	return cmd
}

// resolveServeConfig merges flags, environment and the config file.
// Environment variables only override flag values when the flag was not
// explicitly set.
func resolveServeConfig(cmd *cobra.Command) (serveConfig, error) {
	file, err := loadFileConfig(configPath)
	if err != nil {
		return serveConfig{}, err
	}
	s := settings{cmd: cmd}

	cfg := serveConfig{
		HTTPAddr: s.stringValue("http-addr", "HTTP_ADDR", file.HTTPAddr),
		Metrics: MetricsConfig{
			Enabled: s.boolValue("metrics-enabled", "METRICS_ENABLED", file.MetricsEnabled),
			Addr:    s.stringValue("metrics-addr", "METRICS_ADDR", file.MetricsAddr),
		},
		Store: resolveStoreConfig(s, file),
		Auth: AuthConfig{
			JWTSecret:  s.stringValue("jwt-secret", "JWT_SECRET", file.Auth.JWTSecret),
			JWTIssuer:  s.stringValue("jwt-issuer", "JWT_ISSUER", file.Auth.JWTIssuer),
			TrustProxy: s.boolValue("trust-proxy", "TRUST_PROXY", &file.Auth.TrustProxy),
		},
		Debug:           resolveDebug(s, file),
		AuditIdentities: s.boolValue("audit-identities", "AUDIT_INCLUDE_IDENTITIES", file.AuditIdentities),
	}

	if cfg.RateLimit.RPS, err = s.floatValue("rate-limit", "RATE_LIMIT", file.RateLimit.RPS); err != nil {
		return serveConfig{}, err
	}
	if cfg.RateLimit.Burst, err = s.intValue("rate-burst", "RATE_BURST", file.RateLimit.Burst); err != nil {
		return serveConfig{}, err
	}
	if cfg.Engine, err = resolveEngineConfig(s, file); err != nil {
		return serveConfig{}, err
	}

	if cfg.Auth.JWTSecret == "" {
		return serveConfig{}, errors.New("a JWT secret is required: set --jwt-secret, JWT_SECRET or auth.jwt_secret")
	}
	if cfg.RateLimit.RPS < 0 {
		return serveConfig{}, fmt.Errorf("rate limit must not be negative, got %v", cfg.RateLimit.RPS)
	}
	return cfg, nil
}

func runServe(cfg serveConfig) error {
	logger := newLogger(cfg.Debug)
	slog.SetDefault(logger)

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during instrumentation shutdown", "error", err)
		}
	}()
	metrics := provider.Metrics()

	connStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store.Type, err)
	}
	defer func() {
		if err := connStore.Close(); err != nil {
			logger.Error("error closing store", "error", err)
		}
	}()
	instrumentedStore := store.WithMetrics(connStore, metrics)

	auth, err := server.NewAuthenticator([]byte(cfg.Auth.JWTSecret), cfg.Auth.JWTIssuer, logger)
	if err != nil {
		return err
	}

	var limiter *server.RateLimiter
	if cfg.RateLimit.RPS > 0 {
		limiter = server.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.Auth.TrustProxy)
	}

	health := server.NewHealthChecker(instrumentedStore)
	router := server.NewRouter(server.RouterConfig{
		Finder:        newEngine(cfg.Engine, instrumentedStore, metrics, logger),
		Authenticator: auth,
		RateLimiter:   limiter,
		Health:        health,
		Metrics:       metrics,
		Audit:         instrumentation.NewAuditLogger(logger.With("log_type", "audit"), cfg.AuditIdentities),
		Logger:        logger,
		TrustProxy:    cfg.Auth.TrustProxy,
	})
	apiServer := server.NewServer(cfg.HTTPAddr, router, health, logger)

	// Start metrics server if enabled
	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled && provider.MetricsHandler() != nil {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Metrics.Addr,
			Enabled:                 true,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	logger.Info("schedsvc started",
		"version", version,
		"http_addr", cfg.HTTPAddr,
		"store", cfg.Store.Type,
		"rate_limit", cfg.RateLimit.RPS,
		"provider_timeout", cfg.Engine.ProviderTimeout)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
	case err := <-serverDone:
		if err != nil {
			runErr = fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancelShutdown()

	if err := apiServer.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("error shutting down HTTP server: %w", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during metrics server shutdown", "error", err)
		}
	}

	if runErr == nil {
		logger.Info("HTTP server gracefully stopped")
	}
	return runErr
}
