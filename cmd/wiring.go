package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/availability"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/calendar"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/calendar/google"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/calendar/microsoft"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/instrumentation"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/store"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/store/postgres"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/store/sqlite"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/token"
)

// Store backend names.
const (
	storeMemory   = "memory"
	storeSQLite   = "sqlite"
	storePostgres = "postgres"

	defaultSQLitePath = "schedsvc.db"
)

// newLogger returns a JSON logger, or a text logger at debug level.
func newLogger(debug bool) *slog.Logger {
	if debug {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// openStore opens the configured connection store.
func openStore(ctx context.Context, cfg StoreConfig) (store.Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "", storeMemory:
		return store.NewMemory(), nil
	case storeSQLite:
		path := cfg.DSN
		if path == "" {
			path = defaultSQLitePath
		}
		return sqlite.Open(ctx, path)
	case storePostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("store type %q requires a DSN", storePostgres)
		}
		return postgres.Open(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store type %q (want %s, %s or %s)", cfg.Type, storeMemory, storeSQLite, storePostgres)
	}
}

// engineConfig is what the availability engine needs from the resolved settings.
type engineConfig struct {
	Providers       ProvidersConfig
	ProviderTimeout time.Duration
}

// oauthConfigs returns token refresh configs for every provider with a client id.
func (c engineConfig) oauthConfigs() map[calendar.Provider]*oauth2.Config {
	configs := make(map[calendar.Provider]*oauth2.Config)
	if g := c.Providers.Google; g.ClientID != "" {
		configs[calendar.ProviderGoogle] = token.GoogleConfig(g.ClientID, g.ClientSecret)
	}
	if m := c.Providers.Microsoft; m.ClientID != "" {
		configs[calendar.ProviderMicrosoft] = token.MicrosoftConfig(m.ClientID, m.ClientSecret, m.Tenant)
	}
	return configs
}

// newEngine builds the availability service on top of s.
func newEngine(cfg engineConfig, s store.Store, metrics *instrumentation.Metrics, logger *slog.Logger) *availability.Service {
	httpClient := instrumentation.NewHTTPClient(cfg.ProviderTimeout)

	registry := calendar.NewRegistry(
		google.NewAdapter(httpClient),
		microsoft.NewAdapter(microsoft.DefaultBaseURL, httpClient),
	)

	configs := cfg.oauthConfigs()
	for _, p := range []calendar.Provider{calendar.ProviderGoogle, calendar.ProviderMicrosoft} {
		if _, ok := configs[p]; !ok {
			logger.Warn("no OAuth client configured, expired tokens cannot be refreshed", "provider", p)
		}
	}

	tokens := token.NewManager(s, configs,
		token.WithHTTPClient(httpClient),
		token.WithMetrics(metrics),
		token.WithLogger(logger))

	agg := availability.NewAggregator(registry,
		availability.WithProviderTimeout(cfg.ProviderTimeout),
		availability.WithAggregatorMetrics(metrics),
		availability.WithAggregatorLogger(logger))

	return availability.NewService(s, tokens, agg,
		availability.WithMetrics(metrics),
		availability.WithLogger(logger))
}
