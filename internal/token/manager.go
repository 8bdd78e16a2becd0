package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/calendar"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/instrumentation"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/logging"
)

// DefaultTokenLifetime is assumed when a provider omits expires_in.
const DefaultTokenLifetime = time.Hour

// Writer persists refreshed credentials. An empty refreshToken leaves the
// stored refresh token unchanged.
type Writer interface {
	UpdateConnectionToken(ctx context.Context, connectionID, accessToken string, expiresAt time.Time, refreshToken string) error
}

// GoogleConfig returns the OAuth2 client configuration for Google.
func GoogleConfig(clientID, clientSecret string) *oauth2.Config {
	endpoint := google.Endpoint
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoint,
		Scopes:       []string{"https://www.googleapis.com/auth/calendar.readonly"},
	}
}

// MicrosoftConfig returns the OAuth2 client configuration for the Microsoft
// identity platform. tenant defaults to "common".
func MicrosoftConfig(clientID, clientSecret, tenant string) *oauth2.Config {
	if tenant == "" {
		tenant = "common"
	}
	endpoint := microsoft.AzureADEndpoint(tenant)
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoint,
		Scopes:       []string{"offline_access", "Calendars.Read"},
	}
}

// Manager hands out valid access tokens for calendar connections.
type Manager struct {
	configs    map[calendar.Provider]*oauth2.Config
	writer     Writer
	httpClient *http.Client
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient sets the client used to call token endpoints.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpClient = c }
}

// WithMetrics records refresh outcomes.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager. configs maps each provider to its OAuth2
// client configuration; providers without one cannot refresh.
func NewManager(writer Writer, configs map[calendar.Provider]*oauth2.Config, opts ...Option) *Manager {
	m := &Manager{
		configs: configs,
		writer:  writer,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetValidToken returns conn's access token if its expiry is in the future.
// Otherwise it refreshes the token, persists the new credentials and returns
// the new access token.
//
// Errors are calendar.ErrTokenExpiredNoRefresh when there is nothing to
// refresh with, and *calendar.ProviderAuthError when the refresh call fails.
func (m *Manager) GetValidToken(ctx context.Context, conn calendar.CalendarConnection) (string, error) {
	now := m.now()
	if conn.AccessToken != "" && conn.TokenExpiresAt.After(now) {
		return conn.AccessToken, nil
	}

	provider := string(conn.Provider)
	if conn.RefreshToken == "" {
		m.metrics.RecordTokenRefresh(ctx, provider, instrumentation.TokenResultNoRefresh)
		return "", calendar.ErrTokenExpiredNoRefresh
	}

	tok, err := m.refresh(ctx, conn)
	if err != nil {
		m.metrics.RecordTokenRefresh(ctx, provider, instrumentation.TokenResultFailure)
		return "", err
	}
	m.metrics.RecordTokenRefresh(ctx, provider, instrumentation.TokenResultRefreshed)

	expiresAt := m.now().Add(lifetime(tok))

	// Providers are not required to rotate refresh tokens; oauth2 carries the
	// old one forward, so only a different value is a rotation.
	var rotated string
	if tok.RefreshToken != "" && tok.RefreshToken != conn.RefreshToken {
		rotated = tok.RefreshToken
	}

	logger := logging.WithConnection(m.logger, provider, conn.ID)
	if err := m.writer.UpdateConnectionToken(ctx, conn.ID, tok.AccessToken, expiresAt, rotated); err != nil {
		// Log but don't fail - we still have the new token
		logger.Warn("failed to persist refreshed token", logging.Err(err))
	}

	logger.Debug("refreshed access token",
		slog.String("access_token", logging.SanitizeToken(tok.AccessToken)),
		slog.Bool("refresh_token_rotated", rotated != ""),
		slog.Time("expires_at", expiresAt))

	return tok.AccessToken, nil
}

func (m *Manager) refresh(ctx context.Context, conn calendar.CalendarConnection) (*oauth2.Token, error) {
	cfg, ok := m.configs[conn.Provider]
	if !ok || cfg == nil {
		return nil, &calendar.ProviderAuthError{
			Provider: conn.Provider,
			Err:      fmt.Errorf("%w: no OAuth client configured", calendar.ErrUnsupportedProvider),
		}
	}

	ctx, span := instrumentation.StartProviderSpan(ctx, string(conn.Provider), "refresh")
	defer span.End()

	if m.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	}

	// An empty access token forces the token source to hit the endpoint.
	tok, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: conn.RefreshToken}).Token()
	if err != nil {
		authErr := &calendar.ProviderAuthError{Provider: conn.Provider, Err: err}
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			authErr.HTTPStatus = rerr.Response.StatusCode
		}
		instrumentation.SetSpanError(span, authErr)
		return nil, authErr
	}

	instrumentation.SetSpanSuccess(span)
	return tok, nil
}

// lifetime returns the provider-reported token lifetime (expires_in).
func lifetime(tok *oauth2.Token) time.Duration {
	if tok.ExpiresIn > 0 {
		return time.Duration(tok.ExpiresIn) * time.Second
	}
	return DefaultTokenLifetime
}
