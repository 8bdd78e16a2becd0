package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

// FileConfig is the TOML configuration file layout. Every field is optional.
//
//	http_addr = ":8080"
//
//	[store]
//	type = "postgres"
//	dsn  = "postgres://schedsvc@db/schedsvc"
//
//	[auth]
//	jwt_secret = "..."
//	jwt_issuer = "capmatch"
//
//	[providers]
//	timeout = "10s"
//
//	[providers.google]
//	client_id     = "..."
//	client_secret = "..."
//
//	[providers.microsoft]
//	client_id     = "..."
//	client_secret = "..."
//	tenant        = "common"
type FileConfig struct {
	HTTPAddr        string          `toml:"http_addr"`
	MetricsAddr     string          `toml:"metrics_addr"`
	MetricsEnabled  *bool           `toml:"metrics_enabled"`
	Debug           bool            `toml:"debug"`
	AuditIdentities *bool           `toml:"audit_identities"`
	Store           StoreConfig     `toml:"store"`
	Auth            AuthConfig      `toml:"auth"`
	RateLimit       RateLimitConfig `toml:"rate_limit"`
	Providers       ProvidersConfig `toml:"providers"`
}

// StoreConfig selects the connection store backend.
type StoreConfig struct {
	// Type is "memory", "sqlite" or "postgres".
	Type string `toml:"type"`
	// DSN is a file path for sqlite and a connection URL for postgres.
	DSN string `toml:"dsn"`
}

// AuthConfig configures bearer token validation.
type AuthConfig struct {
	JWTSecret  string `toml:"jwt_secret"`
	JWTIssuer  string `toml:"jwt_issuer"`
	TrustProxy bool   `toml:"trust_proxy"`
}

// RateLimitConfig configures the per-IP limiter. A zero RPS disables it.
type RateLimitConfig struct {
	RPS   float64 `toml:"rps"`
	Burst int     `toml:"burst"`
}

// ProvidersConfig holds OAuth client credentials per provider.
type ProvidersConfig struct {
	Timeout   string         `toml:"timeout"`
	Google    OAuthClient    `toml:"google"`
	Microsoft MicrosoftOAuth `toml:"microsoft"`
}

// OAuthClient is an OAuth 2.0 client registration.
type OAuthClient struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// MicrosoftOAuth adds the Entra ID tenant to an OAuth client.
type MicrosoftOAuth struct {
	OAuthClient
	Tenant string `toml:"tenant"`
}

// loadFileConfig reads path, or SCHEDSVC_CONFIG when path is empty. No file
// configured yields a zero FileConfig.
func loadFileConfig(path string) (FileConfig, error) {
	var cfg FileConfig
	if path == "" {
		path = os.Getenv("SCHEDSVC_CONFIG")
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// settings resolves values with precedence flag > env > file > flag default.
type settings struct {
	cmd *cobra.Command
}

func (s settings) stringValue(flag, env, fileValue string) string {
	flagValue, _ := s.cmd.Flags().GetString(flag)
	if s.cmd.Flags().Changed(flag) {
		return flagValue
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	if fileValue != "" {
		return fileValue
	}
	return flagValue
}

func (s settings) boolValue(flag, env string, fileValue *bool) bool {
	flagValue, _ := s.cmd.Flags().GetBool(flag)
	if s.cmd.Flags().Changed(flag) {
		return flagValue
	}
	if v := os.Getenv(env); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	if fileValue != nil {
		return *fileValue
	}
	return flagValue
}

func (s settings) intValue(flag, env string, fileValue int) (int, error) {
	flagValue, _ := s.cmd.Flags().GetInt(flag)
	if s.cmd.Flags().Changed(flag) {
		return flagValue, nil
	}
	if v := os.Getenv(env); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", env, err)
		}
		return n, nil
	}
	if fileValue != 0 {
		return fileValue, nil
	}
	return flagValue, nil
}

func (s settings) floatValue(flag, env string, fileValue float64) (float64, error) {
	flagValue, _ := s.cmd.Flags().GetFloat64(flag)
	if s.cmd.Flags().Changed(flag) {
		return flagValue, nil
	}
	if v := os.Getenv(env); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", env, err)
		}
		return f, nil
	}
	if fileValue != 0 {
		return fileValue, nil
	}
	return flagValue, nil
}

func (s settings) durationValue(flag, env, fileValue string) (time.Duration, error) {
	flagValue, _ := s.cmd.Flags().GetDuration(flag)
	if s.cmd.Flags().Changed(flag) {
		return flagValue, nil
	}
	raw := os.Getenv(env)
	source := env
	if raw == "" {
		raw, source = fileValue, "config file"
	}
	if raw == "" {
		return flagValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration from %s: %w", source, err)
	}
	return d, nil
}

// parseCommaSeparatedList splits a comma-separated string into a slice of trimmed, non-empty strings
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
