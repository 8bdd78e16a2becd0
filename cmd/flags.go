package cmd

import (
	"github.com/spf13/cobra"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/availability"
)

// addStoreFlags registers the connection store flags.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("store", storeMemory, "Connection store backend: memory, sqlite or postgres. Can also use STORE_TYPE env var.")
	cmd.Flags().String("store-dsn", "", "SQLite file path or PostgreSQL URL. Can also use STORE_DSN env var.")
}

// addProviderFlags registers provider OAuth client and timeout flags.
func addProviderFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("provider-timeout", availability.DefaultProviderTimeout, "Timeout for one calendar fetch including token refresh. Can also use PROVIDER_TIMEOUT env var.")
	cmd.Flags().String("google-client-id", "", "Google OAuth Client ID for token refresh. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().String("google-client-secret", "", "Google OAuth Client Secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	cmd.Flags().String("microsoft-client-id", "", "Microsoft Entra ID application (client) ID. Can also use MICROSOFT_CLIENT_ID env var.")
	cmd.Flags().String("microsoft-client-secret", "", "Microsoft client secret. Can also use MICROSOFT_CLIENT_SECRET env var.")
	cmd.Flags().String("microsoft-tenant", "common", "Microsoft tenant for the token endpoint. Can also use MICROSOFT_TENANT env var.")
	cmd.Flags().Bool("debug", false, "Enable debug logging")
}

func resolveStoreConfig(s settings, file FileConfig) StoreConfig {
	return StoreConfig{
		Type: s.stringValue("store", "STORE_TYPE", file.Store.Type),
		DSN:  s.stringValue("store-dsn", "STORE_DSN", file.Store.DSN),
	}
}

func resolveEngineConfig(s settings, file FileConfig) (engineConfig, error) {
	timeout, err := s.durationValue("provider-timeout", "PROVIDER_TIMEOUT", file.Providers.Timeout)
	if err != nil {
		return engineConfig{}, err
	}

	var p ProvidersConfig
	p.Google.ClientID = s.stringValue("google-client-id", "GOOGLE_CLIENT_ID", file.Providers.Google.ClientID)
	p.Google.ClientSecret = s.stringValue("google-client-secret", "GOOGLE_CLIENT_SECRET", file.Providers.Google.ClientSecret)
	p.Microsoft.ClientID = s.stringValue("microsoft-client-id", "MICROSOFT_CLIENT_ID", file.Providers.Microsoft.ClientID)
	p.Microsoft.ClientSecret = s.stringValue("microsoft-client-secret", "MICROSOFT_CLIENT_SECRET", file.Providers.Microsoft.ClientSecret)
	p.Microsoft.Tenant = s.stringValue("microsoft-tenant", "MICROSOFT_TENANT", file.Providers.Microsoft.Tenant)

	return engineConfig{Providers: p, ProviderTimeout: timeout}, nil
}

func resolveDebug(s settings, file FileConfig) bool {
	debug, _ := s.cmd.Flags().GetBool("debug")
	return debug || file.Debug
}
