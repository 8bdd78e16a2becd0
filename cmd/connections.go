package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/calendar"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/store"
)

func newConnectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "connections",
		Aliases: []string{"conn"},
		Short:   "Manage stored calendar connections",
		Long: `Manage the calendar connections stored in the configured store.

Connections are normally created by the platform when a user completes the
provider OAuth flow. These commands seed and inspect them for local runs.`,
	}

	cmd.AddCommand(newConnectionsAddCmd())
	cmd.AddCommand(newConnectionsListCmd())
	cmd.AddCommand(newConnectionsRemoveCmd())
	return cmd
}

type addOptions struct {
	user         string
	provider     string
	account      string
	accessToken  string
	refreshToken string
	expiresIn    time.Duration
	calendars    string
	disabled     bool
}

func newConnectionsAddCmd() *cobra.Command {
	var opts addOptions

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a calendar connection",
		Example: `  schedsvc connections add --store sqlite --user alice --provider google \
    --account alice@example.com --refresh-token 1//0g... --calendars primary,team@group.calendar.google.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := opts.connection(time.Now())
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s store.Store) error {
				stored, err := s.UpsertConnection(ctx, conn)
				if err != nil {
					return fmt.Errorf("failed to save connection: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved connection %s (%s, %s) for user %s\n",
					stored.ID, stored.Provider, stored.ProviderAccountID, stored.UserID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.user, "user", "", "Owning user id (required)")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "Provider: google or microsoft (required)")
	cmd.Flags().StringVar(&opts.account, "account", "", "Provider account id, usually the account email (required)")
	cmd.Flags().StringVar(&opts.accessToken, "access-token", "", "Current access token")
	cmd.Flags().StringVar(&opts.refreshToken, "refresh-token", "", "Refresh token")
	cmd.Flags().DurationVar(&opts.expiresIn, "expires-in", 0, "Remaining access token lifetime; 0 marks the token expired")
	cmd.Flags().StringVar(&opts.calendars, "calendars", "", "Comma-separated calendar ids to query (default: the account's primary calendar)")
	cmd.Flags().BoolVar(&opts.disabled, "disabled", false, "Store the connection with sync disabled")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("account")
	addStoreFlags(cmd)

	return cmd
}

func (o addOptions) connection(now time.Time) (calendar.CalendarConnection, error) {
	provider, err := calendar.ParseProvider(o.provider)
	if err != nil {
		return calendar.CalendarConnection{}, err
	}
	if o.accessToken == "" && o.refreshToken == "" {
		return calendar.CalendarConnection{}, fmt.Errorf("an --access-token or --refresh-token is required")
	}

	conn := calendar.CalendarConnection{
		UserID:            o.user,
		Provider:          provider,
		ProviderAccountID: o.account,
		AccessToken:       o.accessToken,
		RefreshToken:      o.refreshToken,
		SyncEnabled:       !o.disabled,
		Calendars:         []calendar.CalendarRef{},
	}
	if o.expiresIn > 0 {
		conn.TokenExpiresAt = now.Add(o.expiresIn)
	}
	for _, id := range parseCommaSeparatedList(o.calendars) {
		conn.Calendars = append(conn.Calendars, calendar.CalendarRef{ID: id, Selected: true})
	}
	return conn, nil
}

func newConnectionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list USER_ID",
		Short: "List a user's calendar connections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s store.Store) error {
				conns, err := s.GetCalendarConnections(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to list connections: %w", err)
				}
				printConnections(cmd.OutOrStdout(), conns, time.Now())
				return nil
			})
		},
	}
	addStoreFlags(cmd)
	return cmd
}

func printConnections(w io.Writer, conns []calendar.CalendarConnection, now time.Time) {
	if len(conns) == 0 {
		fmt.Fprintln(w, "No calendar connections.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROVIDER\tACCOUNT\tCALENDARS\tSYNC\tTOKEN")
	for _, c := range conns {
		calendars := "primary"
		if len(c.Calendars) > 0 {
			calendars = fmt.Sprintf("%d selected", len(c.SelectedCalendarIDs()))
		}
		tokenState := "valid"
		switch {
		case !c.TokenExpiresAt.After(now) && c.RefreshToken == "":
			tokenState = "expired, needs reauthorization"
		case !c.TokenExpiresAt.After(now):
			tokenState = "expired, refreshable"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
			c.ID, c.Provider, c.ProviderAccountID, calendars, c.SyncEnabled, tokenState)
	}
	_ = tw.Flush()
}

func newConnectionsRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove CONNECTION_ID",
		Aliases: []string{"rm"},
		Short:   "Remove a calendar connection",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s store.Store) error {
				if err := s.DeleteConnection(ctx, args[0]); err != nil {
					return fmt.Errorf("failed to remove connection: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed connection %s\n", args[0])
				return nil
			})
		},
	}
	addStoreFlags(cmd)
	return cmd
}

// withStore opens the configured store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, s store.Store) error) error {
	file, err := loadFileConfig(configPath)
	if err != nil {
		return err
	}
	cfg := resolveStoreConfig(settings{cmd: cmd}, file)
	if cfg.Type == "" || cfg.Type == storeMemory {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: the memory store is not persisted; use --store sqlite or postgres")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(ctx, s)
}
