package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/availability"
	"github.com/paramvora-capmatch/capmatch-dev-sub009/internal/store"
)

type availabilityOptions struct {
	users    string
	start    string
	end      string
	duration int
	timeZone string
}

func newAvailabilityCmd() *cobra.Command {
	var opts availabilityOptions

	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Compute common free slots once and print them as JSON",
		Example: `  schedsvc availability --store sqlite --users alice,bob \
    --start 2024-06-03T00:00:00Z --end 2024-06-04T00:00:00Z --duration 30 --time-zone Europe/Berlin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := opts.request()
			if err != nil {
				return err
			}

			file, err := loadFileConfig(configPath)
			if err != nil {
				return err
			}
			s := settings{cmd: cmd}
			engineCfg, err := resolveEngineConfig(s, file)
			if err != nil {
				return err
			}
			logger := newLogger(resolveDebug(s, file))

			return withStore(cmd, func(ctx context.Context, st store.Store) error {
				svc := newEngine(engineCfg, st, nil, logger)
				result, err := svc.FindAvailability(ctx, req)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			})
		},
	}

	cmd.Flags().StringVar(&opts.users, "users", "", "Comma-separated participant user ids (required)")
	cmd.Flags().StringVar(&opts.start, "start", "", "Window start, ISO-8601 timestamp or date (default: now)")
	cmd.Flags().StringVar(&opts.end, "end", "", "Window end, ISO-8601 timestamp or date (default: start + 7 days)")
	cmd.Flags().IntVar(&opts.duration, "duration", availability.DefaultDurationMinutes, "Meeting length in minutes")
	cmd.Flags().StringVar(&opts.timeZone, "time-zone", availability.DefaultTimeZone, "IANA time zone for business hours and output")
	_ = cmd.MarkFlagRequired("users")
	addStoreFlags(cmd)
	addProviderFlags(cmd)

	return cmd
}

func (o availabilityOptions) request() (availability.Request, error) {
	start := time.Now().UTC()
	if o.start != "" {
		t, err := availability.ParseTimestamp(o.start)
		if err != nil {
			return availability.Request{}, fmt.Errorf("invalid --start: %w", err)
		}
		start = t
	}
	end := start.Add(7 * 24 * time.Hour)
	if o.end != "" {
		t, err := availability.ParseTimestamp(o.end)
		if err != nil {
			return availability.Request{}, fmt.Errorf("invalid --end: %w", err)
		}
		end = t
	}

	return availability.Request{
		UserIDs:         parseCommaSeparatedList(o.users),
		Start:           start,
		End:             end,
		DurationMinutes: o.duration,
		TimeZone:        o.timeZone,
	}, nil
}
