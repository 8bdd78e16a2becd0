package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the schedsvc application
var rootCmd = &cobra.Command{
	Use:   "schedsvc",
	Short: "Finds meeting times where every participant is free",
	Long: `schedsvc computes common free meeting slots across participants'
Google and Microsoft calendars.

It can run as:
  - An HTTP service answering POST /meetings/availability (serve)
  - A one-shot CLI query against the configured connection store (availability)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// configPath is the optional TOML configuration file shared by all commands.
var configPath string

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "schedsvc version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a TOML configuration file. Can also use SCHEDSVC_CONFIG env var.")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConnectionsCmd())
	rootCmd.AddCommand(newAvailabilityCmd())
	rootCmd.AddCommand(newVersionCmd())
}
