// Package commands implements the CLI commands for the HLHSInfo backend.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "hlhsinfod",
	Short: "HLHSInfo backend - stateless session broker for the school portal",
	Long: `hlhsinfod fronts the legacy cookie-session school portal with a modern
stateless HTTP API. It brokers the portal's login flow, wraps the portal
session in signed bearer credentials, and relays authenticated requests
without keeping any per-client state of its own.

Use "hlhsinfod [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HLHSINFO_DATA_DIR/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(initCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
