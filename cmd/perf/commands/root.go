package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "perf",
	Short: "Trading performance statistics service",
	Long: `perf reads a trade log and a benchmark index, computes portfolio
performance statistics and serves them over HTTP and WebSocket.

Usage:
  go run ./cmd/perf [command]

Examples:
  go run ./cmd/perf api
  go run ./cmd/perf compute --period ytd
  go run ./cmd/perf check-data
  go run ./cmd/perf snapshot`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file loaded before .env")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
