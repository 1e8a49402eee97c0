package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "gatehouse",
	Short: "Gatehouse - admission control service",
	Long: `Gatehouse is an admission control service that enforces per-identity
request budgets over sliding windows.

It tracks requests per (identity, operation) pair, blocks identities that
exceed an operation's budget, and exposes the decision surface over HTTP:
  - Sliding-window rate limiting with per-operation budgets
  - Temporary identity blocks with automatic expiry
  - Denial audit trail (in-memory or SQLite)
  - Prometheus metrics and structured logging`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "gatehouse.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
