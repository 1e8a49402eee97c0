package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/gatehouse/pkg/audit"
	"mercator-hq/gatehouse/pkg/cli"
	"mercator-hq/gatehouse/pkg/config"
)

var auditFlags struct {
	identity string
	limit    int
	output   string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the denial audit trail",
	Long: `List recorded admission denials for an identity.

Reads the SQLite audit database configured in the config file.

Examples:
  gatehouse audit --identity user-123
  gatehouse audit --identity user-123 --limit 50 --output json`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVarP(&auditFlags.identity, "identity", "i", "", "identity to list denials for (required)")
	auditCmd.Flags().IntVarP(&auditFlags.limit, "limit", "n", 20, "maximum number of events")
	auditCmd.Flags().StringVarP(&auditFlags.output, "output", "o", "text", "output format (text, json)")
	_ = auditCmd.MarkFlagRequired("identity")
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	if cfg.Audit.Backend != "sqlite" {
		return cli.NewConfigError("audit.backend",
			"audit inspection requires the sqlite backend")
	}

	storage, err := audit.NewSQLiteStorage(&audit.SQLiteConfig{
		Path: cfg.Audit.SQLite.Path,
	})
	if err != nil {
		return cli.NewCommandError("audit", err)
	}
	defer storage.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	events, err := storage.ListByIdentity(ctx, auditFlags.identity, auditFlags.limit)
	if err != nil {
		return cli.NewCommandError("audit", err)
	}

	if cli.OutputFormat(auditFlags.output) == cli.FormatJSON {
		return (&cli.JSONFormatter{Indent: true}).FormatTo(os.Stdout, events)
	}

	if len(events) == 0 {
		fmt.Printf("No denials recorded for %s\n", auditFlags.identity)
		return nil
	}

	fmt.Printf("Denials for %s (newest first):\n", auditFlags.identity)
	for _, event := range events {
		marker := ""
		if event.NewBlock {
			marker = "  [new block]"
		}
		fmt.Printf("  %s  %-16s retry_after=%s%s\n",
			event.Time.Format(time.RFC3339),
			event.Operation,
			event.RetryAfter,
			marker,
		)
	}
	return nil
}
