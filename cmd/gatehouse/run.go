package main

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"mercator-hq/gatehouse/pkg/admission"
	"mercator-hq/gatehouse/pkg/admission/registry"
	"mercator-hq/gatehouse/pkg/admission/sweep"
	"mercator-hq/gatehouse/pkg/audit"
	"mercator-hq/gatehouse/pkg/cli"
	"mercator-hq/gatehouse/pkg/config"
	"mercator-hq/gatehouse/pkg/server"
	"mercator-hq/gatehouse/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gatehouse admission service",
	Long: `Start the gatehouse admission service with the specified configuration.

The server listens on the configured address and serves the admission API:
check, record, remaining, stats, reset, unblock, and operation management.

Examples:
  # Start with default config
  gatehouse run

  # Start with custom config
  gatehouse run --config /etc/gatehouse/config.yaml

  # Override listen address
  gatehouse run --listen 0.0.0.0:8080

  # Validate config without starting server
  gatehouse run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	cfg.Telemetry.Logging.Level = effectiveLogLevel(
		cfg.Telemetry.Logging.Level, runFlags.logLevel, verbose)

	logger, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Gatehouse v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	// Build the operation registry: builtin defaults plus file overrides.
	reg := registry.New()
	if err := registerBudgets(reg, cfg.Admission.Operations); err != nil {
		return cli.NewConfigError("admission.operations", err.Error())
	}
	fmt.Printf("✓ Operation budgets registered (%d operations)\n", reg.Len())

	serviceOpts := []admission.Option{admission.WithRegistry(reg)}

	if cfg.Telemetry.Metrics.Enabled {
		serviceOpts = append(serviceOpts,
			admission.WithMetrics(admission.NewMetrics(prometheus.DefaultRegisterer)))
	}

	ctx := cli.SetupSignalHandler()

	// Denial audit trail (if enabled)
	if cfg.Audit.Enabled {
		slog.Info("initializing audit trail", "backend", cfg.Audit.Backend)

		var auditStorage audit.Storage
		switch cfg.Audit.Backend {
		case "sqlite":
			auditStorage, err = audit.NewSQLiteStorage(&audit.SQLiteConfig{
				Path: cfg.Audit.SQLite.Path,
			})
			if err != nil {
				return fmt.Errorf("failed to create audit storage: %w", err)
			}
		case "memory":
			auditStorage = audit.NewMemoryStorage(0)
		default:
			return fmt.Errorf("unsupported audit backend: %s", cfg.Audit.Backend)
		}
		defer auditStorage.Close()

		auditRecorder := audit.NewRecorder(auditStorage, &audit.RecorderConfig{
			BufferSize:   cfg.Audit.BufferSize,
			WriteTimeout: cfg.Audit.WriteTimeout,
		})
		defer auditRecorder.Close()

		serviceOpts = append(serviceOpts, admission.WithAuditor(auditRecorder))

		// Retention prune keeps the trail bounded.
		pruner := audit.NewPruner(auditStorage, &audit.PrunerConfig{
			RetentionDays: cfg.Audit.RetentionDays,
		})
		if err := pruner.Start(ctx); err != nil {
			return cli.NewConfigError("audit.retention_days", err.Error())
		}
		defer pruner.Stop()

		fmt.Println("✓ Audit trail initialized")
	}

	svc := admission.NewService(serviceOpts...)

	// Periodic cleanup sweep
	sweeper := sweep.NewScheduler(svc, cfg.Admission.SweepSchedule)
	if err := sweeper.Start(ctx); err != nil {
		return cli.NewConfigError("admission.sweep_schedule", err.Error())
	}
	defer sweeper.Stop()
	if next := sweeper.NextRun(); next != nil {
		slog.Debug("sweep scheduler started", "next_run", next)
	}
	fmt.Println("✓ Sweep scheduler started")

	// Hot reload of operation budgets (if enabled)
	if cfg.Admission.WatchConfig {
		watcher, err := config.NewWatcher(cfgFile, 0)
		if err != nil {
			return cli.NewConfigError("admission.watch_config", err.Error())
		}
		go func() {
			_ = watcher.Watch(ctx, func(next *config.Config) {
				if err := registerBudgets(reg, next.Admission.Operations); err != nil {
					slog.Error("failed to apply reloaded budgets", "error", err)
					return
				}
				slog.Info("operation budgets reloaded",
					"operations", len(next.Admission.Operations))
			})
		}()
		defer watcher.Stop()
		fmt.Println("✓ Config watcher started")
	}

	srv := server.NewServer(&cfg.Server, &cfg.Telemetry.Metrics, svc)

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}

// effectiveLogLevel resolves the log level from the config and flags. An
// explicit --log-level wins, then --verbose forces debug, otherwise the
// configured level stands.
func effectiveLogLevel(configured, flagLevel string, verbose bool) string {
	if flagLevel != "" {
		return flagLevel
	}
	if verbose {
		return "debug"
	}
	return configured
}

// registerBudgets applies file-configured budget overrides to the registry.
func registerBudgets(reg *registry.Registry, budgets map[string]config.OperationBudget) error {
	for name, budget := range budgets {
		cfg := registry.OperationConfig{
			MaxRequests:   budget.MaxRequests,
			Window:        budget.Window,
			BlockDuration: budget.BlockDuration,
		}
		if err := reg.Register(name, cfg); err != nil {
			return fmt.Errorf("operation %q: %w", name, err)
		}
	}
	return nil
}
