package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"mercator-hq/underwriter/pkg/audit"
	"mercator-hq/underwriter/pkg/cli"
	"mercator-hq/underwriter/pkg/config"
	"mercator-hq/underwriter/pkg/orchestrator"
	"mercator-hq/underwriter/pkg/server"
	"mercator-hq/underwriter/pkg/store"
	"mercator-hq/underwriter/pkg/telemetry/health"
	"mercator-hq/underwriter/pkg/telemetry/logging"
	"mercator-hq/underwriter/pkg/telemetry/metrics"
	"mercator-hq/underwriter/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the decision API server",
	Long: `Start the decision API server with the specified configuration.

Strategies are compiled at startup. With strategy.watch enabled, changes to
strategy files rebuild the engine set; SIGHUP does the same on demand.

Examples:
  # Start with default config
  underwriter run

  # Start with custom config
  underwriter run --config /etc/underwriter/config.yaml

  # Override listen address
  underwriter run --listen 0.0.0.0:8080

  # Compile strategies and validate config without serving
  underwriter run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "compile strategies and exit without serving")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := newLogger(cfg, os.Stdout)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, tracing.WithServiceVersion(Version))
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer shutdownTracer(tracer, cfg, logger)

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, registry)
	}

	strategies, closeStore, err := openStrategyStore(&cfg.Strategy, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer closeStore()

	var (
		auditStorage audit.Storage
		recorder     *audit.Recorder
	)
	if cfg.Audit.Enabled {
		auditStorage, err = openAuditStorage(&cfg.Audit, logger)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to open audit storage: %w", err))
		}
		defer auditStorage.Close()

		redactor, err := logging.NewRedactor(cfg.Telemetry.Logging.RedactPatterns)
		if err != nil {
			return cli.NewConfigError("telemetry.logging.redact_patterns", err.Error())
		}
		recorderOpts := []audit.RecorderOption{audit.WithLogger(logger), audit.WithRedactor(redactor)}
		if collector != nil {
			recorderOpts = append(recorderOpts, audit.WithWriteObserver(collector))
		}
		recorder = audit.NewRecorder(auditStorage, audit.RecorderConfig{
			AsyncBuffer:  cfg.Audit.Recorder.AsyncBuffer,
			WriteTimeout: cfg.Audit.Recorder.WriteTimeout,
		}, recorderOpts...)
		defer recorder.Close()

		var pruneObserver audit.PruneObserver
		if collector != nil {
			pruneObserver = collector
		}
		pruner := audit.NewPruner(auditStorage, audit.RetentionConfig{
			Days:          cfg.Audit.Retention.Days,
			MaxRecords:    cfg.Audit.Retention.MaxRecords,
			PruneSchedule: cfg.Audit.Retention.PruneSchedule,
		}, logger, pruneObserver)
		scheduler := audit.NewScheduler(pruner)
		if err := scheduler.Start(ctx); err != nil {
			return cli.NewConfigError("audit.retention.prune_schedule", err.Error())
		}
		defer scheduler.Stop()
		if next := scheduler.NextRun(); next != nil {
			logger.Debug("audit retention scheduled", "next_run", next)
		}
	}

	deps := engineDeps{logger: logger, collector: collector, tracer: tracer}
	if recorder != nil {
		deps.recorder = recorder
	}
	orch := newOrchestrator(cfg, strategies, deps)

	set, err := reload(ctx, orch, cfg)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to compile strategies: %w", err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %d strategies compiled\n", set.Len())
	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	if cfg.Strategy.Watch && cfg.Strategy.Source == "file" {
		if err := startWatcher(ctx, cfg, orch, logger); err != nil {
			return cli.NewCommandError("run", err)
		}
	}
	go reloadOnSignal(ctx, cfg, orch, logger)

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithVersion(Version, GitCommit, BuildDate),
	}
	if cfg.Server.Auth.Enabled {
		opts = append(opts, server.WithAuth(apiKeys(&cfg.Server.Auth)))
	}
	if tracer.Enabled() {
		opts = append(opts, server.WithTracer(tracer))
	}
	if collector != nil {
		opts = append(opts, server.WithMetrics(cfg.Telemetry.Metrics.Path, collector.Handler(), collector))
	}
	if auditStorage != nil {
		opts = append(opts, server.WithAudit(auditStorage, audit.Limits{
			DefaultLimit: cfg.Audit.Query.DefaultLimit,
			MaxLimit:     cfg.Audit.Query.MaxLimit,
		}))
	}
	if cfg.Telemetry.Health.Enabled {
		checker := health.New(cfg.Telemetry.Health.CheckTimeout)
		checker.Register("strategies", health.EnginesLoaded(orch.Cache()))
		if auditStorage != nil {
			checker.Register("audit", health.Ping(auditStorage))
		}
		opts = append(opts, server.WithHealth(checker))
	}

	srv := server.New(&cfg.Server, orch, opts...)
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Listening on %s\n", cfg.Server.ListenAddress)
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Server stopped")
	return nil
}

// reload rebuilds the engine set within the configured compile timeout.
func reload(ctx context.Context, orch *orchestrator.Orchestrator, cfg *config.Config) (*orchestrator.EngineSet, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Engine.CompileTimeout)
	defer cancel()
	return orch.Reload(ctx)
}

func startWatcher(ctx context.Context, cfg *config.Config, orch *orchestrator.Orchestrator, logger *slog.Logger) error {
	wcfg := store.DefaultWatcherConfig(cfg.Strategy.Path)
	wcfg.DebounceInterval = cfg.Strategy.DebounceInterval

	watcher, err := store.NewWatcher(wcfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create strategy watcher: %w", err)
	}
	go func() {
		err := watcher.Watch(ctx, func() error {
			_, err := reload(ctx, orch, cfg)
			return err
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("strategy watcher stopped", "error", err)
		}
	}()
	return nil
}

// reloadOnSignal rebuilds the engine set on SIGHUP. The config file, when
// there is one, is re-read first so strategy selection changes apply. A
// failed rebuild keeps the current set.
func reloadOnSignal(ctx context.Context, cfg *config.Config, orch *orchestrator.Orchestrator, logger *slog.Logger) {
	sigs, stop := cli.ReloadSignals()
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigs:
			if configPath != "" {
				if err := config.ReloadConfig(configPath); err != nil {
					logger.Warn("config reload failed, keeping strategy selection", "error", err)
				} else {
					orch.SetQuery(strategyQuery(&config.MustGetConfig().Strategy))
				}
			}
			set, err := reload(ctx, orch, cfg)
			if err != nil {
				logger.Error("strategy reload failed, keeping current strategies", "error", err)
				continue
			}
			logger.Info("strategies reloaded", "engines", set.Len())
		}
	}
}

func shutdownTracer(t *tracing.Tracer, cfg *config.Config, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := t.Shutdown(ctx); err != nil {
		logger.Warn("tracer shutdown failed", "error", err)
	}
}
