package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"mercator-hq/underwriter/pkg/audit"
	auditstorage "mercator-hq/underwriter/pkg/audit/storage"
	"mercator-hq/underwriter/pkg/config"
	"mercator-hq/underwriter/pkg/evaluators"
	"mercator-hq/underwriter/pkg/orchestrator"
	"mercator-hq/underwriter/pkg/pipeline"
	"mercator-hq/underwriter/pkg/server/middleware"
	"mercator-hq/underwriter/pkg/store"
	"mercator-hq/underwriter/pkg/telemetry/logging"
	"mercator-hq/underwriter/pkg/telemetry/metrics"
	"mercator-hq/underwriter/pkg/telemetry/tracing"
)

// newLogger builds the process logger from cfg and installs it as the
// slog default.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, w))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	slog.SetDefault(logger)
	return logger, nil
}

// openStrategyStore opens the configured strategy source. The returned
// close function is never nil.
func openStrategyStore(cfg *config.StrategyConfig, logger *slog.Logger) (store.Store, func() error, error) {
	switch cfg.Source {
	case "file":
		return store.NewFileStore(cfg.Path, logger), func() error { return nil }, nil
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open strategy database: %w", err)
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported strategy source: %s", cfg.Source)
	}
}

// openAuditStorage opens the configured audit backend.
func openAuditStorage(cfg *config.AuditConfig, logger *slog.Logger) (audit.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return auditstorage.NewMemoryStorage(), nil
	case "sqlite":
		return auditstorage.NewSQLiteStorage(&auditstorage.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported audit backend: %s", cfg.Backend)
	}
}

// engineDeps are the optional collaborators of the decision engine.
type engineDeps struct {
	logger    *slog.Logger
	collector *metrics.Collector
	tracer    *tracing.Tracer
	recorder  orchestrator.Recorder
}

// newOrchestrator wires generators, compiler, runner and orchestrator for
// the strategies in src.
func newOrchestrator(cfg *config.Config, src orchestrator.Source, deps engineDeps) *orchestrator.Orchestrator {
	logger := deps.logger
	generators := evaluators.Defaults(&evaluators.Options{
		HTTPClient: &http.Client{Timeout: cfg.Engine.IntegrationTimeout},
		Logger:     logger,
	})

	compiler := pipeline.NewCompiler(generators,
		pipeline.WithCompileLogger(logger),
		pipeline.WithCompileConcurrency(cfg.Engine.CompileConcurrency),
	)

	runnerOpts := []pipeline.RunnerOption{pipeline.WithLogger(logger)}
	orchOpts := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithConcurrency(cfg.Engine.EvaluationConcurrency),
	}
	if deps.collector != nil {
		runnerOpts = append(runnerOpts, pipeline.WithObserver(deps.collector))
		orchOpts = append(orchOpts, orchestrator.WithObserver(deps.collector))
	}
	if deps.tracer != nil {
		runnerOpts = append(runnerOpts, pipeline.WithTracer(deps.tracer.Tracer("underwriter/pipeline")))
		orchOpts = append(orchOpts, orchestrator.WithTracer(deps.tracer.Tracer("underwriter/orchestrator")))
	}
	if deps.recorder != nil {
		orchOpts = append(orchOpts, orchestrator.WithRecorder(deps.recorder))
	}

	orch := orchestrator.New(src, pipeline.NewRunner(compiler, runnerOpts...), orchOpts...)
	orch.SetQuery(strategyQuery(&cfg.Strategy))
	return orch
}

func strategyQuery(cfg *config.StrategyConfig) orchestrator.Query {
	return orchestrator.Query{
		Organization:    cfg.Organization,
		Names:           cfg.Names,
		IncludeInactive: cfg.IncludeInactive,
	}
}

func apiKeys(cfg *config.AuthConfig) *middleware.KeySet {
	keys := make([]middleware.APIKey, 0, len(cfg.Keys))
	for _, k := range cfg.Keys {
		keys = append(keys, middleware.APIKey{
			Key:          k.Secret(),
			Organization: k.Organization,
			Enabled:      !k.Disabled,
		})
	}
	return middleware.NewKeySet(keys)
}
