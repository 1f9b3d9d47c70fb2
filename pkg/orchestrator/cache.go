package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"mercator-hq/underwriter/pkg/pipeline"
	"mercator-hq/underwriter/pkg/store"
	"mercator-hq/underwriter/pkg/strategy"
)

// Query selects the strategies an EngineCache compiles.
type Query = store.Query

// DefaultQuery selects every active strategy.
var DefaultQuery = Query{}

// Source loads strategy documents.
type Source interface {
	ActiveStrategies(ctx context.Context, q Query) ([]*strategy.EngineConfig, error)
}

// CompileObserver receives the outcome of engine set builds.
type CompileObserver interface {
	ObserveCompile(engines int, duration time.Duration, err error)
}

// EngineCache compiles strategies from a Source and keeps the latest
// EngineSet. Readers never block on a rebuild; they keep the snapshot they
// loaded.
type EngineCache struct {
	source   Source
	runner   *pipeline.Runner
	logger   *slog.Logger
	observer CompileObserver

	query   atomic.Pointer[Query]
	current atomic.Pointer[EngineSet]
	buildMu sync.Mutex
}

// NewEngineCache creates a cache compiling with runner.
func NewEngineCache(source Source, runner *pipeline.Runner, logger *slog.Logger) *EngineCache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &EngineCache{
		source: source,
		runner: runner,
		logger: logger,
	}
	q := DefaultQuery
	c.query.Store(&q)
	return c
}

// SetObserver reports builds to o.
func (c *EngineCache) SetObserver(o CompileObserver) {
	c.observer = o
}

// SetQuery changes the query used by the next build.
func (c *EngineCache) SetQuery(q Query) {
	c.query.Store(&q)
}

// Query returns the query used by builds.
func (c *EngineCache) Query() Query {
	return *c.query.Load()
}

// Get returns the current set, or nil before the first build.
func (c *EngineCache) Get() *EngineSet {
	return c.current.Load()
}

// Compile returns the current set, building it when none exists or force
// is set. Concurrent builds are collapsed: callers arriving while a build
// runs wait for it and share its result unless they force another.
func (c *EngineCache) Compile(ctx context.Context, force bool) (*EngineSet, error) {
	if !force {
		if set := c.current.Load(); set != nil {
			return set, nil
		}
	}

	c.buildMu.Lock()
	defer c.buildMu.Unlock()

	if !force {
		if set := c.current.Load(); set != nil {
			return set, nil
		}
	}

	start := time.Now()
	set, err := c.build(ctx, start)
	if c.observer != nil {
		n := 0
		if set != nil {
			n = set.Len()
		}
		c.observer.ObserveCompile(n, time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}

	c.current.Store(set)
	return set, nil
}

func (c *EngineCache) build(ctx context.Context, start time.Time) (*EngineSet, error) {
	if c.source == nil {
		return nil, ErrNoSource
	}

	q := c.Query()

	configs, err := c.source.ActiveStrategies(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to load strategies: %w", err)
	}

	engines, err := c.compileAll(ctx, configs)
	if err != nil {
		c.logger.Error("strategy compilation failed", "error", err)
		return nil, err
	}

	duration := time.Since(start)
	c.logger.Info("strategies compiled",
		"engines", len(engines),
		"organization", q.Organization,
		"duration", duration,
	)

	return newEngineSet(engines, q, start, duration), nil
}

// compileAll compiles configs concurrently. Engines are keyed by their
// normalized name: a later document replaces an earlier one with the same
// name but keeps its position.
func (c *EngineCache) compileAll(ctx context.Context, configs []*strategy.EngineConfig) ([]*CompiledEngine, error) {
	var order []string
	latest := make(map[string]*strategy.EngineConfig, len(configs))
	for _, cfg := range configs {
		name := cfg.ShortName()
		if _, seen := latest[name]; !seen {
			order = append(order, name)
		}
		latest[name] = cfg
	}

	compiled := make([]*CompiledEngine, len(order))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range order {
		cfg := latest[name]
		g.Go(func() error {
			e, err := c.CompileEngine(gctx, cfg)
			if err != nil {
				return err
			}
			compiled[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return compiled, nil
}

// CompileEngine compiles one strategy document.
func (c *EngineCache) CompileEngine(ctx context.Context, cfg *strategy.EngineConfig) (*CompiledEngine, error) {
	p, err := c.runner.Build(ctx, cfg)
	if err != nil {
		return nil, &EngineError{Engine: cfg.Name, Err: err}
	}

	var ids []string
	if cfg.ID != "" {
		ids = []string{cfg.ID}
	}

	return &CompiledEngine{
		Name:         cfg.ShortName(),
		Organization: cfg.Organization,
		Conditions:   cfg.Conditions,
		SegmentIDs:   ids,
		Pipeline:     p,
		Config:       cfg,
	}, nil
}
