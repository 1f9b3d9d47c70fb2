package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mercator-hq/underwriter/pkg/population"
	"mercator-hq/underwriter/pkg/strategy"
)

// Stage is one executable step of a pipeline: a segment evaluator followed
// by its reconciler.
type Stage struct {
	Key         string
	Name        string
	DisplayName string
	Type        strategy.StageType

	segments  *SegmentEvaluator
	reconcile Reducer
}

// NewStage pairs a segment evaluator with its reconciler.
func NewStage(key, name, displayName string, segments *SegmentEvaluator) *Stage {
	return &Stage{
		Key:         key,
		Name:        name,
		DisplayName: displayName,
		Type:        segments.Type(),
		segments:    segments,
		reconcile:   Reconcile(name, segments.Type(), displayName),
	}
}

// Run evaluates the stage against rec. The input record is not modified.
func (s *Stage) Run(ctx context.Context, rec Record) Outcome {
	next, err := s.segments.Evaluate(ctx, rec)
	if err != nil {
		next.clearScratch()
		return Fault(next, &StageFaultError{StageName: s.Name, StageType: s.Type, Cause: err})
	}
	return s.reconcile(next)
}

// Segments returns the stage's segment evaluator.
func (s *Stage) Segments() *SegmentEvaluator {
	return s.segments
}

// Compiler turns strategy documents into ordered stage lists.
type Compiler struct {
	generators  *Generators
	logger      *slog.Logger
	concurrency int
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithCompileLogger sets the compiler's logger.
func WithCompileLogger(logger *slog.Logger) CompilerOption {
	return func(c *Compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCompileConcurrency bounds how many stages compile at once. Zero or
// less means unbounded.
func WithCompileConcurrency(n int) CompilerOption {
	return func(c *Compiler) {
		c.concurrency = n
	}
}

// NewCompiler creates a compiler that builds evaluators with generators.
func NewCompiler(generators *Generators, opts ...CompilerOption) *Compiler {
	c := &Compiler{
		generators: generators,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile builds the stages of cfg in declared order. Stages are compiled
// concurrently; the first failure cancels the rest and no stages are
// returned. Stages without segments are left out.
func (c *Compiler) Compile(ctx context.Context, cfg *strategy.EngineConfig) ([]*Stage, error) {
	start := time.Now()
	engine := cfg.ShortName()

	keys := make([]string, len(cfg.Stages))
	seen := make(map[string]bool, len(cfg.Stages))
	for i := range cfg.Stages {
		keys[i] = cfg.Stages[i].Key(i)
		if seen[keys[i]] {
			return nil, &CompilationError{Engine: engine, Stage: keys[i], Err: ErrDuplicateStage}
		}
		seen[keys[i]] = true
	}

	var (
		mu       sync.Mutex
		compiled = make(map[string]*Stage, len(cfg.Stages))
	)

	g, gctx := errgroup.WithContext(ctx)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}

	for i := range cfg.Stages {
		stageCfg := &cfg.Stages[i]
		key := keys[i]
		g.Go(func() error {
			stage, err := c.compileStage(gctx, cfg, stageCfg, key)
			if err != nil {
				return err
			}
			if stage == nil {
				return nil
			}
			mu.Lock()
			compiled[key] = stage
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.logger.Error("engine compilation failed",
			"engine", engine,
			"error", err,
		)
		return nil, err
	}

	stages := make([]*Stage, 0, len(compiled))
	for _, key := range keys {
		if stage, ok := compiled[key]; ok {
			stages = append(stages, stage)
		}
	}

	c.logger.Debug("engine compiled",
		"engine", engine,
		"stages", len(stages),
		"duration", time.Since(start),
	)

	return stages, nil
}

// compileStage generates one evaluator per segment and wraps them in a
// stage. It returns nil for a stage without segments.
func (c *Compiler) compileStage(ctx context.Context, cfg *strategy.EngineConfig, stageCfg *strategy.StageConfig, key string) (*Stage, error) {
	if len(stageCfg.Segments) == 0 {
		return nil, nil
	}

	name := stageCfg.StageName()
	fail := func(segment string, err error) error {
		return &CompilationError{Engine: cfg.ShortName(), Stage: name, Segment: segment, Err: err}
	}

	gen, err := c.generators.For(stageCfg.Type)
	if err != nil {
		return nil, fail("", err)
	}

	configs := make([]population.Config[StageEvaluator], 0, len(stageCfg.Segments))
	for i, seg := range stageCfg.Segments {
		if seg.Name == "" {
			return nil, fail(fmt.Sprintf("#%d", i), strategy.ErrSegmentNameRequired)
		}

		evaluator, err := gen.Generate(ctx, GenerateRequest{
			Segment:         seg,
			StageName:       name,
			DisplayName:     stageCfg.DisplayName,
			Integration:     stageCfg.Integration,
			Inference:       stageCfg.Inference,
			InputVariables:  cfg.InputVariables,
			OutputVariables: cfg.OutputVariables,
		})
		if err != nil {
			return nil, fail(seg.Name, err)
		}

		configs = append(configs, population.Config[StageEvaluator]{
			Name:       strategy.NormalizeName(seg.Name),
			Conditions: seg.Conditions,
			Evaluator:  evaluator,
		})
	}

	segments := CompileSegments(stageCfg.Type, population.GenerateEvaluators(configs))
	return NewStage(key, name, stageCfg.DisplayName, segments), nil
}
