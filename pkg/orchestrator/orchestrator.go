package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"mercator-hq/underwriter/pkg/pipeline"
	"mercator-hq/underwriter/pkg/strategy"
	"mercator-hq/underwriter/pkg/telemetry/logging"
	"mercator-hq/underwriter/pkg/telemetry/tracing"
)

const tracerName = "mercator-hq/underwriter/orchestrator"

// Observer receives the outcome of composite evaluations.
type Observer interface {
	ObserveEvaluation(outcome string, engines int, duration time.Duration)
}

// Recorder persists composite decisions. Implementations must not block
// the caller for long; the audit recorder queues asynchronously.
type Recorder interface {
	RecordDecision(ctx context.Context, rec map[string]any, d *CompositeDecision)
}

// Orchestrator evaluates records against every matching strategy.
type Orchestrator struct {
	cache       *EngineCache
	logger      *slog.Logger
	tracer      trace.Tracer
	observer    Observer
	recorder    Recorder
	concurrency int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracer sets the tracer used for evaluation spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithObserver reports evaluations to obs. When obs also implements
// CompileObserver it receives engine set builds.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		o.observer = obs
	}
}

// WithRecorder persists every composite decision through r.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithConcurrency limits how many engines evaluate at once. Zero or less
// means no limit.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		o.concurrency = n
	}
}

// New creates an orchestrator loading strategies from source and compiling
// them with runner.
func New(source Source, runner *pipeline.Runner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.logger = o.logger.With("component", "orchestrator")
	o.cache = NewEngineCache(source, runner, o.logger)
	if co, ok := o.observer.(CompileObserver); ok {
		o.cache.SetObserver(co)
	}

	return o
}

// Cache returns the engine cache.
func (o *Orchestrator) Cache() *EngineCache {
	return o.cache
}

// SetQuery changes the storage query used by the next rebuild.
func (o *Orchestrator) SetQuery(q Query) {
	o.cache.SetQuery(q)
}

// Reload rebuilds the engine set. Evaluations already running keep the
// previous set.
func (o *Orchestrator) Reload(ctx context.Context) (*EngineSet, error) {
	return o.cache.Compile(ctx, true)
}

// CompileEngine compiles a single strategy document without adding it to
// the engine set.
func (o *Orchestrator) CompileEngine(ctx context.Context, cfg *strategy.EngineConfig) (*CompiledEngine, error) {
	return o.cache.CompileEngine(ctx, cfg)
}

// Engines returns the engines of the current set, compiling it on first
// use.
func (o *Orchestrator) Engines(ctx context.Context) ([]*CompiledEngine, error) {
	set, err := o.cache.Compile(ctx, false)
	if err != nil {
		return nil, err
	}
	return set.Engines(), nil
}

// Evaluate runs rec through every engine whose population conditions hold
// and aggregates the results. rec is never modified.
func (o *Orchestrator) Evaluate(ctx context.Context, rec map[string]any) (*CompositeDecision, error) {
	start := time.Now()

	ctx, span := o.tracer.Start(ctx, "orchestrator.evaluate")
	defer span.End()

	tracing.SetRequestAttributes(span, logging.GetRequestID(ctx), logging.GetOrganization(ctx))

	set, err := o.cache.Compile(ctx, false)
	if err != nil {
		tracing.SetStatus(span, err)
		return nil, err
	}

	matched, err := set.Match(rec)
	if err != nil {
		tracing.SetStatus(span, err)
		return nil, err
	}
	if len(matched) == 0 {
		err := &NoValidEngineError{Engines: set.Len()}
		tracing.SetStatus(span, err)
		o.logger.InfoContext(ctx, "no strategy matched application", "engines", set.Len())
		return nil, err
	}

	results := o.fanOut(ctx, matched, rec)

	bearing := make([]bool, len(matched))
	for i, e := range matched {
		bearing[i] = e.RequirementsBearing()
	}
	composite := aggregate(results, bearing)

	outcome := composite.Outcome()
	tracing.SetDecisionAttributes(span, outcome, len(matched), len(composite.DeclineReasons))

	elapsed := time.Since(start)
	o.logger.InfoContext(ctx, "application evaluated",
		"engines", composite.Engines,
		"outcome", outcome,
		"duration", elapsed,
	)

	if o.observer != nil {
		o.observer.ObserveEvaluation(outcome, len(matched), elapsed)
	}
	if o.recorder != nil {
		o.recorder.RecordDecision(ctx, rec, composite)
	}

	return composite, nil
}

// fanOut evaluates each engine on its own copy of rec and returns the
// decisions in the order of engines.
func (o *Orchestrator) fanOut(ctx context.Context, engines []*CompiledEngine, rec map[string]any) []*EngineDecision {
	results := make([]*EngineDecision, len(engines))

	var g errgroup.Group
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}

	for i, e := range engines {
		g.Go(func() error {
			d := e.Pipeline.Evaluate(logging.WithEngine(ctx, e.Name), pipeline.Record(rec).Clone())
			results[i] = &EngineDecision{
				Engine:       e.Name,
				Organization: e.Organization,
				SegmentIDs:   e.SegmentIDs,
				Decision:     d,
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
