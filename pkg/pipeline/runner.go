package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/underwriter/pkg/strategy"
)

const tracerName = "mercator-hq/underwriter/pipeline"

// Runner compiles strategies into runnable pipelines.
type Runner struct {
	compiler *Compiler
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger used by the runner and its pipelines.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver reports stage and decision timings to o.
func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithTracer sets the tracer used for stage spans.
func WithTracer(t trace.Tracer) RunnerOption {
	return func(r *Runner) {
		if t != nil {
			r.tracer = t
		}
	}
}

// NewRunner creates a runner around compiler.
func NewRunner(compiler *Compiler, opts ...RunnerOption) *Runner {
	r := &Runner{
		compiler: compiler,
		logger:   slog.Default(),
		observer: nopObserver{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Build compiles cfg into a pipeline.
func (r *Runner) Build(ctx context.Context, cfg *strategy.EngineConfig) (*Pipeline, error) {
	stages, err := r.compiler.Compile(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return r.Wrap(cfg.ShortName(), stages), nil
}

// Wrap turns an already compiled stage list into a pipeline.
func (r *Runner) Wrap(engine string, stages []*Stage) *Pipeline {
	return &Pipeline{
		engine:   engine,
		stages:   stages,
		logger:   r.logger.With("component", "pipeline", "engine", engine),
		observer: r.observer,
		tracer:   r.tracer,
	}
}

// Pipeline runs the stages of one engine in order.
type Pipeline struct {
	engine   string
	stages   []*Stage
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer
}

// Engine returns the engine name.
func (p *Pipeline) Engine() string {
	return p.engine
}

// Stages returns the compiled stages in run order.
func (p *Pipeline) Stages() []*Stage {
	return p.stages
}

// HasStage reports whether the pipeline contains a stage of type t.
func (p *Pipeline) HasStage(t strategy.StageType) bool {
	for _, s := range p.stages {
		if s.Type == t {
			return true
		}
	}
	return false
}

// Evaluate runs rec through every stage and shapes the decision. The first
// decline or fault stops the run. rec is not modified.
func (p *Pipeline) Evaluate(ctx context.Context, rec Record) *Decision {
	start := time.Now()

	if len(p.stages) == 0 {
		d := trivialDecision(rec)
		p.observer.ObserveDecision(p.engine, d.Outcome(), time.Since(start))
		return d
	}

	out := OK(rec)
	for _, stage := range p.stages {
		out = p.runStage(ctx, stage, out.Record)
		if !out.Continue() {
			break
		}
	}

	d := newDecision(out)

	switch out.Kind {
	case OutcomeDecline:
		p.logger.Info("application declined",
			"reasons", d.DeclineReasons,
			"stages_run", len(d.ProcessingDetail),
		)
	case OutcomeFault:
		p.logger.Warn("pipeline fault",
			"error", out.Err,
			"stages_run", len(d.ProcessingDetail),
		)
	}

	p.observer.ObserveDecision(p.engine, d.Outcome(), time.Since(start))
	return d
}

// runStage runs one stage inside its own span.
func (p *Pipeline) runStage(ctx context.Context, stage *Stage, rec Record) Outcome {
	ctx, span := p.tracer.Start(ctx, "pipeline.stage",
		trace.WithAttributes(
			attribute.String("engine", p.engine),
			attribute.String("stage.name", stage.Name),
			attribute.String("stage.type", string(stage.Type)),
		),
	)
	defer span.End()

	start := time.Now()
	out := stage.Run(ctx, rec)
	elapsed := time.Since(start)

	span.SetAttributes(attribute.String("stage.outcome", out.Kind.String()))
	if out.Kind == OutcomeFault {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, out.Err.Error())
	}

	p.observer.ObserveStage(p.engine, stage.Type, out.Kind, elapsed)
	p.logger.Debug("stage executed",
		"stage", stage.Name,
		"type", stage.Type,
		"outcome", out.Kind.String(),
		"duration", elapsed,
	)

	return out
}
