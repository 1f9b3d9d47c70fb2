package orchestrator

import (
	"time"

	"mercator-hq/underwriter/pkg/pipeline"
	"mercator-hq/underwriter/pkg/population"
	"mercator-hq/underwriter/pkg/strategy"
)

// CompiledEngine is a strategy ready for evaluation.
type CompiledEngine struct {
	// Name is the strategy name without its version suffix.
	Name         string
	Organization string
	Conditions   []strategy.Condition

	// SegmentIDs identify the population the engine was selected for.
	SegmentIDs []string

	Pipeline *pipeline.Pipeline
	Config   *strategy.EngineConfig
}

// RequirementsBearing reports whether the engine has a requirements stage.
// Only such engines decide the composite passed flag.
func (e *CompiledEngine) RequirementsBearing() bool {
	return e.Pipeline.HasStage(strategy.StageRequirements)
}

// EngineSet is an immutable snapshot of compiled engines.
type EngineSet struct {
	engines  []*CompiledEngine
	matcher  *population.Matcher[*CompiledEngine]
	query    Query
	built    time.Time
	duration time.Duration
}

func newEngineSet(engines []*CompiledEngine, q Query, built time.Time, duration time.Duration) *EngineSet {
	configs := make([]population.Config[*CompiledEngine], len(engines))
	for i, e := range engines {
		configs[i] = population.Config[*CompiledEngine]{
			Name:       e.Name,
			Conditions: e.Conditions,
			Evaluator:  e,
		}
	}

	return &EngineSet{
		engines:  engines,
		matcher:  population.Evaluate(population.GenerateEvaluators(configs), true),
		query:    q,
		built:    built,
		duration: duration,
	}
}

// Engines returns the engines in set order.
func (s *EngineSet) Engines() []*CompiledEngine {
	return s.engines
}

// Len returns the number of engines.
func (s *EngineSet) Len() int {
	return len(s.engines)
}

// Get returns the named engine.
func (s *EngineSet) Get(name string) (*CompiledEngine, bool) {
	name = strategy.NormalizeName(name)
	for _, e := range s.engines {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// BuiltAt returns when the set was compiled.
func (s *EngineSet) BuiltAt() time.Time {
	return s.built
}

// Match returns the engines whose population conditions hold for rec.
func (s *EngineSet) Match(rec map[string]any) ([]*CompiledEngine, error) {
	candidates, err := s.matcher.Match(rec)
	if err != nil {
		return nil, err
	}
	out := make([]*CompiledEngine, len(candidates))
	for i, c := range candidates {
		out[i] = c.Evaluator
	}
	return out, nil
}
