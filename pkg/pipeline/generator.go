package pipeline

import (
	"context"
	"fmt"

	"mercator-hq/underwriter/pkg/strategy"
)

// StageEvaluator computes the result of one segment for a record. The
// record is a snapshot and must not be modified.
type StageEvaluator func(ctx context.Context, rec Record) (StageResult, error)

// GenerateRequest is what a generator receives for one segment.
type GenerateRequest struct {
	Segment     strategy.SegmentConfig
	StageName   string
	DisplayName string

	Integration *strategy.IntegrationConfig
	Inference   *strategy.InferenceConfig

	InputVariables  []strategy.Variable
	OutputVariables []strategy.Variable
}

// Generator turns a segment configuration into an evaluator.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (StageEvaluator, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req GenerateRequest) (StageEvaluator, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req GenerateRequest) (StageEvaluator, error) {
	return f(ctx, req)
}

// Generators holds one generator per stage type.
type Generators struct {
	Requirements           Generator
	Scorecard              Generator
	Calculations           Generator
	Assignments            Generator
	Output                 Generator
	DataIntegration        Generator
	ArtificialIntelligence Generator
}

// For returns the generator for stage type t.
func (g *Generators) For(t strategy.StageType) (Generator, error) {
	var gen Generator
	switch t {
	case strategy.StageRequirements:
		gen = g.Requirements
	case strategy.StageScorecard:
		gen = g.Scorecard
	case strategy.StageCalculations:
		gen = g.Calculations
	case strategy.StageAssignments:
		gen = g.Assignments
	case strategy.StageOutput:
		gen = g.Output
	case strategy.StageDataIntegration:
		gen = g.DataIntegration
	case strategy.StageArtificialIntelligence:
		gen = g.ArtificialIntelligence
	default:
		return nil, fmt.Errorf("%w: %q", strategy.ErrUnknownStageType, t)
	}

	if gen == nil {
		return nil, fmt.Errorf("no generator configured for stage type %q", t)
	}
	return gen, nil
}
