package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"mercator-hq/underwriter/pkg/population"
	"mercator-hq/underwriter/pkg/strategy"
)

// requirementsGenerator evaluates every rule of a segment with the
// population condition tests.
func requirementsGenerator() GeneratorFunc {
	return func(_ context.Context, req GenerateRequest) (StageEvaluator, error) {
		rules := req.Segment.Ruleset
		return func(_ context.Context, rec Record) (StageResult, error) {
			res := &RequirementsResult{Passed: true, DeclineReasons: []string{}}
			for _, rule := range rules {
				ok, err := population.Test(rule.Condition, rec)
				if err != nil {
					return nil, err
				}
				outcome := RuleOutcome{Name: rule.Name, Passed: ok}
				if !ok {
					res.Passed = false
					outcome.DeclineReason = rule.DeclineReason()
					res.DeclineReasons = append(res.DeclineReasons, rule.DeclineReason())
				}
				res.Rules = append(res.Rules, outcome)
			}
			return res, nil
		}, nil
	}
}

// staticGenerator returns evaluators producing the result built by fn.
func staticGenerator(fn func(seg strategy.SegmentConfig) StageResult) GeneratorFunc {
	return func(_ context.Context, req GenerateRequest) (StageEvaluator, error) {
		seg := req.Segment
		return func(context.Context, Record) (StageResult, error) {
			return fn(seg), nil
		}, nil
	}
}

func testGenerators() *Generators {
	return &Generators{
		Requirements: requirementsGenerator(),
		Scorecard: staticGenerator(func(seg strategy.SegmentConfig) StageResult {
			return &ScorecardResult{OutputVariable: seg.OutputVariable, Score: 700}
		}),
		Calculations: staticGenerator(func(seg strategy.SegmentConfig) StageResult {
			return &CalculationsResult{Values: map[string]any{"dti": 0.25}}
		}),
		Assignments: staticGenerator(func(seg strategy.SegmentConfig) StageResult {
			return &AssignmentsResult{Values: map[string]any{"tier": seg.Name}}
		}),
		Output: staticGenerator(func(seg strategy.SegmentConfig) StageResult {
			return &OutputResult{Values: map[string]any{"apr": 0.12}}
		}),
		DataIntegration: staticGenerator(func(seg strategy.SegmentConfig) StageResult {
			return &DataIntegrationResult{
				Name:     "bureau",
				Provider: "acme",
				Status:   "success",
				Segment:  seg.Name,
				Output:   map[string]any{"fico": 720},
				Raw:      `{"fico":720}`,
			}
		}),
		ArtificialIntelligence: staticGenerator(func(seg strategy.SegmentConfig) StageResult {
			return &InferenceResult{
				Name:           "default_model",
				Segment:        seg.Name,
				Classification: "BINARY",
				OutputVariable: "binary_score",
				Output:         map[string]any{"binary_score": 0.7},
			}
		}),
	}
}

// sampleEngine is a single requirements stage declining applicants aged 18
// or younger.
func sampleEngine() *strategy.EngineConfig {
	return &strategy.EngineConfig{
		Name:         "college_application",
		Title:        "College application",
		Organization: "5ac3c1acf51c090b00abe43e",
		Status:       "active",
		Stages: []strategy.StageConfig{
			{
				Type:        strategy.StageRequirements,
				ModuleName:  "requirements_module",
				DisplayName: "Initial Requirements",
				LookupName:  "init_requirements",
				Segments: []strategy.SegmentConfig{
					{
						Name: "test_segment1",
						Ruleset: []strategy.Rule{
							{
								Name: "rule_0",
								Condition: strategy.Condition{
									VariableName:        "age",
									Test:                "GT",
									ValueComparison:     18,
									ValueComparisonType: strategy.CompareValue,
								},
								ConditionOutput: map[string]any{"decline_reason": "Failed Minimum Age Requirement"},
							},
						},
					},
				},
			},
		},
	}
}

// toJSONMap round-trips v through JSON for shape assertions.
func toJSONMap(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	return m
}

func candidate(name string, conds []strategy.Condition, eval StageEvaluator) *Candidate {
	return &Candidate{Name: name, Conditions: conds, Evaluator: eval}
}
