package evaluators

import (
	"context"

	"mercator-hq/underwriter/pkg/pipeline"
	"mercator-hq/underwriter/pkg/population"
	"mercator-hq/underwriter/pkg/strategy"
)

// Requirements returns the requirements generator. Every rule of the
// segment must pass; an undefined variable fails the evaluation.
func Requirements() pipeline.Generator {
	return pipeline.GeneratorFunc(func(_ context.Context, req pipeline.GenerateRequest) (pipeline.StageEvaluator, error) {
		rules := req.Segment.Ruleset
		return func(_ context.Context, rec pipeline.Record) (pipeline.StageResult, error) {
			res := &pipeline.RequirementsResult{
				Passed:         true,
				DeclineReasons: []string{},
				Rules:          make([]pipeline.RuleOutcome, 0, len(rules)),
			}
			for _, rule := range rules {
				ok, err := population.Test(rule.Condition, rec)
				if err != nil {
					return nil, err
				}

				outcome := pipeline.RuleOutcome{Name: rule.Name, Passed: ok}
				if !ok {
					res.Passed = false
					if reason := rule.DeclineReason(); reason != "" {
						outcome.DeclineReason = reason
						res.DeclineReasons = append(res.DeclineReasons, reason)
					}
				}
				res.Rules = append(res.Rules, outcome)
			}
			return res, nil
		}, nil
	})
}

// Scorecard returns the scorecard generator. The score starts at the
// segment's initial_score and adds the weight of every passing rule.
func Scorecard() pipeline.Generator {
	return pipeline.GeneratorFunc(func(_ context.Context, req pipeline.GenerateRequest) (pipeline.StageEvaluator, error) {
		seg := req.Segment
		return func(_ context.Context, rec pipeline.Record) (pipeline.StageResult, error) {
			score := seg.InitialScore
			rules := make([]pipeline.RuleOutcome, 0, len(seg.Ruleset))

			for _, rule := range seg.Ruleset {
				ok, err := population.Test(rule.Condition, rec)
				if err != nil {
					return nil, err
				}
				weight := rule.Weight
				if ok {
					score += weight
				}
				rules = append(rules, pipeline.RuleOutcome{Name: rule.Name, Passed: ok, Weight: &weight})
			}

			return &pipeline.ScorecardResult{
				OutputVariable: seg.OutputVariable,
				Score:          score,
				Rules:          rules,
			}, nil
		}, nil
	})
}

// Output returns the rule based output generator. The condition_output of
// every passing rule is reported; later rules override earlier ones.
func Output() pipeline.Generator {
	return pipeline.GeneratorFunc(func(_ context.Context, req pipeline.GenerateRequest) (pipeline.StageEvaluator, error) {
		rules := req.Segment.Ruleset
		return func(_ context.Context, rec pipeline.Record) (pipeline.StageResult, error) {
			res := &pipeline.OutputResult{
				Values: make(map[string]any),
				Rules:  make([]pipeline.RuleOutcome, 0, len(rules)),
			}
			for _, rule := range rules {
				ok, err := population.Test(rule.Condition, rec)
				if err != nil {
					return nil, err
				}
				outcome := pipeline.RuleOutcome{Name: rule.Name, Passed: ok}
				if ok {
					outcome.Output = rule.ConditionOutput
					for k, v := range rule.ConditionOutput {
						res.Values[k] = v
					}
				}
				res.Rules = append(res.Rules, outcome)
			}
			return res, nil
		}, nil
	})
}

// Assignments returns the assignments generator. A rule writes Value to its
// output variable, or copies the variable Value names when
// value_comparison_type is "variable". Rules with a variable_name only
// apply when their condition holds.
func Assignments() pipeline.Generator {
	return pipeline.GeneratorFunc(func(_ context.Context, req pipeline.GenerateRequest) (pipeline.StageEvaluator, error) {
		rules := req.Segment.Ruleset
		for _, rule := range rules {
			if rule.Output == "" {
				return nil, &RuleError{Rule: rule.Name, Err: ErrOutputVariableRequired}
			}
		}

		return func(_ context.Context, rec pipeline.Record) (pipeline.StageResult, error) {
			values := make(map[string]any, len(rules))
			for _, rule := range rules {
				if rule.VariableName != "" {
					ok, err := population.Test(rule.Condition, rec)
					if err != nil {
						return nil, err
					}
					if !ok {
						continue
					}
				}

				value, err := assignedValue(rule, rec)
				if err != nil {
					return nil, err
				}
				values[rule.Output] = value
			}
			return &pipeline.AssignmentsResult{Values: values}, nil
		}, nil
	})
}

func assignedValue(rule strategy.Rule, rec pipeline.Record) (any, error) {
	if rule.ValueComparisonType != strategy.CompareVariable {
		return rule.Value, nil
	}
	name, _ := rule.Value.(string)
	v, ok := rec[name]
	if !ok {
		return nil, &population.UndefinedVariableError{Name: name}
	}
	return v, nil
}
