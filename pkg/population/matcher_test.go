package population

import (
	"testing"

	"mercator-hq/underwriter/pkg/strategy"
)

func testCandidates() []*Candidate[string] {
	return GenerateEvaluators([]Config[string]{
		{
			Name:       "young",
			Conditions: []strategy.Condition{{VariableName: "age", Test: "LT", ValueComparison: 25}},
			Evaluator:  "young-evaluator",
		},
		{
			Name:       "adult",
			Conditions: []strategy.Condition{{VariableName: "age", Test: "GTE", ValueComparison: 18}},
			Evaluator:  "adult-evaluator",
		},
		{
			Name:      "everyone",
			Evaluator: "default-evaluator",
		},
	})
}

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		name       string
		record     map[string]any
		allowMulti bool
		want       []string
	}{
		{name: "multi match", record: map[string]any{"age": 20}, allowMulti: true, want: []string{"young", "adult", "everyone"}},
		{name: "first match only", record: map[string]any{"age": 20}, allowMulti: false, want: []string{"young"}},
		{name: "undefined variable does not match", record: map[string]any{}, allowMulti: true, want: []string{"everyone"}},
		{name: "older applicant", record: map[string]any{"age": 40}, allowMulti: true, want: []string{"adult", "everyone"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Evaluate(testCandidates(), tt.allowMulti)
			got, err := m.Match(tt.record)
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Match() returned %d candidates, want %d", len(got), len(tt.want))
			}
			for i, c := range got {
				if c.Name != tt.want[i] {
					t.Errorf("candidate[%d] = %q, want %q", i, c.Name, tt.want[i])
				}
			}
		})
	}
}

func TestMatcher_MatchError(t *testing.T) {
	m := Evaluate(GenerateEvaluators([]Config[int]{
		{Name: "bad", Conditions: []strategy.Condition{{VariableName: "age", Test: "BOGUS", ValueComparison: 1}}},
	}), true)

	if _, err := m.Match(map[string]any{"age": 1}); err == nil {
		t.Error("Match() error = nil, want error for unknown test")
	}
}
