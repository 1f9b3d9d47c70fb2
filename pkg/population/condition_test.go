package population

import (
	"errors"
	"testing"

	"mercator-hq/underwriter/pkg/strategy"
)

func TestTest_ConditionTests(t *testing.T) {
	record := map[string]any{
		"age":        20,
		"income":     float64(55000),
		"state":      "CA",
		"min_income": "40000",
		"cosigner":   nil,
	}

	tests := []struct {
		name      string
		cond      strategy.Condition
		wantMatch bool
		wantError bool
	}{
		{
			name:      "greater than",
			cond:      strategy.Condition{VariableName: "age", Test: "GT", ValueComparison: 18},
			wantMatch: true,
		},
		{
			name:      "greater than fails",
			cond:      strategy.Condition{VariableName: "age", Test: "GT", ValueComparison: 21},
			wantMatch: false,
		},
		{
			name:      "less or equal lower case",
			cond:      strategy.Condition{VariableName: "age", Test: "lte", ValueComparison: 20.0},
			wantMatch: true,
		},
		{
			name:      "equal mixes int and float",
			cond:      strategy.Condition{VariableName: "age", Test: "EQUAL", ValueComparison: 20.0},
			wantMatch: true,
		},
		{
			name:      "not equal string",
			cond:      strategy.Condition{VariableName: "state", Test: "NOT_EQUAL", ValueComparison: "NY"},
			wantMatch: true,
		},
		{
			name:      "in list",
			cond:      strategy.Condition{VariableName: "state", Test: "IN", ValueComparison: []any{"CA", "NV"}},
			wantMatch: true,
		},
		{
			name:      "in comma separated string",
			cond:      strategy.Condition{VariableName: "state", Test: "IN", ValueComparison: "NY, NJ"},
			wantMatch: false,
		},
		{
			name:      "not in",
			cond:      strategy.Condition{VariableName: "state", Test: "NOT IN", ValueComparison: []any{"NY"}},
			wantMatch: true,
		},
		{
			name:      "range",
			cond:      strategy.Condition{VariableName: "income", Test: "RANGE", ValueMinimum: 50000, ValueMaximum: 60000},
			wantMatch: true,
		},
		{
			name: "variable comparison",
			cond: strategy.Condition{
				VariableName:        "income",
				Test:                "GTE",
				ValueComparison:     "min_income",
				ValueComparisonType: strategy.CompareVariable,
			},
			wantMatch: true,
		},
		{
			name:      "exists",
			cond:      strategy.Condition{VariableName: "age", Test: "EXISTS"},
			wantMatch: true,
		},
		{
			name:      "not exists",
			cond:      strategy.Condition{VariableName: "ssn", Test: "NOT EXISTS"},
			wantMatch: true,
		},
		{
			name:      "is null",
			cond:      strategy.Condition{VariableName: "cosigner", Test: "IS NULL"},
			wantMatch: true,
		},
		{
			name:      "numeric test on string",
			cond:      strategy.Condition{VariableName: "state", Test: "GT", ValueComparison: 1},
			wantError: true,
		},
		{
			name:      "unknown test",
			cond:      strategy.Condition{VariableName: "age", Test: "SOUNDS LIKE", ValueComparison: 1},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Test(tt.cond, record)
			if (err != nil) != tt.wantError {
				t.Fatalf("Test() error = %v, wantError %v", err, tt.wantError)
			}
			if got != tt.wantMatch {
				t.Errorf("Test() = %v, want %v", got, tt.wantMatch)
			}
		})
	}
}

func TestTest_UndefinedVariable(t *testing.T) {
	_, err := Test(strategy.Condition{VariableName: "age", Test: "GT", ValueComparison: 18}, map[string]any{})

	var undefined *UndefinedVariableError
	if !errors.As(err, &undefined) {
		t.Fatalf("Test() error = %v, want *UndefinedVariableError", err)
	}
	want := "The Variable age is required by a Rule but is not defined."
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestTestAll(t *testing.T) {
	and := func(name, test string, v any) strategy.Condition {
		return strategy.Condition{VariableName: name, Test: test, ValueComparison: v, RuleType: strategy.RuleAnd}
	}
	or := func(name, test string, v any) strategy.Condition {
		return strategy.Condition{VariableName: name, Test: test, ValueComparison: v, RuleType: strategy.RuleOr}
	}

	tests := []struct {
		name   string
		conds  []strategy.Condition
		record map[string]any
		want   bool
	}{
		{
			name:   "empty list matches",
			record: map[string]any{"age": 30},
			want:   true,
		},
		{
			name:   "AND conditions all hold",
			conds:  []strategy.Condition{and("age", "GT", 18), and("income", "GT", 50000)},
			record: map[string]any{"age": 30, "income": 90000},
			want:   true,
		},
		{
			name:   "AND condition failing rejects",
			conds:  []strategy.Condition{and("age", "GT", 18), and("income", "GT", 50000)},
			record: map[string]any{"age": 16, "income": 90000},
			want:   false,
		},
		{
			name:   "empty rule type is AND",
			conds:  []strategy.Condition{{VariableName: "age", Test: "GT", ValueComparison: 18}, and("income", "GT", 50000)},
			record: map[string]any{"age": 16, "income": 90000},
			want:   false,
		},
		{
			name:   "one OR hit is enough",
			conds:  []strategy.Condition{or("state", "EQUAL", "NY"), or("state", "EQUAL", "CA"), and("age", "GTE", 21)},
			record: map[string]any{"state": "CA", "age": 30},
			want:   true,
		},
		{
			name:   "no OR hit rejects",
			conds:  []strategy.Condition{or("state", "EQUAL", "NY"), or("state", "EQUAL", "CA"), and("age", "GTE", 21)},
			record: map[string]any{"state": "TX", "age": 30},
			want:   false,
		},
		{
			name:   "OR hit does not rescue a failed AND",
			conds:  []strategy.Condition{or("state", "EQUAL", "CA"), and("age", "GTE", 21)},
			record: map[string]any{"state": "CA", "age": 18},
			want:   false,
		},
		{
			name:   "lower case or",
			conds:  []strategy.Condition{{VariableName: "state", Test: "EQUAL", ValueComparison: "NY", RuleType: "or"}, or("state", "EQUAL", "CA")},
			record: map[string]any{"state": "CA"},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TestAll(tt.conds, tt.record)
			if err != nil {
				t.Fatalf("TestAll() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("TestAll() = %v, want %v", got, tt.want)
			}
		})
	}
}
