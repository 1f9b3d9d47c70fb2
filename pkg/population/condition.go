package population

import (
	"fmt"

	"mercator-hq/underwriter/pkg/strategy"
)

// Test evaluates a single condition against record.
//
// Comparisons against an undefined variable return *UndefinedVariableError.
// A comparison value of type "variable" is resolved from the record as well.
func Test(cond strategy.Condition, record map[string]any) (bool, error) {
	test := normalizeTest(cond.Test)
	actual, defined := record[cond.VariableName]

	switch test {
	case TestExists:
		return defined, nil
	case TestNotExists:
		return !defined, nil
	case TestIsNull:
		return actual == nil, nil
	case TestIsNotNull:
		return actual != nil, nil
	}

	if !defined {
		return false, &UndefinedVariableError{Name: cond.VariableName}
	}

	if test == TestRange {
		lo, err := resolve(cond.ValueMinimum, cond.MinimumType, record)
		if err != nil {
			return false, err
		}
		hi, err := resolve(cond.ValueMaximum, cond.MaximumType, record)
		if err != nil {
			return false, err
		}
		ok, err := evaluateRange(actual, lo, hi)
		if err != nil {
			return false, &ConditionError{Variable: cond.VariableName, Test: test, Cause: err}
		}
		return ok, nil
	}

	expected, err := resolve(cond.ValueComparison, cond.ValueComparisonType, record)
	if err != nil {
		return false, err
	}

	ok, err := evaluateTest(test, actual, expected)
	if err != nil {
		return false, &ConditionError{Variable: cond.VariableName, Test: test, Cause: err}
	}
	return ok, nil
}

// TestAll evaluates conditions by their rule_type. Every AND condition
// (the default) must hold, and when the list has OR conditions at least one
// of them must hold. An empty list always matches.
func TestAll(conds []strategy.Condition, record map[string]any) (bool, error) {
	var hasOr, anyOr bool

	for _, cond := range conds {
		ok, err := Test(cond, record)
		if err != nil {
			return false, err
		}

		if cond.RuleType.IsOr() {
			hasOr = true
			anyOr = anyOr || ok
			continue
		}
		if !ok {
			return false, nil
		}
	}

	return !hasOr || anyOr, nil
}

// resolve returns the comparison value, reading it from record when the
// comparison type is "variable".
func resolve(value any, kind strategy.ComparisonType, record map[string]any) (any, error) {
	if kind != strategy.CompareVariable {
		return value, nil
	}

	name, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("variable comparison requires a variable name, got %T", value)
	}
	v, defined := record[name]
	if !defined {
		return nil, &UndefinedVariableError{Name: name}
	}
	return v, nil
}
