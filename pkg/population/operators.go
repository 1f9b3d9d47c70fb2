package population

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Condition tests understood by Test.
const (
	TestEqual     = "EQUAL"
	TestNotEqual  = "NOT EQUAL"
	TestGreater   = "GT"
	TestGreaterEq = "GTE"
	TestLess      = "LT"
	TestLessEq    = "LTE"
	TestRange     = "RANGE"
	TestIn        = "IN"
	TestNotIn     = "NOT IN"
	TestExists    = "EXISTS"
	TestNotExists = "NOT EXISTS"
	TestIsNull    = "IS NULL"
	TestIsNotNull = "IS NOT NULL"
)

// normalizeTest upper-cases a test name and accepts underscores in place of
// spaces ("not_equal").
func normalizeTest(test string) string {
	return strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(test, "_", " ")))
}

// evaluateTest compares actual with expected under test. Presence tests are
// handled by the caller.
func evaluateTest(test string, actual, expected any) (bool, error) {
	switch test {
	case TestEqual:
		return evaluateEqual(actual, expected), nil

	case TestNotEqual:
		return !evaluateEqual(actual, expected), nil

	case TestGreater:
		a, e, err := toNumeric(actual, expected)
		return err == nil && a > e, err

	case TestGreaterEq:
		a, e, err := toNumeric(actual, expected)
		return err == nil && a >= e, err

	case TestLess:
		a, e, err := toNumeric(actual, expected)
		return err == nil && a < e, err

	case TestLessEq:
		a, e, err := toNumeric(actual, expected)
		return err == nil && a <= e, err

	case TestIn:
		return evaluateIn(actual, expected)

	case TestNotIn:
		in, err := evaluateIn(actual, expected)
		return !in, err

	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownConditionTest, test)
	}
}

// evaluateRange checks minimum <= actual <= maximum.
func evaluateRange(actual, minimum, maximum any) (bool, error) {
	a, lo, err := toNumeric(actual, minimum)
	if err != nil {
		return false, err
	}
	hi, err := convertToFloat64(maximum)
	if err != nil {
		return false, fmt.Errorf("cannot convert maximum to number: %w", err)
	}
	return a >= lo && a <= hi, nil
}

// evaluateEqual checks if two values are equal.
func evaluateEqual(actual, expected any) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}

	// Numeric comparison first so 18 == 18.0
	actualNum, actualErr := convertToFloat64(actual)
	expectedNum, expectedErr := convertToFloat64(expected)
	if actualErr == nil && expectedErr == nil {
		return actualNum == expectedNum
	}

	if as, ok := actual.(string); ok {
		if es, ok := expected.(string); ok {
			return as == es
		}
	}

	return reflect.DeepEqual(actual, expected)
}

// evaluateIn checks if actual is in the expected list. A string list is split
// on commas.
func evaluateIn(actual, expected any) (bool, error) {
	if s, ok := expected.(string); ok {
		for _, part := range strings.Split(s, ",") {
			if evaluateEqual(actual, strings.TrimSpace(part)) {
				return true, nil
			}
		}
		return false, nil
	}

	expectedVal := reflect.ValueOf(expected)
	if expectedVal.Kind() != reflect.Slice && expectedVal.Kind() != reflect.Array {
		return false, fmt.Errorf("in test requires a list for the comparison value, got %s", expectedVal.Kind())
	}

	for i := 0; i < expectedVal.Len(); i++ {
		if evaluateEqual(actual, expectedVal.Index(i).Interface()) {
			return true, nil
		}
	}

	return false, nil
}

// toNumeric converts values to float64 for numeric comparison.
func toNumeric(actual, expected any) (float64, float64, error) {
	actualNum, err := convertToFloat64(actual)
	if err != nil {
		return 0, 0, fmt.Errorf("cannot convert actual value to number: %w", err)
	}

	expectedNum, err := convertToFloat64(expected)
	if err != nil {
		return 0, 0, fmt.Errorf("cannot convert expected value to number: %w", err)
	}

	return actualNum, expectedNum, nil
}

// ToFloat64 converts numeric values, numeric strings and json.Number to
// float64.
func ToFloat64(v any) (float64, error) {
	return convertToFloat64(v)
}

// convertToFloat64 converts a value to float64.
func convertToFloat64(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case json.Number:
		return val.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to float64", val)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}
