// Package population selects population segments for a record.
//
// A population is described by a list of conditions over record variables.
// Candidates pair a segment name and its conditions with an arbitrary
// evaluator value; a Matcher returns the candidates whose conditions hold for
// a given record.
//
// # Condition Tests
//
//	EQUAL, NOT EQUAL        equality (numeric aware)
//	GT, GTE, LT, LTE        numeric comparison
//	RANGE                   value_minimum <= x <= value_maximum
//	IN, NOT IN              membership in a list (or comma separated string)
//	EXISTS, NOT EXISTS      variable presence
//	IS NULL, IS NOT NULL    null check
//
// A condition's rule_type is its connective. AND conditions (the default)
// are all required; the OR conditions of a list need at least one hit.
//
// # Missing Variables
//
// Evaluating a comparison against a variable the record does not carry
// returns an *UndefinedVariableError. Matchers treat such a condition as not
// matching; rule evaluators in other packages surface the error.
package population
