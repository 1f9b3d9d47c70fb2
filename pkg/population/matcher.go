package population

import (
	"errors"

	"mercator-hq/underwriter/pkg/strategy"
)

// Config describes one candidate before compilation.
type Config[E any] struct {
	Name       string
	Conditions []strategy.Condition
	Evaluator  E
}

// Candidate is a named population with the evaluator it selects.
type Candidate[E any] struct {
	Name       string
	Conditions []strategy.Condition
	Evaluator  E
}

// Matches reports whether the candidate's conditions hold for record. A
// condition on an undefined variable does not match.
func (c *Candidate[E]) Matches(record map[string]any) (bool, error) {
	ok, err := TestAll(c.Conditions, record)
	if err != nil {
		var undefined *UndefinedVariableError
		if errors.As(err, &undefined) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// GenerateEvaluators turns configurations into candidates, preserving order.
func GenerateEvaluators[E any](configs []Config[E]) []*Candidate[E] {
	candidates := make([]*Candidate[E], len(configs))
	for i, cfg := range configs {
		candidates[i] = &Candidate[E]{
			Name:       cfg.Name,
			Conditions: cfg.Conditions,
			Evaluator:  cfg.Evaluator,
		}
	}
	return candidates
}

// Matcher selects candidates for a record.
type Matcher[E any] struct {
	candidates []*Candidate[E]
	allowMulti bool
}

// Evaluate builds a matcher over candidates. With allowMulti the matcher
// returns every matching candidate; otherwise only the first.
func Evaluate[E any](candidates []*Candidate[E], allowMulti bool) *Matcher[E] {
	return &Matcher[E]{
		candidates: candidates,
		allowMulti: allowMulti,
	}
}

// Match returns the candidates matching record in declaration order. An
// empty result means no population applies.
func (m *Matcher[E]) Match(record map[string]any) ([]*Candidate[E], error) {
	var matched []*Candidate[E]

	for _, c := range m.candidates {
		ok, err := c.Matches(record)
		if err != nil {
			return nil, &MatchError{Candidate: c.Name, Cause: err}
		}
		if !ok {
			continue
		}
		matched = append(matched, c)
		if !m.allowMulti {
			break
		}
	}

	return matched, nil
}

// Candidates returns the candidates the matcher selects from.
func (m *Matcher[E]) Candidates() []*Candidate[E] {
	return m.candidates
}

// MatchError reports a failure evaluating a candidate's conditions.
type MatchError struct {
	Candidate string
	Cause     error
}

// Error returns the error message.
func (e *MatchError) Error() string {
	return "population " + e.Candidate + ": " + e.Cause.Error()
}

// Unwrap returns the underlying cause.
func (e *MatchError) Unwrap() error {
	return e.Cause
}
