package pipeline

import (
	"context"

	"mercator-hq/underwriter/pkg/population"
	"mercator-hq/underwriter/pkg/strategy"
)

// Candidate is a population segment with its compiled evaluator.
type Candidate = population.Candidate[StageEvaluator]

// SegmentMatcher selects the candidates that apply to a record.
type SegmentMatcher interface {
	Match(record map[string]any) ([]*Candidate, error)
}

// SkipDecision is returned by a SkipFunc.
type SkipDecision struct {
	// Skip requests the stage be skipped.
	Skip bool
	// Strict limits the skip to records no segment matches.
	Strict bool
}

// SkipFunc decides whether a stage may be skipped for a record.
type SkipFunc func(rec Record) SkipDecision

// SegmentEvaluator resolves the population segments of one stage and stores
// their results on the record under the stage type key.
type SegmentEvaluator struct {
	stageType strategy.StageType
	matcher   SegmentMatcher
	skip      SkipFunc
}

// SegmentOption configures a SegmentEvaluator.
type SegmentOption func(*SegmentEvaluator)

// WithSkip installs a skip override.
func WithSkip(fn SkipFunc) SegmentOption {
	return func(e *SegmentEvaluator) {
		e.skip = fn
	}
}

// CompileSegments builds the segment evaluator of a stage from its
// candidates. Every matching candidate is evaluated; the reconciler rejects
// more than one.
func CompileSegments(t strategy.StageType, candidates []*Candidate, opts ...SegmentOption) *SegmentEvaluator {
	return NewSegmentEvaluator(t, population.Evaluate(candidates, true), opts...)
}

// NewSegmentEvaluator builds a segment evaluator around an existing matcher.
func NewSegmentEvaluator(t strategy.StageType, matcher SegmentMatcher, opts ...SegmentOption) *SegmentEvaluator {
	e := &SegmentEvaluator{
		stageType: t,
		matcher:   matcher,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Type returns the stage type the evaluator belongs to.
func (e *SegmentEvaluator) Type() strategy.StageType {
	return e.stageType
}

// match returns the candidates to evaluate for rec, or nil when the stage
// leaves the record unchanged.
func (e *SegmentEvaluator) match(rec Record) ([]*Candidate, error) {
	var skip SkipDecision
	if e.skip != nil {
		skip = e.skip(rec)
	}

	matched, err := e.matcher.Match(rec)
	if err != nil {
		return nil, err
	}

	if skip.Skip && (len(matched) == 0 || !skip.Strict) {
		return nil, nil
	}
	return matched, nil
}

// Evaluate runs the evaluators of every matched segment against a snapshot of
// rec and returns a copy of rec with the results stored under the stage type
// key. When no segment matches the copy is returned unchanged.
//
// An evaluator failure is recorded as the fault marker on the returned record
// for the reconciler to report. A matching failure is returned as an error
// together with the record built so far.
func (e *SegmentEvaluator) Evaluate(ctx context.Context, rec Record) (Record, error) {
	next := rec.Clone()

	matched, err := e.match(next)
	if err != nil {
		return next, err
	}
	if len(matched) == 0 {
		return next, nil
	}

	snapshot := next.Clone()
	scoped := next.Scoped(e.stageType)
	for _, c := range matched {
		result, err := c.Evaluator(ctx, snapshot)
		if err != nil {
			next[KeyError] = err
			return next, nil
		}
		scoped = scoped.with(c.Name, result)
	}

	next[string(e.stageType)] = scoped
	return next, nil
}

// Evaluators returns the evaluators of the segments matching rec without
// running them.
func (e *SegmentEvaluator) Evaluators(rec Record) ([]StageEvaluator, error) {
	matched, err := e.match(rec)
	if err != nil {
		return nil, err
	}

	evaluators := make([]StageEvaluator, len(matched))
	for i, c := range matched {
		evaluators[i] = c.Evaluator
	}
	return evaluators, nil
}

// Cursor returns a cursor over the results stored on rec for this stage.
func (e *SegmentEvaluator) Cursor(rec Record) *Cursor {
	return rec.Scoped(e.stageType).Cursor()
}
