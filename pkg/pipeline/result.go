package pipeline

import (
	"encoding/json"

	"mercator-hq/underwriter/pkg/strategy"
)

// StageResult is the value an evaluator computes for one segment. Each stage
// type has exactly one result variant.
type StageResult interface {
	Type() strategy.StageType
}

// RuleOutcome is the evaluation of one rule of a ruleset.
type RuleOutcome struct {
	Name          string
	Passed        bool
	DeclineReason string
	Weight        *float64
	// Output holds condition_output values reported by output rules.
	Output map[string]any
}

// MarshalJSON flattens Output next to the rule's name and status.
func (r RuleOutcome) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Output)+4)
	for k, v := range r.Output {
		m[k] = v
	}
	m["name"] = r.Name
	m["passed"] = r.Passed
	if !r.Passed && r.DeclineReason != "" {
		m["decline_reason"] = r.DeclineReason
	}
	if r.Weight != nil {
		m["weight"] = *r.Weight
	}
	return json.Marshal(m)
}

// RequirementsResult is produced by requirements stages.
type RequirementsResult struct {
	Passed         bool
	DeclineReasons []string
	Rules          []RuleOutcome
}

// ScorecardResult is produced by scorecard stages.
type ScorecardResult struct {
	// OutputVariable is the key the score is written to; "score" when empty.
	OutputVariable string
	Score          any
	Rules          []RuleOutcome
}

// CalculationsResult is produced by calculation stages.
type CalculationsResult struct {
	Values map[string]any
}

// AssignmentsResult is produced by assignment stages.
type AssignmentsResult struct {
	Values map[string]any
}

// OutputResult is produced by rule based output stages.
type OutputResult struct {
	Values map[string]any
	Rules  []RuleOutcome
}

// DataIntegrationResult records one call to an external data provider.
type DataIntegrationResult struct {
	Name     string
	Provider string
	Status   string
	Segment  string
	Output   map[string]any
	Raw      any
}

// InferenceResult records one call to an inference service.
type InferenceResult struct {
	Name           string
	Segment        string
	Classification string
	OutputVariable string
	Output         map[string]any
}

func (*RequirementsResult) Type() strategy.StageType    { return strategy.StageRequirements }
func (*ScorecardResult) Type() strategy.StageType       { return strategy.StageScorecard }
func (*CalculationsResult) Type() strategy.StageType    { return strategy.StageCalculations }
func (*AssignmentsResult) Type() strategy.StageType     { return strategy.StageAssignments }
func (*OutputResult) Type() strategy.StageType          { return strategy.StageOutput }
func (*DataIntegrationResult) Type() strategy.StageType { return strategy.StageDataIntegration }
func (*InferenceResult) Type() strategy.StageType       { return strategy.StageArtificialIntelligence }

// scoreKey returns the variable a scorecard result is written to.
func (r *ScorecardResult) scoreKey() string {
	if r.OutputVariable != "" {
		return r.OutputVariable
	}
	return "score"
}

// Scoped holds the results of the segments matched in one stage, keyed by
// segment name in match order.
type Scoped struct {
	names   []string
	results map[string]StageResult
}

// Len returns the number of matched segments.
func (s *Scoped) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Names returns the matched segment names in match order.
func (s *Scoped) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.names...)
}

// Get returns the result of segment name.
func (s *Scoped) Get(name string) (StageResult, bool) {
	if s == nil {
		return nil, false
	}
	r, ok := s.results[name]
	return r, ok
}

// with returns a copy of s with name bound to result.
func (s *Scoped) with(name string, result StageResult) *Scoped {
	out := &Scoped{results: make(map[string]StageResult, s.Len()+1)}
	if s != nil {
		out.names = append(out.names, s.names...)
		for k, v := range s.results {
			out.results[k] = v
		}
	}
	if _, exists := out.results[name]; !exists {
		out.names = append(out.names, name)
	}
	out.results[name] = result
	return out
}

// Cursor returns a cursor over the matched segments.
func (s *Scoped) Cursor() *Cursor {
	return newCursor(s)
}
