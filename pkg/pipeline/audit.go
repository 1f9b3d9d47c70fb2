package pipeline

import (
	"encoding/json"

	"mercator-hq/underwriter/pkg/strategy"
)

// AuditEntry summarises one executed stage. It serializes to a flat object:
// the stage's merged values plus the type label, names, matched segment and
// the summary fields of its stage type.
type AuditEntry struct {
	Type        strategy.StageType
	Name        string
	DisplayName string
	// Segment is empty when no population matched.
	Segment string

	// Passed is nil for a requirements stage without a matching segment.
	Passed                  *bool
	DeclineReasons          []string
	Rules                   []RuleOutcome
	OutputVariable          *string
	Status                  string
	PredictedClassification string

	// Values are the variables the stage produced.
	Values map[string]any
}

// Matched reports whether a segment matched for the stage.
func (e AuditEntry) Matched() bool {
	return e.Segment != ""
}

// MarshalJSON renders the flat audit object.
func (e AuditEntry) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Values)+8)
	for k, v := range e.Values {
		m[k] = v
	}

	m["type"] = e.Type.DisplayLabel()
	m["name"] = e.Name
	m["display_name"] = e.DisplayName
	m["segment"] = e.Segment

	switch e.Type {
	case strategy.StageRequirements:
		if e.Passed != nil {
			m["passed"] = *e.Passed
		} else {
			m["passed"] = nil
		}
		m["decline_reasons"] = nonNilStrings(e.DeclineReasons)
		m["rules"] = nonNilRules(e.Rules)
	case strategy.StageScorecard:
		m["rules"] = nonNilRules(e.Rules)
		if e.OutputVariable != nil {
			m["output_variable"] = *e.OutputVariable
		}
	case strategy.StageOutput:
		m["rules"] = nonNilRules(e.Rules)
	case strategy.StageDataIntegration:
		m["status"] = e.Status
	case strategy.StageArtificialIntelligence:
		m["predicted_classification"] = e.PredictedClassification
		if e.OutputVariable != nil {
			m["output_variable"] = *e.OutputVariable
		}
	}

	return json.Marshal(m)
}

// emptyEntry is the entry recorded when no segment of a stage matched.
func emptyEntry(t strategy.StageType, name, displayName string) AuditEntry {
	entry := AuditEntry{
		Type:        t,
		Name:        name,
		DisplayName: displayName,
	}

	switch t {
	case strategy.StageScorecard, strategy.StageArtificialIntelligence:
		empty := ""
		entry.OutputVariable = &empty
	}

	return entry
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilRules(r []RuleOutcome) []RuleOutcome {
	if r == nil {
		return []RuleOutcome{}
	}
	return r
}
