package orchestrator

import (
	"encoding/json"

	"mercator-hq/underwriter/pkg/pipeline"
)

// EngineDecision is one engine's contribution to a composite decision.
type EngineDecision struct {
	Engine       string
	Organization string
	SegmentIDs   []string
	*pipeline.Decision
}

// MarshalJSON renders the engine's decision with its segment ids.
func (e *EngineDecision) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(e.Decision)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	ids := e.SegmentIDs
	if ids == nil {
		ids = []string{}
	}
	if fields["segment_ids"], err = json.Marshal(ids); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// RequirementStatus reports whether a requirements-bearing engine passed.
type RequirementStatus struct {
	Passed bool `json:"passed"`
}

// CompositeDecision aggregates the decisions of every engine that ran.
type CompositeDecision struct {
	// Passed is true when every requirements-bearing engine passed.
	Passed bool `json:"passed"`

	// DeclineReasons concatenates engine decline reasons in set order.
	DeclineReasons []string `json:"decline_reasons"`

	Requirements    map[string]RequirementStatus `json:"requirements"`
	CreditProcess   map[string]*EngineDecision   `json:"credit_process"`
	OutputVariables map[string]any               `json:"output_variables"`

	// Engines lists the engines that ran, in set order.
	Engines []string `json:"engines"`
}

// Outcome returns "fault" when any engine faulted, otherwise "pass" or
// "decline".
func (c *CompositeDecision) Outcome() string {
	for _, name := range c.Engines {
		if d := c.CreditProcess[name]; d != nil && d.Kind == pipeline.OutcomeFault {
			return "fault"
		}
	}
	if c.Passed {
		return "pass"
	}
	return "decline"
}

// aggregate folds engine decisions, given in set order, into a composite.
func aggregate(results []*EngineDecision, bearing []bool) *CompositeDecision {
	c := &CompositeDecision{
		Passed:          true,
		DeclineReasons:  []string{},
		Requirements:    make(map[string]RequirementStatus),
		CreditProcess:   make(map[string]*EngineDecision, len(results)),
		OutputVariables: make(map[string]any),
		Engines:         make([]string, 0, len(results)),
	}

	for i, r := range results {
		c.Engines = append(c.Engines, r.Engine)
		c.CreditProcess[r.Engine] = r

		if bearing[i] {
			c.Requirements[r.Engine] = RequirementStatus{Passed: r.Passed}
			if !r.Passed {
				c.Passed = false
			}
		}

		c.DeclineReasons = append(c.DeclineReasons, r.DeclineReasons...)
		for k, v := range r.OutputVariables {
			c.OutputVariables[k] = v
		}
	}

	return c
}
