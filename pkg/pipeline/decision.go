package pipeline

import (
	"encoding/json"
	"errors"
)

// DataSource is the public view of a data integration call.
type DataSource struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Data     any    `json:"data"`
}

// Decision is the outcome of running one engine's pipeline against a record.
type Decision struct {
	Kind             OutcomeKind
	Passed           bool
	DeclineReasons   []string
	InputVariables   map[string]any
	OutputVariables  map[string]any
	ProcessingDetail []AuditEntry
	DataSources      []DataSource

	// Error and Message are set for faults. Error is the underlying cause,
	// Message the stage qualified description.
	Error   string
	Message string

	// Err is the error that stopped the pipeline, if any.
	Err error
}

// Outcome returns "pass", "decline" or "fault".
func (d *Decision) Outcome() string {
	switch {
	case d.Kind == OutcomeFault:
		return "fault"
	case !d.Passed:
		return "decline"
	default:
		return "pass"
	}
}

type successJSON struct {
	Passed           bool           `json:"passed"`
	DeclineReasons   []string       `json:"decline_reasons"`
	InputVariables   map[string]any `json:"input_variables"`
	OutputVariables  map[string]any `json:"output_variables"`
	ProcessingDetail []AuditEntry   `json:"processing_detail"`
	DataSources      []DataSource   `json:"data_sources"`
}

type faultJSON struct {
	Passed           bool           `json:"passed"`
	Error            string         `json:"error"`
	Message          string         `json:"message"`
	DeclineReasons   []string       `json:"decline_reasons,omitempty"`
	InputVariables   map[string]any `json:"input_variables"`
	OutputVariables  map[string]any `json:"output_variables"`
	ProcessingDetail []AuditEntry   `json:"processing_detail"`
	DataSources      []DataSource   `json:"data_sources"`
}

// MarshalJSON renders the decision in its success, structured decline or
// fault shape.
func (d *Decision) MarshalJSON() ([]byte, error) {
	detail := d.ProcessingDetail
	if detail == nil {
		detail = []AuditEntry{}
	}
	sources := d.DataSources
	if sources == nil {
		sources = []DataSource{}
	}

	if d.Kind == OutcomeFault {
		return json.Marshal(faultJSON{
			Passed:           false,
			Error:            d.Error,
			Message:          d.Message,
			DeclineReasons:   d.DeclineReasons,
			InputVariables:   d.InputVariables,
			OutputVariables:  d.OutputVariables,
			ProcessingDetail: detail,
			DataSources:      sources,
		})
	}

	return json.Marshal(successJSON{
		Passed:           d.Passed,
		DeclineReasons:   nonNilStrings(d.DeclineReasons),
		InputVariables:   d.InputVariables,
		OutputVariables:  d.OutputVariables,
		ProcessingDetail: detail,
		DataSources:      sources,
	})
}

// trivialDecision is the decision of an engine without stages.
func trivialDecision(rec Record) *Decision {
	input := make(map[string]any, len(rec))
	for k, v := range rec {
		input[k] = v
	}
	return &Decision{
		Kind:             OutcomeOK,
		Passed:           true,
		DeclineReasons:   []string{},
		InputVariables:   input,
		OutputVariables:  map[string]any{},
		ProcessingDetail: []AuditEntry{},
		DataSources:      []DataSource{},
	}
}

// newDecision shapes the final record of a pipeline run.
func newDecision(out Outcome) *Decision {
	rec := out.Record
	input, output := partition(rec)

	d := &Decision{
		Kind:             out.Kind,
		InputVariables:   input,
		OutputVariables:  output,
		ProcessingDetail: rec.Trail(),
		DataSources:      dataSources(rec),
		Err:              out.Err,
	}

	switch out.Kind {
	case OutcomeOK:
		d.Passed = true
		if passed, ok := rec[KeyPassed].(bool); ok {
			d.Passed = passed
		}
		d.DeclineReasons = nonNilStrings(rec.DeclineReasons())

	case OutcomeDecline:
		d.DeclineReasons = nonNilStrings(rec.DeclineReasons())

	case OutcomeFault:
		d.Message = out.Err.Error()

		var stageFault *StageFaultError
		var ambiguous *AmbiguousSegmentError
		switch {
		case errors.As(out.Err, &stageFault):
			d.Error = stageFault.Cause.Error()
		case errors.As(out.Err, &ambiguous):
			d.DeclineReasons = nonNilStrings(rec.DeclineReasons())
		default:
			d.Error = out.Err.Error()
		}
	}

	return d
}

// protectedKeys are never reported as input variables.
var protectedKeys = map[string]bool{
	KeyPassed:         true,
	KeyStrategyStatus: true,
	KeyDeclineReasons: true,
	KeyCreditProcess:  true,
	KeyDataSources:    true,
	KeyError:          true,
	"message":         true,
}

// partition splits rec into input variables (scalar fields no stage wrote)
// and output variables (every field in an aggregate namespace, read back
// from the record so later writes win).
func partition(rec Record) (input, output map[string]any) {
	output = make(map[string]any)
	for _, ns := range Namespaces() {
		vars, _ := rec[ns].(map[string]any)
		for k := range vars {
			output[k] = rec[k]
		}
	}

	input = make(map[string]any)
	for k, v := range rec {
		if protectedKeys[k] || isObject(v) {
			continue
		}
		if _, ok := output[k]; ok {
			continue
		}
		input[k] = v
	}

	return input, output
}

// dataSources extracts the data integration calls made during the run.
func dataSources(rec Record) []DataSource {
	calls := rec.dataSources()
	out := make([]DataSource, len(calls))
	for i, di := range calls {
		out[i] = DataSource{Name: di.Name, Provider: di.Provider, Data: di.Raw}
	}
	return out
}
