package pipeline

import (
	"errors"
	"reflect"
	"testing"

	"mercator-hq/underwriter/pkg/population"
	"mercator-hq/underwriter/pkg/strategy"
)

// withResults stores results for stage type t on rec in the given order.
func withResults(rec Record, t strategy.StageType, pairs ...any) Record {
	var scoped *Scoped
	for i := 0; i < len(pairs); i += 2 {
		scoped = scoped.with(pairs[i].(string), pairs[i+1].(StageResult))
	}
	rec[string(t)] = scoped
	return rec
}

func TestReconcile_EmptyEntries(t *testing.T) {
	tests := []struct {
		stageType strategy.StageType
		extra     map[string]any
	}{
		{stageType: strategy.StageRequirements, extra: map[string]any{"passed": nil, "decline_reasons": []any{}, "rules": []any{}}},
		{stageType: strategy.StageScorecard, extra: map[string]any{"rules": []any{}, "output_variable": ""}},
		{stageType: strategy.StageOutput, extra: map[string]any{"rules": []any{}}},
		{stageType: strategy.StageDataIntegration, extra: map[string]any{"status": ""}},
		{stageType: strategy.StageArtificialIntelligence, extra: map[string]any{"predicted_classification": "", "output_variable": ""}},
		{stageType: strategy.StageCalculations, extra: map[string]any{}},
		{stageType: strategy.StageAssignments, extra: map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.stageType), func(t *testing.T) {
			rec := Record{"age": 30}
			out := Reconcile("some_module", tt.stageType, "Some Module")(rec)
			if out.Kind != OutcomeOK {
				t.Fatalf("Kind = %v, want ok", out.Kind)
			}

			trail := out.Record.Trail()
			if len(trail) != 1 {
				t.Fatalf("trail length = %d, want 1", len(trail))
			}

			want := map[string]any{
				"type":         tt.stageType.DisplayLabel(),
				"name":         "some_module",
				"display_name": "Some Module",
				"segment":      "",
			}
			for k, v := range tt.extra {
				want[k] = v
			}
			if got := toJSONMap(t, trail[0]); !reflect.DeepEqual(got, want) {
				t.Errorf("entry = %v, want %v", got, want)
			}

			if ns := Namespace(tt.stageType); ns != "" {
				if _, ok := out.Record[ns]; ok {
					t.Errorf("namespace %s written for empty match", ns)
				}
			}
		})
	}
}

func TestReconcile_AmbiguousSegments(t *testing.T) {
	prior := AuditEntry{Type: strategy.StageCalculations, Name: "calc", Segment: "s"}
	rec := Record{
		KeyCreditProcess:  []AuditEntry{prior},
		KeyDeclineReasons: []string{"Low income"},
	}
	rec = withResults(rec, strategy.StageAssignments,
		"one", &AssignmentsResult{Values: map[string]any{"x": 1}},
		"two", &AssignmentsResult{Values: map[string]any{"x": 2}},
	)

	out := Reconcile("assignments_module", strategy.StageAssignments, "Assignments")(rec)
	if out.Kind != OutcomeFault {
		t.Fatalf("Kind = %v, want fault", out.Kind)
	}

	want := "Error in Assignments Module decision module: The decision request falls into multiple population segments and could not be processed."
	if out.Err.Error() != want {
		t.Errorf("message = %q, want %q", out.Err.Error(), want)
	}

	var ambiguous *AmbiguousSegmentError
	if !errors.As(out.Err, &ambiguous) || len(ambiguous.Segments) != 2 {
		t.Errorf("error = %#v, want AmbiguousSegmentError with two segments", out.Err)
	}
	if got := out.Record.Trail(); len(got) != 1 || got[0].Name != "calc" {
		t.Errorf("trail = %v, want the prior entry only", got)
	}
	if got := out.Record.DeclineReasons(); !reflect.DeepEqual(got, []string{"Low income"}) {
		t.Errorf("decline_reasons = %v", got)
	}
	if _, ok := out.Record[string(strategy.StageAssignments)]; ok {
		t.Error("scratch key survived reconciliation")
	}
}

func TestReconcile_FaultMarker(t *testing.T) {
	rec := withResults(Record{KeyError: &population.UndefinedVariableError{Name: "age"}},
		strategy.StageScorecard, "s", &ScorecardResult{})

	out := Reconcile("requirements_module", strategy.StageRequirements, "Initial Requirements")(rec)
	if out.Kind != OutcomeFault {
		t.Fatalf("Kind = %v, want fault", out.Kind)
	}

	want := "Error in requirements module requirements_module: The Variable age is required by a Rule but is not defined."
	if out.Err.Error() != want {
		t.Errorf("message = %q, want %q", out.Err.Error(), want)
	}
	for _, st := range strategy.StageTypes {
		if _, ok := out.Record[string(st)]; ok {
			t.Errorf("scratch key %s survived", st)
		}
	}
	if _, ok := out.Record[KeyError]; !ok {
		t.Error("fault marker should be kept on the record")
	}
}

func TestReconcile_StringErrorFieldIsNotAFault(t *testing.T) {
	rec := Record{KeyError: "late payment on file", "age": 30}

	out := Reconcile("output_module", strategy.StageOutput, "Output")(rec)
	if out.Kind != OutcomeOK {
		t.Fatalf("Kind = %v, want ok: %v", out.Kind, out.Err)
	}
}

func TestCheckReserved(t *testing.T) {
	tests := []struct {
		name    string
		rec     map[string]any
		wantKey string
	}{
		{name: "plain record", rec: map[string]any{"age": 30, "message": "hi"}},
		{name: "error field", rec: map[string]any{"age": 30, KeyError: "x"}, wantKey: KeyError},
		{name: "first in order", rec: map[string]any{KeyError: "x", KeyPassed: true}, wantKey: KeyPassed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckReserved(tt.rec)
			if tt.wantKey == "" {
				if err != nil {
					t.Fatalf("CheckReserved() = %v, want nil", err)
				}
				return
			}
			var reserved *ReservedKeyError
			if !errors.As(err, &reserved) || reserved.Key != tt.wantKey {
				t.Errorf("CheckReserved() = %v, want key %q", err, tt.wantKey)
			}
		})
	}
}

func TestReconcile_Requirements(t *testing.T) {
	rec := withResults(Record{KeyDeclineReasons: []string{"Low income"}},
		strategy.StageRequirements, "segment_a", &RequirementsResult{
			Passed:         false,
			DeclineReasons: []string{"Low income", "Too young"},
			Rules: []RuleOutcome{
				{Name: "income", Passed: false, DeclineReason: "Low income"},
				{Name: "age", Passed: false, DeclineReason: "Too young"},
				{Name: "state", Passed: true, DeclineReason: "ignored"},
			},
		})

	out := Reconcile("requirements_module", strategy.StageRequirements, "Initial Requirements")(rec)
	if out.Kind != OutcomeDecline {
		t.Fatalf("Kind = %v, want decline", out.Kind)
	}

	want := []string{"Low income", "Too young"}
	if got := out.Record.DeclineReasons(); !reflect.DeepEqual(got, want) {
		t.Errorf("decline_reasons = %v, want %v", got, want)
	}
	if out.Record[KeyPassed] != false {
		t.Errorf("passed = %v, want false", out.Record[KeyPassed])
	}

	entry := toJSONMap(t, out.Record.Trail()[0])
	if entry["segment"] != "segment_a" || entry["passed"] != false {
		t.Errorf("entry = %v", entry)
	}
	rules := entry["rules"].([]any)
	if _, ok := rules[2].(map[string]any)["decline_reason"]; ok {
		t.Error("passing rule should not report a decline reason")
	}
	if rules[0].(map[string]any)["decline_reason"] != "Low income" {
		t.Errorf("rule[0] = %v", rules[0])
	}
}

func TestReconcile_RequirementsPass(t *testing.T) {
	rec := withResults(Record{}, strategy.StageRequirements, "s", &RequirementsResult{Passed: true})

	out := Reconcile("r", strategy.StageRequirements, "R")(rec)
	if out.Kind != OutcomeOK {
		t.Fatalf("Kind = %v, want ok", out.Kind)
	}
	if out.Record[KeyPassed] != true {
		t.Errorf("passed = %v, want true", out.Record[KeyPassed])
	}
}

func TestReconcile_DataIntegration(t *testing.T) {
	rec := Record{
		"dataintegration_variables": map[string]any{"prev_zillow_estimate": 400000},
		"prev_zillow_estimate":      400000,
	}
	rec = withResults(rec, strategy.StageDataIntegration, "segment_one", &DataIntegrationResult{
		Name:     "segment_one",
		Provider: "zillow",
		Status:   "success",
		Segment:  "segment_one",
		Output:   map[string]any{"current_zillow_estimate": 600000},
		Raw:      "<xml/>",
	})
	prev := rec["dataintegration_variables"].(map[string]any)

	out := Reconcile("zillow_module", strategy.StageDataIntegration, "Zillow")(rec)
	if out.Kind != OutcomeOK {
		t.Fatalf("Kind = %v, want ok", out.Kind)
	}

	vars := out.Record["dataintegration_variables"].(map[string]any)
	if vars["prev_zillow_estimate"] != 400000 || vars["current_zillow_estimate"] != 600000 {
		t.Errorf("dataintegration_variables = %v", vars)
	}
	if out.Record["current_zillow_estimate"] != 600000 {
		t.Error("provider output was not promoted")
	}

	sources := out.Record.dataSources()
	if len(sources) != 1 || sources[0].Name != "segment_one" || sources[0].Output["current_zillow_estimate"] != 600000 {
		t.Errorf("datasources = %v", sources)
	}

	if len(prev) != 1 {
		t.Error("previous namespace map was modified in place")
	}

	entry := toJSONMap(t, out.Record.Trail()[0])
	if entry["status"] != "success" || entry["name"] != "segment_one" {
		t.Errorf("entry = %v", entry)
	}
}

func TestReconcile_Inference(t *testing.T) {
	rec := withResults(Record{}, strategy.StageArtificialIntelligence, "seg", &InferenceResult{
		Name:           "risk_model",
		Segment:        "seg",
		Classification: "BINARY",
		OutputVariable: "binary_score",
		Output:         map[string]any{"binary_score": 0.7, "label": "good"},
	})

	out := Reconcile("ml_module", strategy.StageArtificialIntelligence, "ML")(rec)

	if out.Record["binary_score"] != 0.7 {
		t.Errorf("binary_score = %v, want 0.7", out.Record["binary_score"])
	}
	if _, ok := out.Record["label"]; ok {
		t.Error("only the nominated output variable should be promoted")
	}
	vars := out.Record["artificialintelligence_variables"].(map[string]any)
	if vars["label"] != "good" {
		t.Errorf("artificialintelligence_variables = %v", vars)
	}

	entry := toJSONMap(t, out.Record.Trail()[0])
	if entry["predicted_classification"] != "BINARY" || entry["binary_score"] != 0.7 || entry["name"] != "risk_model" {
		t.Errorf("entry = %v", entry)
	}
}

func TestReconcile_Scorecard(t *testing.T) {
	tests := []struct {
		name    string
		ov      string
		wantKey string
	}{
		{name: "default key", ov: "", wantKey: "score"},
		{name: "nominated key", ov: "credit_score", wantKey: "credit_score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := withResults(Record{}, strategy.StageScorecard, "s",
				&ScorecardResult{OutputVariable: tt.ov, Score: 640.0})

			out := Reconcile("score_module", strategy.StageScorecard, "Score")(rec)
			if out.Record[tt.wantKey] != 640.0 {
				t.Errorf("%s = %v, want 640", tt.wantKey, out.Record[tt.wantKey])
			}
			vars := out.Record["scorecard_variables"].(map[string]any)
			if vars[tt.wantKey] != 640.0 {
				t.Errorf("scorecard_variables = %v", vars)
			}
		})
	}
}

func TestReconcile_OutputRules(t *testing.T) {
	rec := withResults(Record{}, strategy.StageOutput, "s", &OutputResult{
		Values: map[string]any{"apr": 0.12},
		Rules: []RuleOutcome{
			{Name: "prime", Passed: true, Output: map[string]any{"apr": 0.12}},
		},
	})

	out := Reconcile("pricing", strategy.StageOutput, "Pricing")(rec)
	if out.Record["apr"] != 0.12 {
		t.Errorf("apr = %v", out.Record["apr"])
	}

	entry := toJSONMap(t, out.Record.Trail()[0])
	rule := entry["rules"].([]any)[0].(map[string]any)
	if rule["apr"] != 0.12 || rule["name"] != "prime" || rule["passed"] != true {
		t.Errorf("rule = %v", rule)
	}
}

func TestReconcile_ResultMismatch(t *testing.T) {
	rec := withResults(Record{}, strategy.StageOutput, "s", &ScorecardResult{})

	out := Reconcile("pricing", strategy.StageOutput, "Pricing")(rec)
	if out.Kind != OutcomeFault || !errors.Is(out.Err, ErrResultMismatch) {
		t.Errorf("outcome = %v %v, want fault with ErrResultMismatch", out.Kind, out.Err)
	}
}
