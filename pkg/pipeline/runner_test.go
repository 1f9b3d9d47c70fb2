package pipeline

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"mercator-hq/underwriter/pkg/strategy"
)

func buildPipeline(t *testing.T, cfg *strategy.EngineConfig, opts ...RunnerOption) *Pipeline {
	t.Helper()
	p, err := NewRunner(NewCompiler(testGenerators()), opts...).Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return p
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestPipeline_Requirements(t *testing.T) {
	p := buildPipeline(t, sampleEngine())

	tests := []struct {
		name        string
		record      Record
		wantKind    OutcomeKind
		wantPassed  bool
		wantReasons []string
		wantMessage string
		wantError   string
		wantKeys    []string
	}{
		{
			name:        "passes minimum age",
			record:      Record{"age": 20},
			wantKind:    OutcomeOK,
			wantPassed:  true,
			wantReasons: []string{},
			wantKeys:    []string{"data_sources", "decline_reasons", "input_variables", "output_variables", "passed", "processing_detail"},
		},
		{
			name:        "fails minimum age",
			record:      Record{"age": 16},
			wantKind:    OutcomeDecline,
			wantPassed:  false,
			wantReasons: []string{"Failed Minimum Age Requirement"},
			wantKeys:    []string{"data_sources", "decline_reasons", "input_variables", "output_variables", "passed", "processing_detail"},
		},
		{
			name:        "missing variable",
			record:      Record{},
			wantKind:    OutcomeFault,
			wantPassed:  false,
			wantMessage: "Error in requirements module requirements_module: The Variable age is required by a Rule but is not defined.",
			wantError:   "The Variable age is required by a Rule but is not defined.",
			wantKeys:    []string{"data_sources", "error", "input_variables", "message", "output_variables", "passed", "processing_detail"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Evaluate(context.Background(), tt.record)

			if d.Kind != tt.wantKind {
				t.Fatalf("Kind = %v, want %v (err %v)", d.Kind, tt.wantKind, d.Err)
			}
			if d.Passed != tt.wantPassed {
				t.Errorf("Passed = %v, want %v", d.Passed, tt.wantPassed)
			}
			if tt.wantReasons != nil && !reflect.DeepEqual(d.DeclineReasons, tt.wantReasons) {
				t.Errorf("DeclineReasons = %v, want %v", d.DeclineReasons, tt.wantReasons)
			}
			if d.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", d.Message, tt.wantMessage)
			}
			if d.Error != tt.wantError {
				t.Errorf("Error = %q, want %q", d.Error, tt.wantError)
			}

			if tt.wantKind != OutcomeFault {
				if len(d.ProcessingDetail) != 1 {
					t.Errorf("ProcessingDetail length = %d, want 1", len(d.ProcessingDetail))
				}
				if d.InputVariables["age"] != tt.record["age"] {
					t.Errorf("input_variables.age = %v", d.InputVariables["age"])
				}
			}

			if got := sortedKeys(toJSONMap(t, d)); !reflect.DeepEqual(got, tt.wantKeys) {
				t.Errorf("decision keys = %v, want %v", got, tt.wantKeys)
			}
		})
	}
}

func TestPipeline_ZeroStages(t *testing.T) {
	p := buildPipeline(t, &strategy.EngineConfig{Name: "empty"})

	rec := Record{"age": 20, "address": map[string]any{"zip": "10001"}}
	d := p.Evaluate(context.Background(), rec)

	if !d.Passed || d.Kind != OutcomeOK {
		t.Errorf("Passed = %v, Kind = %v, want pass", d.Passed, d.Kind)
	}
	if len(d.DeclineReasons) != 0 || len(d.OutputVariables) != 0 || len(d.ProcessingDetail) != 0 {
		t.Errorf("decision = %+v, want empty reasons, outputs and detail", d)
	}
	if !reflect.DeepEqual(d.InputVariables, map[string]any(rec)) {
		t.Errorf("InputVariables = %v, want the record", d.InputVariables)
	}
}

func fullEngine() *strategy.EngineConfig {
	seg := []strategy.SegmentConfig{{Name: "all"}}
	return &strategy.EngineConfig{
		Name: "personal_loan.v4",
		Stages: []strategy.StageConfig{
			{Type: strategy.StageDataIntegration, Name: "bureau_pull", Segments: seg},
			{Type: strategy.StageCalculations, Name: "ratios", Segments: seg},
			{Type: strategy.StageScorecard, Name: "risk_score", Segments: []strategy.SegmentConfig{{Name: "all", OutputVariable: "risk"}}},
			{Type: strategy.StageArtificialIntelligence, Name: "ml_module", Segments: seg},
			{Type: strategy.StageAssignments, Name: "tiering", Segments: seg},
			{Type: strategy.StageOutput, Name: "pricing", Segments: seg},
		},
	}
}

func TestPipeline_FullRun(t *testing.T) {
	p := buildPipeline(t, fullEngine())
	if p.Engine() != "personal_loan" {
		t.Errorf("Engine() = %q, want personal_loan", p.Engine())
	}

	rec := Record{"age": 30, "income": 85000, "applicant": map[string]any{"name": "x"}}
	d := p.Evaluate(context.Background(), rec)

	if d.Kind != OutcomeOK || !d.Passed {
		t.Fatalf("decision = %+v, want pass", d)
	}

	wantOutputs := []string{"apr", "binary_score", "dti", "fico", "risk", "tier"}
	if got := sortedKeys(d.OutputVariables); !reflect.DeepEqual(got, wantOutputs) {
		t.Errorf("output_variables = %v, want %v", got, wantOutputs)
	}
	if d.OutputVariables["tier"] != "all" {
		t.Errorf("tier = %v", d.OutputVariables["tier"])
	}

	wantInputs := []string{"age", "income"}
	if got := sortedKeys(d.InputVariables); !reflect.DeepEqual(got, wantInputs) {
		t.Errorf("input_variables = %v, want %v", got, wantInputs)
	}

	if len(d.ProcessingDetail) != 6 {
		t.Fatalf("ProcessingDetail length = %d, want 6", len(d.ProcessingDetail))
	}
	wantTypes := []strategy.StageType{
		strategy.StageDataIntegration, strategy.StageCalculations, strategy.StageScorecard,
		strategy.StageArtificialIntelligence, strategy.StageAssignments, strategy.StageOutput,
	}
	for i, e := range d.ProcessingDetail {
		if e.Type != wantTypes[i] {
			t.Errorf("detail[%d].Type = %s, want %s", i, e.Type, wantTypes[i])
		}
	}

	if len(d.DataSources) != 1 || d.DataSources[0].Provider != "acme" || d.DataSources[0].Data != `{"fico":720}` {
		t.Errorf("DataSources = %+v", d.DataSources)
	}

	if len(rec) != 3 {
		t.Errorf("caller record was modified: %v", rec)
	}
}

func TestPipeline_AmbiguousStopsRun(t *testing.T) {
	cfg := &strategy.EngineConfig{Name: "e", Stages: []strategy.StageConfig{
		{Type: strategy.StageCalculations, Name: "ratios", Segments: []strategy.SegmentConfig{{Name: "all"}}},
		{Type: strategy.StageAssignments, Name: "assignments_module", Segments: []strategy.SegmentConfig{{Name: "one"}, {Name: "two"}}},
		{Type: strategy.StageOutput, Name: "pricing", Segments: []strategy.SegmentConfig{{Name: "all"}}},
	}}
	p := buildPipeline(t, cfg)

	d := p.Evaluate(context.Background(), Record{"age": 1})
	if d.Kind != OutcomeFault {
		t.Fatalf("Kind = %v, want fault", d.Kind)
	}
	if d.Message != "Error in Assignments Module decision module: The decision request falls into multiple population segments and could not be processed." {
		t.Errorf("Message = %q", d.Message)
	}
	if len(d.ProcessingDetail) != 1 || d.ProcessingDetail[0].Name != "ratios" {
		t.Errorf("ProcessingDetail = %+v, want only the calculations stage", d.ProcessingDetail)
	}
	if d.OutputVariables["dti"] != 0.25 {
		t.Errorf("output_variables = %v, want dti from the completed stage", d.OutputVariables)
	}
	if _, ok := d.OutputVariables["apr"]; ok {
		t.Error("stage after the fault should not run")
	}
}

type recordingObserver struct {
	mu        sync.Mutex
	stages    []strategy.StageType
	decisions []string
}

func (o *recordingObserver) ObserveStage(_ string, st strategy.StageType, _ OutcomeKind, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, st)
}

func (o *recordingObserver) ObserveDecision(_ string, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.decisions = append(o.decisions, outcome)
}

func TestPipeline_Observer(t *testing.T) {
	obs := &recordingObserver{}
	p := buildPipeline(t, sampleEngine(), WithObserver(obs))

	p.Evaluate(context.Background(), Record{"age": 16})

	if len(obs.stages) != 1 || obs.stages[0] != strategy.StageRequirements {
		t.Errorf("stages = %v", obs.stages)
	}
	if len(obs.decisions) != 1 || obs.decisions[0] != "decline" {
		t.Errorf("decisions = %v", obs.decisions)
	}
}

func BenchmarkPipeline_Evaluate(b *testing.B) {
	p, err := NewRunner(NewCompiler(testGenerators())).Build(context.Background(), fullEngine())
	if err != nil {
		b.Fatal(err)
	}
	rec := Record{"age": 30, "income": 85000}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = p.Evaluate(context.Background(), rec)
	}
}
