package strategy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
name: college_application.v2
title: College application
organization: 5ac3c1acf51c090b00abe43e
status: active
module_run_order:
  - type: requirements
    module_name: requirements_module
    display_name: Initial Requirements
    lookup_name: init_requirements
    segments:
      - name: test_segment1
        ruleset:
          - rule_name: rule_0
            condition_test: GT
            value_comparison: 18
            value_comparison_type: value
            variable_name: age
            condition_output:
              decline_reason: Failed Minimum Age Requirement
`

func TestDecodeBytes_YAML(t *testing.T) {
	engines, err := DecodeBytes([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("DecodeBytes() error = %v", err)
	}
	if len(engines) != 1 {
		t.Fatalf("got %d engines, want 1", len(engines))
	}

	e := engines[0]
	if e.ShortName() != "college_application" {
		t.Errorf("ShortName() = %q, want college_application", e.ShortName())
	}
	if !e.Active() {
		t.Error("Active() = false, want true")
	}
	if len(e.Stages) != 1 {
		t.Fatalf("got %d stages, want 1", len(e.Stages))
	}

	stage := e.Stages[0]
	if stage.StageName() != "requirements_module" {
		t.Errorf("StageName() = %q, want requirements_module", stage.StageName())
	}
	if stage.Key(0) != "init_requirements" {
		t.Errorf("Key() = %q, want init_requirements", stage.Key(0))
	}

	rule := stage.Segments[0].Ruleset[0]
	if rule.Name != "rule_0" || rule.VariableName != "age" || rule.Test != "GT" {
		t.Errorf("unexpected rule %+v", rule)
	}
	if rule.DeclineReason() != "Failed Minimum Age Requirement" {
		t.Errorf("DeclineReason() = %q", rule.DeclineReason())
	}
	if rule.ValueComparison != 18 {
		t.Errorf("ValueComparison = %v (%T), want 18", rule.ValueComparison, rule.ValueComparison)
	}
}

func TestDecodeBytes_JSONAndMultiDocument(t *testing.T) {
	data := []byte(`{"name": "a", "organization": "org", "module_run_order": []}
---
name: b
organization: org
status: inactive
module_run_order: []
`)

	engines, err := DecodeBytes(data)
	if err != nil {
		t.Fatalf("DecodeBytes() error = %v", err)
	}
	if len(engines) != 2 {
		t.Fatalf("got %d engines, want 2", len(engines))
	}
	if engines[1].Active() {
		t.Error("engine b should be inactive")
	}
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "college.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	engines, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile() error = %v", err)
	}
	if engines[0].SourceFile != path {
		t.Errorf("SourceFile = %q, want %q", engines[0].SourceFile, path)
	}

	if _, err := DecodeFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("DecodeFile() on missing file should fail")
	}
}

func TestEngineConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     EngineConfig
		wantErr error
		wantOK  bool
	}{
		{
			name: "valid",
			cfg: EngineConfig{Name: "e", Stages: []StageConfig{
				{Type: StageRequirements, Name: "r", Segments: []SegmentConfig{{Name: "s"}}},
			}},
			wantOK: true,
		},
		{
			name: "segment without name",
			cfg: EngineConfig{Name: "e", Stages: []StageConfig{
				{Type: StageScorecard, Name: "r", Segments: []SegmentConfig{{}}},
			}},
			wantErr: ErrSegmentNameRequired,
		},
		{
			name: "unknown stage type",
			cfg: EngineConfig{Name: "e", Stages: []StageConfig{
				{Type: "email", Name: "r"},
			}},
			wantErr: ErrUnknownStageType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantOK {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
