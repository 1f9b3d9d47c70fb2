package strategy

import (
	"fmt"
	"strings"
)

// StageType identifies the kind of work a stage performs.
type StageType string

const (
	StageRequirements           StageType = "requirements"
	StageScorecard              StageType = "scorecard"
	StageCalculations           StageType = "calculations"
	StageAssignments            StageType = "assignments"
	StageOutput                 StageType = "output"
	StageDataIntegration        StageType = "dataintegration"
	StageArtificialIntelligence StageType = "artificialintelligence"
)

// StageTypes lists every stage type in a stable order.
var StageTypes = []StageType{
	StageRequirements,
	StageScorecard,
	StageCalculations,
	StageAssignments,
	StageOutput,
	StageDataIntegration,
	StageArtificialIntelligence,
}

// Valid reports whether t is one of the known stage types.
func (t StageType) Valid() bool {
	switch t {
	case StageRequirements, StageScorecard, StageCalculations, StageAssignments,
		StageOutput, StageDataIntegration, StageArtificialIntelligence:
		return true
	}
	return false
}

// DisplayLabel returns the human readable label recorded in audit entries.
func (t StageType) DisplayLabel() string {
	switch t {
	case StageRequirements:
		return "Requirements Rules"
	case StageScorecard:
		return "Scoring Model"
	case StageOutput:
		return "Rule Based Output"
	case StageAssignments:
		return "Simple Output"
	case StageCalculations:
		return "Calculation Scripts"
	case StageDataIntegration:
		return "Data Integration"
	case StageArtificialIntelligence:
		return "AI Model"
	default:
		return string(t)
	}
}

// EngineConfig is a complete decision strategy.
type EngineConfig struct {
	ID           string `yaml:"id,omitempty" json:"id,omitempty"`
	Name         string `yaml:"name" json:"name"`
	Title        string `yaml:"title,omitempty" json:"title,omitempty"`
	Organization string `yaml:"organization" json:"organization"`
	Status       string `yaml:"status,omitempty" json:"status,omitempty"`
	Version      int    `yaml:"version,omitempty" json:"version,omitempty"`

	// Conditions select this engine for a record at the orchestrator level.
	// An engine without conditions matches every record.
	Conditions []Condition `yaml:"conditions,omitempty" json:"conditions,omitempty"`

	// Stages run in the declared order.
	Stages []StageConfig `yaml:"module_run_order" json:"module_run_order"`

	InputVariables  []Variable `yaml:"input_variables,omitempty" json:"input_variables,omitempty"`
	OutputVariables []Variable `yaml:"output_variables,omitempty" json:"output_variables,omitempty"`

	// SourceFile is set by file based stores.
	SourceFile string `yaml:"-" json:"-"`
}

// ShortName returns the engine name without its version suffix.
func (e *EngineConfig) ShortName() string {
	return NormalizeName(e.Name)
}

// Active reports whether the engine is eligible for evaluation.
// An empty status is treated as active.
func (e *EngineConfig) Active() bool {
	return e.Status == "" || strings.EqualFold(e.Status, "active")
}

// Variable is an entry of an engine's declared input or output catalog.
type Variable struct {
	Name     string `yaml:"name" json:"name"`
	DataType string `yaml:"data_type,omitempty" json:"data_type,omitempty"`
	Required bool   `yaml:"required,omitempty" json:"required,omitempty"`
}

// StageConfig configures one stage of an engine.
type StageConfig struct {
	Type        StageType `yaml:"type" json:"type"`
	Name        string    `yaml:"name,omitempty" json:"name,omitempty"`
	ModuleName  string    `yaml:"module_name,omitempty" json:"module_name,omitempty"`
	DisplayName string    `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	LookupName  string    `yaml:"lookup_name,omitempty" json:"lookup_name,omitempty"`

	Segments []SegmentConfig `yaml:"segments" json:"segments"`

	Integration *IntegrationConfig `yaml:"dataintegration,omitempty" json:"dataintegration,omitempty"`
	Inference   *InferenceConfig   `yaml:"inference,omitempty" json:"inference,omitempty"`
}

// StageName returns the stage's name, falling back to module_name.
func (s *StageConfig) StageName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ModuleName
}

// Key returns the identifier used to collect compiled stages.
func (s *StageConfig) Key(index int) string {
	if s.LookupName != "" {
		return s.LookupName
	}
	return fmt.Sprintf("%s_%d", s.StageName(), index)
}

// SegmentConfig is one population segment of a stage.
type SegmentConfig struct {
	Name       string      `yaml:"name" json:"name"`
	Conditions []Condition `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Ruleset    []Rule      `yaml:"ruleset,omitempty" json:"ruleset,omitempty"`

	// OutputVariable nominates the variable a scorecard or inference
	// stage writes to.
	OutputVariable string  `yaml:"output_variable,omitempty" json:"output_variable,omitempty"`
	InitialScore   float64 `yaml:"initial_score,omitempty" json:"initial_score,omitempty"`

	// Inputs maps provider request fields to record variables for data
	// integrations and inference calls.
	Inputs map[string]string `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	// Outputs maps record variables to gjson paths in a provider response.
	Outputs map[string]string `yaml:"outputs,omitempty" json:"outputs,omitempty"`
}

// ComparisonType tells a condition where its comparison value comes from.
type ComparisonType string

const (
	// CompareValue compares against the literal value.
	CompareValue ComparisonType = "value"
	// CompareVariable compares against another record variable.
	CompareVariable ComparisonType = "variable"
)

// Condition is a single comparison of a record variable.
type Condition struct {
	VariableName        string         `yaml:"variable_name" json:"variable_name"`
	Test                string         `yaml:"condition_test" json:"condition_test"`
	ValueComparison     any            `yaml:"value_comparison,omitempty" json:"value_comparison,omitempty"`
	ValueComparisonType ComparisonType `yaml:"value_comparison_type,omitempty" json:"value_comparison_type,omitempty"`
	ValueMinimum        any            `yaml:"value_minimum,omitempty" json:"value_minimum,omitempty"`
	ValueMaximum        any            `yaml:"value_maximum,omitempty" json:"value_maximum,omitempty"`
	MinimumType         ComparisonType `yaml:"value_minimum_type,omitempty" json:"value_minimum_type,omitempty"`
	MaximumType         ComparisonType `yaml:"value_maximum_type,omitempty" json:"value_maximum_type,omitempty"`

	// RuleType is the connective joining the condition to its list. AND
	// (or empty) conditions are all required; the OR conditions of a list
	// form one disjunction that needs at least one hit.
	RuleType RuleType `yaml:"rule_type,omitempty" json:"rule_type,omitempty"`
}

// RuleType is the connective of a Condition.
type RuleType string

// Condition connectives.
const (
	RuleAnd RuleType = "AND"
	RuleOr  RuleType = "OR"
)

// IsOr reports whether t is OR, ignoring case and surrounding space.
func (t RuleType) IsOr() bool {
	return strings.EqualFold(strings.TrimSpace(string(t)), string(RuleOr))
}

// Rule is a named condition with an output used by the stage ruleset.
type Rule struct {
	Condition `yaml:",inline"`

	Name string `yaml:"rule_name" json:"rule_name"`

	// Weight is the scorecard contribution when the rule passes.
	Weight float64 `yaml:"weight,omitempty" json:"weight,omitempty"`

	// Value is the assigned value for assignments, or the Lua expression
	// for calculations.
	Value any `yaml:"value,omitempty" json:"value,omitempty"`

	// Output names the variable an assignment, calculation or output rule
	// writes.
	Output string `yaml:"output_variable,omitempty" json:"output_variable,omitempty"`

	// ConditionOutput is reported when the rule's condition is relevant:
	// the decline reason of a failing requirement, or the values of a
	// passing output rule.
	ConditionOutput map[string]any `yaml:"condition_output,omitempty" json:"condition_output,omitempty"`
}

// DeclineReason returns the decline reason configured on the rule.
func (r *Rule) DeclineReason() string {
	if r.ConditionOutput == nil {
		return ""
	}
	if s, ok := r.ConditionOutput["decline_reason"].(string); ok {
		return s
	}
	return ""
}

// IntegrationConfig describes an external data provider call.
type IntegrationConfig struct {
	Name     string            `yaml:"name" json:"name"`
	Provider string            `yaml:"provider" json:"provider"`
	URL      string            `yaml:"url" json:"url"`
	Method   string            `yaml:"method,omitempty" json:"method,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// InferenceConfig describes an inference service call.
type InferenceConfig struct {
	Name  string `yaml:"name" json:"name"`
	URL   string `yaml:"url" json:"url"`
	Model string `yaml:"model,omitempty" json:"model,omitempty"`

	// ClassificationPath and ScorePath are gjson paths into the response.
	ClassificationPath string `yaml:"classification_path,omitempty" json:"classification_path,omitempty"`
	ScorePath          string `yaml:"score_path,omitempty" json:"score_path,omitempty"`
}
