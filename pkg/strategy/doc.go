// Package strategy defines the document model for credit decision strategies.
//
// A strategy (EngineConfig) is an ordered list of stages (StageConfig). Each
// stage has a fixed type, a name, and one or more population segments
// (SegmentConfig). A segment carries the population conditions that select it
// for a record and the ruleset evaluated once it is selected.
//
// # Stage Types
//
// The set of stage types is closed:
//
//	requirements            - gating rules; a failure declines the application
//	scorecard               - weighted scoring into a nominated output variable
//	calculations            - scripted derived variables
//	assignments             - constant or copied values
//	output                  - rule-based outputs
//	dataintegration         - calls to external data providers
//	artificialintelligence  - calls to an inference service
//
// # Documents
//
// Strategies are decoded from YAML or JSON:
//
//	name: college_application.v2
//	organization: 5ac3c1acf51c090b00abe43e
//	status: active
//	module_run_order:
//	  - type: requirements
//	    name: requirements_module
//	    display_name: Initial Requirements
//	    lookup_name: init_requirements
//	    segments:
//	      - name: test_segment1
//	        ruleset:
//	          - rule_name: rule_0
//	            variable_name: age
//	            condition_test: GT
//	            value_comparison: 18
//	            condition_output:
//	              decline_reason: Failed Minimum Age Requirement
//
// Engine and segment names carrying a version suffix (".v2", ".v1.3") are
// normalized to their base name with NormalizeName.
package strategy
