// Package pipeline compiles decision strategies into ordered stage lists and
// runs records through them.
//
// # Architecture
//
//	EngineConfig
//	     ↓
//	Compiler (stages compiled concurrently, reassembled in declared order)
//	     ↓
//	[]*Stage   each = SegmentEvaluator + Reconcile reducer
//	     ↓
//	Pipeline.Evaluate(record)
//	     ↓
//	Decision (pass / structured decline / fault)
//
// # Stages
//
// A SegmentEvaluator selects the population segments of a stage that match
// the record, runs their evaluators against a snapshot, and stores the
// results under the stage type key (record["scorecard"], ...). The reducer
// returned by Reconcile then checks that at most one segment matched,
// merges the result into the stage type's aggregate namespace, appends an
// AuditEntry, and removes the scratch key.
//
// Each stage returns an Outcome: OK continues with the new record, Decline
// (a failed requirements stage) and Fault (an evaluator error or an
// ambiguous population) stop the run while keeping the audit trail built so
// far.
//
// # Namespaces
//
//	calculations            calculated_variables
//	assignments             assignment_variables
//	scorecard               scorecard_variables
//	output                  output_variables
//	dataintegration         dataintegration_variables (+ datasources)
//	artificialintelligence  artificialintelligence_variables
//
// Fields found in any namespace are reported as output variables; remaining
// scalar fields are input variables.
//
// # Usage
//
//	compiler := pipeline.NewCompiler(evaluators.Defaults(nil))
//	runner := pipeline.NewRunner(compiler, pipeline.WithLogger(logger))
//
//	p, err := runner.Build(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	decision := p.Evaluate(ctx, pipeline.Record{"age": 20})
package pipeline
