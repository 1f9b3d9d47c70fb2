// Package orchestrator selects the strategies that apply to an application
// and aggregates their decisions.
//
// The orchestrator keeps a compiled EngineSet behind an atomic pointer. Each
// engine carries population conditions; Evaluate runs every engine whose
// conditions hold, concurrently and on a private copy of the record, and
// folds the results into a CompositeDecision:
//
//	orch := orchestrator.New(st, runner, orchestrator.WithLogger(logger))
//	decision, err := orch.Evaluate(ctx, map[string]any{"age": 30})
//
// A record no engine accepts fails with *NoValidEngineError. Business
// declines are not errors; they surface as Passed == false.
package orchestrator
