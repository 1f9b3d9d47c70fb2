// Package evaluators provides the default evaluator generators for every
// stage type.
//
//	requirements            every rule must pass; failing rules report their decline_reason
//	scorecard               initial_score plus the weight of every passing rule
//	calculations            Lua expressions evaluated in declaration order
//	assignments             constants or copies of record variables
//	output                  condition_output of every passing rule
//	dataintegration         HTTP call to a data provider, response mapped with gjson paths
//	artificialintelligence  HTTP call to an inference service
//
// Defaults wires them into a pipeline.Generators:
//
//	gens := evaluators.Defaults(&evaluators.Options{
//	    HTTPClient: &http.Client{Timeout: 5 * time.Second},
//	})
//	compiler := pipeline.NewCompiler(gens)
package evaluators
