// Underwriter is a credit decision runtime. It evaluates application
// records against strategy documents, each a sequence of requirements,
// scorecard, calculation, assignment, output, data integration and
// inference stages, and returns a composite decision.
//
// Usage:
//
//	# Serve the decision API
//	underwriter run --config /etc/underwriter/config.yaml
//
//	# Evaluate one application offline
//	underwriter evaluate --strategies ./strategies --input application.json
//
//	# Check that every strategy document compiles
//	underwriter validate --strategies ./strategies
//
//	# Inspect recorded decisions
//	underwriter audit query --outcome decline --limit 20
package main

func main() {
	Execute()
}
