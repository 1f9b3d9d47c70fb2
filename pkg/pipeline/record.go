package pipeline

import (
	"reflect"

	"mercator-hq/underwriter/pkg/strategy"
)

// Reserved record keys.
const (
	KeyPassed         = "passed"
	KeyDeclineReasons = "decline_reasons"
	KeyCreditProcess  = "credit_process"
	KeyDataSources    = "datasources"
	KeyError          = "error"
	KeyStrategyStatus = "strategy_status"
)

// Record is the evolving data of one decision request.
//
// A Record is cloned shallowly before every stage. Nested values written by
// the pipeline (namespaces, the audit trail, data sources) are replaced rather
// than modified so earlier clones, including the caller's record, are never
// changed.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r)+4)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Namespace returns the aggregate namespace owned by a stage type. The
// requirements stage owns none.
func Namespace(t strategy.StageType) string {
	switch t {
	case strategy.StageCalculations:
		return "calculated_variables"
	case strategy.StageAssignments:
		return "assignment_variables"
	case strategy.StageScorecard:
		return "scorecard_variables"
	case strategy.StageOutput:
		return "output_variables"
	case strategy.StageDataIntegration:
		return "dataintegration_variables"
	case strategy.StageArtificialIntelligence:
		return "artificialintelligence_variables"
	default:
		return ""
	}
}

// Namespaces lists every aggregate namespace.
func Namespaces() []string {
	var out []string
	for _, t := range strategy.StageTypes {
		if ns := Namespace(t); ns != "" {
			out = append(out, ns)
		}
	}
	return out
}

// Scoped returns the scratch results stored for stage type t, or nil.
func (r Record) Scoped(t strategy.StageType) *Scoped {
	s, _ := r[string(t)].(*Scoped)
	return s
}

// clearScratch removes every stage-scratch key.
func (r Record) clearScratch() {
	for _, t := range strategy.StageTypes {
		delete(r, string(t))
	}
}

// mergeNamespace copies the namespace for t, adds values to it, and promotes
// each value to the top level.
func (r Record) mergeNamespace(t strategy.StageType, values map[string]any, promote bool) {
	ns := Namespace(t)
	merged := make(map[string]any)
	if prev, ok := r[ns].(map[string]any); ok {
		for k, v := range prev {
			merged[k] = v
		}
	}
	for k, v := range values {
		merged[k] = v
		if promote {
			r[k] = v
		}
	}
	r[ns] = merged
}

// DeclineReasons returns the accumulated decline reasons.
func (r Record) DeclineReasons() []string {
	reasons, _ := r[KeyDeclineReasons].([]string)
	return reasons
}

// Trail returns the audit trail accumulated so far.
func (r Record) Trail() []AuditEntry {
	trail, _ := r[KeyCreditProcess].([]AuditEntry)
	return trail
}

// appendAudit adds entry to a fresh copy of the audit trail.
func (r Record) appendAudit(entry AuditEntry) {
	prev := r.Trail()
	trail := make([]AuditEntry, len(prev), len(prev)+1)
	copy(trail, prev)
	r[KeyCreditProcess] = append(trail, entry)
}

// dataSources returns the data integration results recorded so far.
func (r Record) dataSources() []*DataIntegrationResult {
	ds, _ := r[KeyDataSources].([]*DataIntegrationResult)
	return ds
}

// fault returns the fault marker, if any. Only an error value set by a
// failing evaluator counts; applicant data under the same key does not.
func (r Record) fault() (error, bool) {
	err, ok := r[KeyError].(error)
	return err, ok && err != nil
}

// ReservedKeys are the record keys the pipeline writes decision state to.
// Callers must not supply them.
var ReservedKeys = []string{
	KeyPassed,
	KeyDeclineReasons,
	KeyCreditProcess,
	KeyDataSources,
	KeyError,
	KeyStrategyStatus,
}

// CheckReserved returns a *ReservedKeyError for the first reserved key rec
// carries, in ReservedKeys order.
func CheckReserved(rec map[string]any) error {
	for _, k := range ReservedKeys {
		if _, ok := rec[k]; ok {
			return &ReservedKeyError{Key: k}
		}
	}
	return nil
}

// isObject reports whether v is a structured value rather than a scalar.
func isObject(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer, reflect.Interface:
		return true
	}
	return false
}
