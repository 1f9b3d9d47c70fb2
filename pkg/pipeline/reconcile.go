package pipeline

import (
	"fmt"

	"mercator-hq/underwriter/pkg/strategy"
)

// Reducer folds the scratch results of one stage into the record.
type Reducer func(rec Record) Outcome

// Reconcile returns the reducer for a stage. It enforces that at most one
// segment matched, merges the matched result into the stage type's
// namespace, appends the stage's audit entry, and removes the scratch key.
//
// A fault marker left by an evaluator turns into a fault outcome. A failed
// requirements stage turns into a decline outcome.
func Reconcile(stageName string, t strategy.StageType, displayName string) Reducer {
	return func(rec Record) Outcome {
		if cause, ok := rec.fault(); ok {
			rec.clearScratch()
			return Fault(rec, &StageFaultError{StageName: stageName, StageType: t, Cause: cause})
		}

		scoped := rec.Scoped(t)
		delete(rec, string(t))

		switch n := scoped.Len(); {
		case n > 1:
			return Fault(rec, &AmbiguousSegmentError{StageName: stageName, StageType: t, Segments: scoped.Names()})
		case n == 0:
			rec.appendAudit(emptyEntry(t, stageName, displayName))
			return OK(rec)
		}

		segment, result, _ := scoped.Cursor().Next()
		if result.Type() != t {
			return Fault(rec, &StageFaultError{
				StageName: stageName,
				StageType: t,
				Cause:     fmt.Errorf("%w: got %s", ErrResultMismatch, result.Type()),
			})
		}

		entry := AuditEntry{
			Type:        t,
			Name:        stageName,
			DisplayName: displayName,
			Segment:     segment,
		}

		switch res := result.(type) {
		case *RequirementsResult:
			return mergeRequirements(rec, entry, res)
		case *ScorecardResult:
			mergeScorecard(rec, entry, res)
		case *CalculationsResult:
			mergeValues(rec, entry, t, res.Values, nil)
		case *AssignmentsResult:
			mergeValues(rec, entry, t, res.Values, nil)
		case *OutputResult:
			mergeValues(rec, entry, t, res.Values, res.Rules)
		case *DataIntegrationResult:
			mergeDataIntegration(rec, entry, res)
		case *InferenceResult:
			mergeInference(rec, entry, res)
		}

		return OK(rec)
	}
}

// mergeRequirements accumulates decline reasons without duplicates and sets
// the passed flag. A failing segment declines the application.
func mergeRequirements(rec Record, entry AuditEntry, res *RequirementsResult) Outcome {
	prev := rec.DeclineReasons()
	reasons := make([]string, 0, len(prev)+len(res.DeclineReasons))
	seen := make(map[string]bool)
	for _, r := range append(append([]string(nil), prev...), res.DeclineReasons...) {
		if seen[r] {
			continue
		}
		seen[r] = true
		reasons = append(reasons, r)
	}
	rec[KeyDeclineReasons] = reasons
	rec[KeyPassed] = res.Passed

	passed := res.Passed
	entry.Passed = &passed
	entry.DeclineReasons = res.DeclineReasons
	entry.Rules = make([]RuleOutcome, len(res.Rules))
	for i, rule := range res.Rules {
		entry.Rules[i] = RuleOutcome{Name: rule.Name, Passed: rule.Passed}
		if !rule.Passed {
			entry.Rules[i].DeclineReason = rule.DeclineReason
		}
	}
	rec.appendAudit(entry)

	if !res.Passed {
		return Decline(rec, &DeclineError{StageName: entry.Name, Reasons: reasons})
	}
	return OK(rec)
}

// mergeScorecard writes the score to its nominated variable.
func mergeScorecard(rec Record, entry AuditEntry, res *ScorecardResult) {
	key := res.scoreKey()
	rec.mergeNamespace(strategy.StageScorecard, map[string]any{key: res.Score}, true)

	ov := res.OutputVariable
	entry.OutputVariable = &ov
	entry.Rules = res.Rules
	entry.Values = map[string]any{key: res.Score}
	rec.appendAudit(entry)
}

// mergeValues promotes every produced value and records it in the stage's
// namespace.
func mergeValues(rec Record, entry AuditEntry, t strategy.StageType, values map[string]any, rules []RuleOutcome) {
	rec.mergeNamespace(t, values, true)

	entry.Values = values
	entry.Rules = rules
	rec.appendAudit(entry)
}

// mergeDataIntegration promotes the provider output and keeps the call record
// for the decision's data sources.
func mergeDataIntegration(rec Record, entry AuditEntry, res *DataIntegrationResult) {
	rec.mergeNamespace(strategy.StageDataIntegration, res.Output, true)

	prev := rec.dataSources()
	sources := make([]*DataIntegrationResult, len(prev), len(prev)+1)
	copy(sources, prev)
	rec[KeyDataSources] = append(sources, res)

	overrideIdentity(&entry, res.Name, res.Segment)
	entry.Status = res.Status
	rec.appendAudit(entry)
}

// mergeInference records the inference output and promotes only the
// nominated output variable.
func mergeInference(rec Record, entry AuditEntry, res *InferenceResult) {
	rec.mergeNamespace(strategy.StageArtificialIntelligence, res.Output, false)
	if res.OutputVariable != "" && res.Output != nil {
		rec[res.OutputVariable] = res.Output[res.OutputVariable]
	}

	overrideIdentity(&entry, res.Name, res.Segment)
	entry.PredictedClassification = res.Classification
	entry.Values = res.Output
	rec.appendAudit(entry)
}

// overrideIdentity reports the integration's own name and segment when the
// provider call supplied them.
func overrideIdentity(entry *AuditEntry, name, segment string) {
	if name != "" {
		entry.Name = name
	}
	if segment != "" {
		entry.Segment = segment
	}
}
