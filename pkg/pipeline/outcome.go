package pipeline

// OutcomeKind tags the result of running one stage.
type OutcomeKind int

const (
	// OutcomeOK continues the pipeline with the returned record.
	OutcomeOK OutcomeKind = iota
	// OutcomeDecline stops the pipeline with a business decline.
	OutcomeDecline
	// OutcomeFault stops the pipeline with a system fault.
	OutcomeFault
)

// String returns the outcome label used in logs and metrics.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeDecline:
		return "decline"
	case OutcomeFault:
		return "fault"
	default:
		return "unknown"
	}
}

// Outcome is the record produced by a stage together with how the pipeline
// should proceed. Decline and fault outcomes carry the record as built up to
// the stop, including its audit trail.
type Outcome struct {
	Kind   OutcomeKind
	Record Record
	Err    error
}

// OK continues with rec.
func OK(rec Record) Outcome {
	return Outcome{Kind: OutcomeOK, Record: rec}
}

// Decline stops with a business decline.
func Decline(rec Record, err error) Outcome {
	return Outcome{Kind: OutcomeDecline, Record: rec, Err: err}
}

// Fault stops with a system fault.
func Fault(rec Record, err error) Outcome {
	return Outcome{Kind: OutcomeFault, Record: rec, Err: err}
}

// Continue reports whether the next stage should run.
func (o Outcome) Continue() bool {
	return o.Kind == OutcomeOK
}
