package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"mercator-hq/underwriter/pkg/strategy"
)

var (
	// ErrResultMismatch indicates an evaluator returned a result variant that
	// does not belong to its stage type.
	ErrResultMismatch = errors.New("stage result does not match stage type")

	// ErrDuplicateStage indicates two stages share a lookup name.
	ErrDuplicateStage = errors.New("duplicate stage lookup name")
)

// AmbiguousSegmentError is returned when more than one population segment of
// a stage matched the record.
type AmbiguousSegmentError struct {
	StageName string
	StageType strategy.StageType
	Segments  []string
}

// Error returns the error message.
func (e *AmbiguousSegmentError) Error() string {
	return fmt.Sprintf("Error in %s decision module: The decision request falls into multiple population segments and could not be processed.",
		strategy.TitleWords(e.StageName))
}

// StageFaultError wraps an evaluator failure with the stage it happened in.
type StageFaultError struct {
	StageName string
	StageType strategy.StageType
	Cause     error
}

// Error returns the error message.
func (e *StageFaultError) Error() string {
	return fmt.Sprintf("Error in %s module %s: %v", e.StageType, e.StageName, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StageFaultError) Unwrap() error {
	return e.Cause
}

// DeclineError reports a failed requirements stage. It is a business outcome
// rather than a system fault.
type DeclineError struct {
	StageName string
	Reasons   []string
}

// Error returns the error message.
func (e *DeclineError) Error() string {
	if len(e.Reasons) == 0 {
		return fmt.Sprintf("declined by %s", e.StageName)
	}
	return fmt.Sprintf("declined by %s: %s", e.StageName, strings.Join(e.Reasons, ", "))
}

// CompilationError reports a stage that could not be compiled.
type CompilationError struct {
	Engine  string
	Stage   string
	Segment string
	Err     error
}

// Error returns the error message.
func (e *CompilationError) Error() string {
	var b strings.Builder
	b.WriteString("compile")
	if e.Engine != "" {
		fmt.Fprintf(&b, " engine %s", e.Engine)
	}
	if e.Stage != "" {
		fmt.Fprintf(&b, " stage %s", e.Stage)
	}
	if e.Segment != "" {
		fmt.Fprintf(&b, " segment %s", e.Segment)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *CompilationError) Unwrap() error {
	return e.Err
}

// ReservedKeyError reports an input record carrying a key the pipeline
// reserves for decision state.
type ReservedKeyError struct {
	Key string
}

func (e *ReservedKeyError) Error() string {
	return fmt.Sprintf("field %q is reserved for decision state", e.Key)
}
