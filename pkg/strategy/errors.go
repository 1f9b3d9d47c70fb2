package strategy

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSegmentNameRequired indicates a segment without a name.
	ErrSegmentNameRequired = errors.New("segment name is required")

	// ErrUnknownStageType indicates a stage type outside the known set.
	ErrUnknownStageType = errors.New("unknown stage type")
)

// ValidationError describes a single problem in a strategy document.
type ValidationError struct {
	Engine string
	Field  string
	Err    error
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("strategy %s: %s: %v", e.Engine, e.Field, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidationErrors collects every problem found in a document.
type ValidationErrors []*ValidationError

// Error joins all messages.
func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (v ValidationErrors) Unwrap() []error {
	errs := make([]error, len(v))
	for i, e := range v {
		errs[i] = e
	}
	return errs
}
