package orchestrator

import (
	"errors"
	"fmt"

	"mercator-hq/underwriter/pkg/pipeline"
)

// ErrNoSource indicates an orchestrator without a strategy source.
var ErrNoSource = errors.New("no strategy source configured")

// NoValidEngineError is returned when no engine's population conditions
// hold for the record.
type NoValidEngineError struct {
	// Engines is the number of engines that were considered.
	Engines int
}

// Error returns the error message.
func (e *NoValidEngineError) Error() string {
	return "could not find valid segment given input data"
}

// AmbiguousSegmentError is re-exported so callers can match stage level
// ambiguity without importing the pipeline package.
type AmbiguousSegmentError = pipeline.AmbiguousSegmentError

// EngineError wraps a failure compiling or matching one engine.
type EngineError struct {
	Engine string
	Err    error
}

// Error returns the error message.
func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Engine, e.Err)
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Err
}
