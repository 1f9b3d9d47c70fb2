package population

import (
	"errors"
	"fmt"
)

// ErrUnknownConditionTest indicates an unsupported condition_test.
var ErrUnknownConditionTest = errors.New("unknown condition test")

// UndefinedVariableError is returned when a condition references a variable
// the record does not define.
type UndefinedVariableError struct {
	Name string
}

// Error returns the error message.
func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("The Variable %s is required by a Rule but is not defined.", e.Name)
}

// ConditionError wraps a failure evaluating one condition.
type ConditionError struct {
	Variable string
	Test     string
	Cause    error
}

// Error returns the error message.
func (e *ConditionError) Error() string {
	return fmt.Sprintf("condition %s %s: %v", e.Variable, e.Test, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ConditionError) Unwrap() error {
	return e.Cause
}
