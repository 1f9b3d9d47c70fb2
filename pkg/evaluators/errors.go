package evaluators

import (
	"errors"
	"fmt"
)

var (
	// ErrOutputVariableRequired indicates a rule that writes no variable.
	ErrOutputVariableRequired = errors.New("output_variable is required")

	// ErrInstructionBudget indicates a calculation that ran too long.
	ErrInstructionBudget = errors.New("calculation exceeded its instruction budget")

	// ErrIntegrationRequired indicates a data integration stage without
	// provider configuration.
	ErrIntegrationRequired = errors.New("dataintegration configuration is required")

	// ErrInferenceRequired indicates an inference stage without service
	// configuration.
	ErrInferenceRequired = errors.New("inference configuration is required")
)

// RuleError wraps a failure compiling or running one rule.
type RuleError struct {
	Rule string
	Err  error
}

// Error returns the error message.
func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.Rule, e.Err)
}

// Unwrap returns the underlying cause.
func (e *RuleError) Unwrap() error {
	return e.Err
}

// ProviderError reports a failed call to an external provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

// Error returns the error message.
func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s returned status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Err
}
