package agenkit

import (
	"fmt"
	"strings"
)

// ConfigurationError is returned when a required setting is missing or invalid.
// It is fatal and raised before any agent work begins.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(field, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message}
}

// MissingInputError is returned when the medical report cannot be read.
type MissingInputError struct {
	Path  string
	Cause error
}

func (e *MissingInputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("medical report file not found at %s: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("medical report file not found at %s", e.Path)
}

func (e *MissingInputError) Unwrap() error {
	return e.Cause
}

// InvocationError records why a single agent invocation produced no result.
// It is stored in AgentResult.Err and never propagated past the invoker.
type InvocationError struct {
	AgentName string
	Cause     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invocation of agent '%s' failed: %v", e.AgentName, e.Cause)
}

func (e *InvocationError) Unwrap() error {
	return e.Cause
}

// IncompleteSpecialistSetError is returned when one or more specialists did
// not produce a usable analysis.
type IncompleteSpecialistSetError struct {
	Missing []string
}

func (e *IncompleteSpecialistSetError) Error() string {
	return fmt.Sprintf("specialist agents failed to generate a response: %s", strings.Join(e.Missing, ", "))
}

// TeamSynthesisError is returned when the multidisciplinary team produced no diagnosis.
type TeamSynthesisError struct {
	Cause error
}

func (e *TeamSynthesisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("multidisciplinary team failed to synthesize a diagnosis: %v", e.Cause)
	}
	return "multidisciplinary team returned an empty diagnosis"
}

func (e *TeamSynthesisError) Unwrap() error {
	return e.Cause
}
