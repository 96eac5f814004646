// Package errors provides a lightweight structured error type (FlowError)
// for category-based classification in HTTP adapters and background loops.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a FlowError for classification.
type ErrorCategory string

const (
	// User-facing input errors
	CategoryValidation ErrorCategory = "validation"
	CategoryAuth       ErrorCategory = "auth"
	CategoryNotFound   ErrorCategory = "not_found"

	// External system integration errors
	CategoryLaunch ErrorCategory = "launch"
	CategoryNotify ErrorCategory = "notify"

	// Runtime and infrastructure errors
	CategoryConfig   ErrorCategory = "config"
	CategoryStorage  ErrorCategory = "storage"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// ContextFields carries structured context for FlowError.
type ContextFields map[string]any

// FlowError is a structured error with category, severity, and context.
type FlowError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *FlowError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling.
func (e *FlowError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *FlowError) WithContext(key string, value any) *FlowError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new FlowError.
func New(category ErrorCategory, severity ErrorSeverity, message string) *FlowError {
	return &FlowError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new FlowError that wraps an existing error.
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *FlowError {
	return &FlowError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// IsCategory checks if an error belongs to a specific category.
func IsCategory(err error, category ErrorCategory) bool {
	if fe, ok := err.(*FlowError); ok {
		return fe.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal
// if the error is not a FlowError.
func GetCategory(err error) ErrorCategory {
	if fe, ok := err.(*FlowError); ok {
		return fe.Category
	}
	return CategoryInternal
}
