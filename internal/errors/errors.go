// Package errors provides sentinel errors and structured error types for yoctobom.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for known conditions.
var (
	// ErrValidation indicates malformed input: a manifest line, a flag or a config value.
	ErrValidation = errors.New("validation error")

	// ErrConnectivity indicates the KB server could not be reached.
	ErrConnectivity = errors.New("connectivity error")

	// ErrPermission indicates the KB server rejected the credentials.
	ErrPermission = errors.New("permission denied")

	// ErrNotFound indicates a file, project or version was not found.
	ErrNotFound = errors.New("not found")

	// ErrLimitReached indicates a kblookup run stopped at its new-component limit.
	// The partial lookup file is valid and the run can be resumed with -k.
	ErrLimitReached = errors.New("component limit reached")
)

// DetailError captures structured error information for display.
type DetailError struct {
	// Type is the error category (required).
	Type string

	// Message is the specific description (required).
	Message string

	// Location is the file path and line number (optional).
	Location string

	// Context contains additional key-value context (optional).
	Context map[string]string

	// Hint provides actionable guidance (optional).
	Hint string

	// Cause is the underlying error (optional).
	Cause error
}

// Error implements the error interface.
func (e *DetailError) Error() string {
	var b strings.Builder

	b.WriteString("Error: ")
	b.WriteString(e.Type)
	b.WriteString("\n")

	if e.Location != "" {
		b.WriteString("  Location: ")
		b.WriteString(e.Location)
		b.WriteString("\n")
	}
	for k, v := range e.Context {
		b.WriteString("  ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	b.WriteString(e.Message)
	b.WriteString("\n")

	if e.Hint != "" {
		b.WriteString("\nHint: ")
		b.WriteString(e.Hint)
		b.WriteString("\n")
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *DetailError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a validation error with details.
func NewValidationError(message, location, hint string) error {
	return &DetailError{
		Type:     "validation failed",
		Message:  message,
		Location: location,
		Hint:     hint,
		Cause:    ErrValidation,
	}
}

// NewConnectivityError creates a connectivity error with details.
func NewConnectivityError(message string, context map[string]string, hint string) error {
	return &DetailError{
		Type:    "connectivity failed",
		Message: message,
		Context: context,
		Hint:    hint,
		Cause:   ErrConnectivity,
	}
}

// NewNotFoundError creates a not found error with details.
func NewNotFoundError(message, location, hint string) error {
	return &DetailError{
		Type:     "not found",
		Message:  message,
		Location: location,
		Hint:     hint,
		Cause:    ErrNotFound,
	}
}

// Wrap wraps an error with a sentinel error type.
func Wrap(sentinel error, message string) error {
	return fmt.Errorf("%s: %w", message, sentinel)
}
