package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrTransport indicates a network or HTTP level failure
	ErrTransport = errors.New("transport failure")

	// ErrShapeMismatch indicates a response was present but not in any recognized shape
	ErrShapeMismatch = errors.New("unrecognized response shape")

	// ErrValidation indicates a required field was missing before calling the backend
	ErrValidation = errors.New("validation failed")

	// ErrVideoNotFound indicates the requested video is not known
	ErrVideoNotFound = errors.New("video not found")

	// ErrUserNotFound indicates the user is not part of the registry
	ErrUserNotFound = errors.New("user not found")
)

// TransportError describes a failed backend call.
// It unwraps to ErrTransport and, when present, to the underlying cause.
type TransportError struct {
	Op     string
	Method string
	Path   string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s %s: status %d", e.Op, e.Method, e.Path, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s %s: %v", e.Op, e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: transport failure", e.Op, e.Method, e.Path)
}

func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransport}
	}
	return []error{ErrTransport, e.Err}
}

// ValidationError names the field a caller failed to provide
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s is required", e.Field)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
