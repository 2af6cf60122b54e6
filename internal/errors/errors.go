package errors

import (
	"errors"
	"fmt"
)

// Application-specific errors
var (
	// ErrUnauthorized is the only failure surfaced to gateway callers. The
	// message must stay exactly "Unauthorized": API Gateway maps that string to 401.
	ErrUnauthorized       = errors.New("Unauthorized")
	ErrInvalidInput       = errors.New("invalid input")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrNotImplemented     = errors.New("not implemented")
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error `json:"errors"`
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e.Errors[0].Error(), len(e.Errors)-1)
}

// Add adds an error to the MultiError
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (e *MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// ServiceError wraps a failure talking to an external collaborator
// (key-management listing, cache store).
type ServiceError struct {
	Service   string
	Operation string
	Err       error
}

func (e ServiceError) Error() string {
	return fmt.Sprintf("%s error during %s: %v", e.Service, e.Operation, e.Err)
}

func (e ServiceError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err should be rendered as a plain rejection
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
