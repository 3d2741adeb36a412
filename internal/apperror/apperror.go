// Package apperror defines the domain errors shared by every layer.
// Callers test for a category with errors.Is against the sentinels; the
// HTTP layer maps those to status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation error")
	ErrUnavailable = errors.New("unavailable")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Unavailable reports that a dependency could not be reached, or that a
// collection has already been closed. Storage failures themselves degrade
// silently and never surface as this error.
func Unavailable(resource string, cause error) *AppError {
	msg := resource + " unavailable"
	if cause != nil {
		msg = fmt.Sprintf("%s unavailable: %v", resource, cause)
	}
	return &AppError{
		Err:     ErrUnavailable,
		Message: msg,
	}
}
