package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for errors.Is matching.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrTransient    = errors.New("transient service failure")
	ErrPersistence  = errors.New("persistence failure")
	ErrUnauthorized = errors.New("unauthorized")
)

// HTTPError maps a domain error onto an HTTP status code.
type HTTPError interface {
	error
	StatusCode() int
}

type (
	// ValidationError blocks the action locally and never partially commits
	// state: oversize file, missing required answer, empty project name.
	ValidationError struct {
		Message string
	}

	// TransientError wraps a failed call to an external collaborator. The
	// orchestrator rolls back one step and surfaces it; nothing is retried.
	TransientError struct {
		Message string
		Cause   error
	}

	// PersistenceError wraps a store read/write failure. In-memory state is
	// not rolled back automatically.
	PersistenceError struct {
		Message string
		Cause   error
	}

	// AuthorizationError indicates an absent or unverified identity.
	AuthorizationError struct {
		Message string
	}

	// NotFoundError indicates a missing project or artifact.
	NotFoundError struct {
		Message string
	}
)

func (e *ValidationError) Error() string    { return e.Message }
func (e *TransientError) Error() string     { return e.Message }
func (e *PersistenceError) Error() string   { return e.Message }
func (e *AuthorizationError) Error() string { return e.Message }
func (e *NotFoundError) Error() string      { return e.Message }

func (e *ValidationError) StatusCode() int    { return http.StatusBadRequest }
func (e *TransientError) StatusCode() int     { return http.StatusBadGateway }
func (e *PersistenceError) StatusCode() int   { return http.StatusInternalServerError }
func (e *AuthorizationError) StatusCode() int { return http.StatusUnauthorized }
func (e *NotFoundError) StatusCode() int      { return http.StatusNotFound }

func (e *ValidationError) Is(target error) bool    { return target == ErrValidation }
func (e *TransientError) Is(target error) bool     { return target == ErrTransient }
func (e *PersistenceError) Is(target error) bool   { return target == ErrPersistence }
func (e *AuthorizationError) Is(target error) bool { return target == ErrUnauthorized }
func (e *NotFoundError) Is(target error) bool      { return target == ErrNotFound }

func (e *TransientError) Unwrap() error   { return e.Cause }
func (e *PersistenceError) Unwrap() error { return e.Cause }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a NotFoundError from a format string.
func NotFoundf(format string, args ...any) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// Transient wraps err as a TransientError with a caller-facing message.
func Transient(msg string, err error) *TransientError {
	return &TransientError{Message: msg, Cause: err}
}

// Persistence wraps err as a PersistenceError.
func Persistence(msg string, err error) *PersistenceError {
	return &PersistenceError{Message: msg, Cause: err}
}

// StatusFor resolves the HTTP status for any error; unknown errors map to 500.
func StatusFor(err error) int {
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
