// Package apperrors defines the sentinel errors shared across services,
// repositories and handlers. Handlers match them with errors.Is and map each
// one to a stable machine-checkable HTTP error code.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers both an absent resource and a resource owned by a
	// different user. The two are indistinguishable to callers.
	ErrNotFound = errors.New("not found")

	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("inactive user")

	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("could not validate credentials")
	ErrUserNotFound = errors.New("could not find user")
	ErrForbidden    = errors.New("forbidden")
)

// ValidationError reports malformed or out-of-range input. It is raised
// before any persistence happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidation creates a ValidationError for a field.
func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// transientError wraps an error that is worth retrying (transient store
// unavailability and the like). Business outcomes are never transient.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as retryable by the job dispatcher.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked with Transient.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}
