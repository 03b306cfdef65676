// Package service holds the auth and booking use cases.  Handlers translate
// the errors below into HTTP statuses; anything else returned from this
// package is an internal failure.
package service

import "errors"

var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrAlreadyExists reports a registration for an email that is taken.
	ErrAlreadyExists = errors.New("email already registered")
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password so callers cannot tell which one happened.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrStoreUnavailable wraps transient storage failures.  The caller may
	// retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError carries a client-facing message about malformed input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(msg string) error { return &ValidationError{Msg: msg} }
