package services

import (
	"fmt"

	"github.com/gogetteranushka/wellness-agent-core/internal/repository"
	"github.com/pkg/errors"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotOnboarded      = errors.New("profile not onboarded")
	ErrNotLoaded         = errors.New("profile not loaded")
	ErrNotEditing        = errors.New("profile is not in edit mode")
	ErrReadOnlyField     = errors.New("field is read-only")
	ErrUnknownField      = errors.New("unknown profile field")
	ErrInvalidTransition = errors.New("invalid intake transition")
	ErrAlreadyComplete   = errors.New("intake already complete")
	ErrUnauthenticated   = errors.New("no active session")
)

// ValidationError names the offending field; it matches ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ProfileWriteError is phase one of the intake commit failing. Nothing was persisted.
type ProfileWriteError struct {
	Err error
}

func (e *ProfileWriteError) Error() string {
	return e.Err.Error()
}

func (e *ProfileWriteError) Unwrap() error {
	return e.Err
}

// ConditionsWriteError is phase two failing after the profile row was already saved.
type ConditionsWriteError struct {
	Err error
}

func (e *ConditionsWriteError) Error() string {
	return e.Err.Error()
}

func (e *ConditionsWriteError) Unwrap() error {
	return e.Err
}

// StoreError is a profile store failure outside the intake commit. Error returns the store message unchanged.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// storeFailure maps a missing profile row to ErrNotOnboarded and wraps anything else in a StoreError.
func storeFailure(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotOnboarded
	}
	return &StoreError{Op: op, Err: err}
}
