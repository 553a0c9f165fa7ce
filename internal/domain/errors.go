package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by a Syncer when the named artifact does not exist.
	ErrNotFound = errors.New("artifact not found")
	// ErrIndexUnavailable means no usable index could be loaded.
	ErrIndexUnavailable = errors.New("index unavailable")
)

// ValidationError reports bad user input: uploads, positions, empty text.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// RemoteServiceError wraps a failed call to the embedding or generation service.
type RemoteServiceError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *RemoteServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *RemoteServiceError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a failed local write or remote push/pull.
type PersistenceError struct {
	Op       string
	Artifact string
	Err      error
}

func (e *PersistenceError) Error() string {
	if e.Artifact != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Artifact, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError creates a PersistenceError.
func NewPersistenceError(op, artifact string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Artifact: artifact, Err: err}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
