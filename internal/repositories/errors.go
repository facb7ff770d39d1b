package repositories

import (
	"errors"
	"fmt"
)

// StoreError is the RepositoryError used by drivers without a native error type.
type StoreError struct {
	Op          string
	Err         error
	notFound    bool
	conflict    bool
	unavailable bool
}

var _ RepositoryError = (*StoreError)(nil)

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying error.
func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsNotFound reports whether the document was missing.
func (e *StoreError) IsNotFound() bool { return e != nil && e.notFound }

// IsConflict reports whether a concurrent write won.
func (e *StoreError) IsConflict() bool { return e != nil && e.conflict }

// IsUnavailable reports whether the backend could not be reached.
func (e *StoreError) IsUnavailable() bool { return e != nil && e.unavailable }

// NewNotFoundError reports a missing document.
func NewNotFoundError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err, notFound: true}
}

// NewConflictError reports a lost write race.
func NewConflictError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err, conflict: true}
}

// NewUnavailableError reports an unreachable backend.
func NewUnavailableError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err, unavailable: true}
}

// IsNotFound reports whether err is a RepositoryError describing a missing document.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
