package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyConsumed     = errors.New("waste item already collected")
	ErrInsufficientBalance = errors.New("insufficient points")
	ErrDuplicateToken      = errors.New("duplicate redemption token")
	ErrConflict            = errors.New("conflict")
	// ErrTransactionAborted means the store could not commit. Nothing was
	// written and the caller may retry.
	ErrTransactionAborted = errors.New("transaction aborted")
	ErrInvalidInput       = errors.New("invalid input")
)

// NotFoundError names the missing entity. It matches ErrNotFound.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AlreadyDeletedError carries the provenance of the existing deletion. It
// matches ErrConflict.
type AlreadyDeletedError struct {
	ID        string
	DeletedAt string
	DeletedBy string
}

func (e *AlreadyDeletedError) Error() string {
	return fmt.Sprintf("waste item %s already deleted", e.ID)
}

func (e *AlreadyDeletedError) Is(target error) bool { return target == ErrConflict }

// Invalid wraps ErrInvalidInput with a message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
