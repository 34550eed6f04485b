package engine

import (
	"fmt"

	"habitforge/internal/storage"
)

// ConflictError means a unit of work could not commit within its allowed
// attempts. Nothing was written; the caller may re-issue the whole operation.
type ConflictError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ConflictError) Unwrap() error {
	if e.Err == nil {
		return storage.ErrConflict
	}
	return e.Err
}

// InvalidStateError rejects an operation before any write is attempted.
type InvalidStateError struct {
	Reason string
}

func (e InvalidStateError) Error() string {
	return "invalid state: " + e.Reason
}

func invalidf(format string, args ...any) error {
	return InvalidStateError{Reason: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}
