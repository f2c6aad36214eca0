package conversations

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for unknown conversation ids.
	ErrNotFound = errors.New("conversation not found")

	// ErrInvalidID is returned for ids that are not UUIDs.
	ErrInvalidID = errors.New("invalid conversation id")
)

// StoreError wraps a backend failure.
type StoreError struct {
	Backend   string // "file" or "sqlite"
	Operation string
	Cause     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("conversation store error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}
