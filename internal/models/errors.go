package models

import (
	"errors"
	"fmt"
)

// Error taxonomy. Callers branch on these types, never on error strings:
// validation errors are rejected before any mutation, conflicts signal a
// non-idempotent retry, and transient errors are safe to retry for reserve()
// but not for return() without re-checking state first.

// ValidationError represents invalid input, rejected before any state change
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NotFoundError represents a missing resource
type NotFoundError struct {
	Resource string `json:"resource"`
	ID       string `json:"id"`
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID '%s' not found", e.Resource, e.ID)
}

// ConflictError represents an operation attempted against a resource that is
// no longer in the required state, e.g. returning an already-returned
// reservation. Callers must inspect current state rather than resubmit.
type ConflictError struct {
	Resource string `json:"resource"`
	Reason   string `json:"reason"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict with %s: %s", e.Resource, e.Reason)
}

// TransientError represents storage unavailability or exhausted contention.
// The operation may have had no effect; reserve() is safe to retry.
type TransientError struct {
	Op    string `json:"op"`
	Cause error  `json:"-"`
}

func (e *TransientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transient failure in %s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("transient failure in %s", e.Op)
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// Error type guards

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFoundError(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsConflictError(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

func IsTransientError(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
