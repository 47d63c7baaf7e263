package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrRateLimited         = errors.New("rate limited")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrLockHeld            = errors.New("lock already held")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrNoData              = errors.New("no data available")
	ErrValidation          = errors.New("validation failed")
	ErrStateConflict       = errors.New("state conflict")
)

// ValidationError reports caller input that violates an invariant. It matches
// ErrValidation under errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// LimitExceededError is returned when a subscription would break a purchase
// limit. It carries the full check so callers can report the headroom.
type LimitExceededError struct {
	Check LimitCheck
}

func (e *LimitExceededError) Error() string {
	return "validation: amount: " + e.Check.Reason
}

func (e *LimitExceededError) Is(target error) bool { return target == ErrValidation }

// StateConflictError reports an operation attempted against a record whose
// status does not allow it. It matches ErrStateConflict under errors.Is.
type StateConflictError struct {
	RecordID string
	Status   RecordStatus
	Op       string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("state conflict: cannot %s record %s in status %s", e.Op, e.RecordID, e.Status)
}

func (e *StateConflictError) Is(target error) bool { return target == ErrStateConflict }
