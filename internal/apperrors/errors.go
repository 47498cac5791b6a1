package apperrors

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrValidation              = errors.New("validation error")
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrInvalidState            = errors.New("invalid or expired oauth state")
	ErrConfiguration           = errors.New("integration is not configured")
	ErrAuthorizationFailed     = errors.New("authorization failed")
	ErrReauthorizationRequired = errors.New("reauthorization required")
)

// QuotaExceededError is returned when a reserve would push a window past
// its limit. ResetAt tells the caller when the window opens again.
type QuotaExceededError struct {
	ResetAt time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// SlotConflictError is returned when another item already owns the
// requested (user, minute) slot.
type SlotConflictError struct {
	At time.Time
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("slot already taken at %s", e.At.Format(time.RFC3339))
}

// DeliveryError classifies a failed call to the publishing endpoint.
// Transient errors are retried with backoff; permanent ones are not.
type DeliveryError struct {
	Reason     string
	Transient  bool
	RetryAfter time.Duration
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delivery failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("delivery failed (%s)", e.Reason)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func Transient(reason string, err error) *DeliveryError {
	return &DeliveryError{Reason: reason, Transient: true, Err: err}
}

func Permanent(reason string, err error) *DeliveryError {
	return &DeliveryError{Reason: reason, Transient: false, Err: err}
}
