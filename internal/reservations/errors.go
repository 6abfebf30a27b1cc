package reservations

import (
	"errors"
	"fmt"
)

var (
	// ErrSlotUnavailable is returned when the requested date and time are
	// already held by a confirmed reservation or are not on the slot grid.
	ErrSlotUnavailable = errors.New("slot unavailable")
	// ErrMissingField matches every *MissingFieldError.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidField matches every *InvalidFieldError.
	ErrInvalidField         = errors.New("invalid field")
	ErrNotFound             = errors.New("reservation not found")
	ErrReservationCancelled = errors.New("reservation is cancelled")
	ErrInvalidDate          = errors.New("invalid date")
	ErrInvalidTime          = errors.New("invalid time")
	// ErrPersistence wraps failures of the underlying storage.
	ErrPersistence = errors.New("reservation storage failure")
)

// MissingFieldError names the required field that was empty
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// Is makes errors.Is(err, ErrMissingField) true for any missing field
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// InvalidFieldError names a present field whose value is not accepted
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidFieldError) Is(target error) bool {
	return target == ErrInvalidField
}
