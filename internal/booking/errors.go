package booking

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"taverna/internal/reservations"
)

var (
	// ErrAPINotLoaded means a booking collaborator function is absent.
	ErrAPINotLoaded      = errors.New("booking API not loaded")
	ErrInvalidTransition = errors.New("invalid booking transition")
	ErrFieldNotEditable  = errors.New("field cannot be changed at this step")
	ErrTimesLoading      = errors.New("available times are still loading")
	ErrSubmitInProgress  = errors.New("reservation is already being submitted")
)

// Messages shown to the guest
const (
	MsgFetchAPINotLoaded  = "Booking API not loaded. Please refresh the page and try again."
	MsgSubmitAPINotLoaded = "Reservation submission API not loaded. Please refresh the page and try again."
	MsgNoTimesAvailable   = "No times available for this date. Please choose another date."
	MsgSlotUnavailable    = "Sorry, this time slot is no longer available. Please go back and select a different time."
	MsgTimesLoadFailed    = "We couldn't load available times"
	MsgSubmitFailed       = "We couldn't complete your reservation"
	MsgMissingDetails     = "Some required details are missing"
	MsgInvalidDetails     = "Some details could not be accepted"
)

// ValidationError carries one message per offending field
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid booking fields: " + strings.Join(names, ", ")
}

// userMessage turns a submission failure into the text shown on the review step
func userMessage(err error) string {
	var (
		missing *reservations.MissingFieldError
		invalid *reservations.InvalidFieldError
	)
	switch {
	case errors.Is(err, ErrAPINotLoaded):
		return MsgSubmitAPINotLoaded
	case errors.Is(err, reservations.ErrSlotUnavailable):
		return MsgSlotUnavailable
	case errors.As(err, &missing):
		return fmt.Sprintf("%s (%s). Please review your information.", MsgMissingDetails, missing.Field)
	case errors.As(err, &invalid):
		return fmt.Sprintf("%s (%s). Please review your information.", MsgInvalidDetails, invalid.Field)
	default:
		return fmt.Sprintf("%s: %v. Please try again.", MsgSubmitFailed, err)
	}
}
