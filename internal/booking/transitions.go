package booking

import (
	"fmt"
	"strings"
	"time"

	"taverna/internal/models"
)

// Event is a navigation request
type Event int

const (
	EventNext Event = iota + 1
	EventBack
	// EventConfirmed records a successful submission
	EventConfirmed
)

func (e Event) String() string {
	switch e {
	case EventNext:
		return "next"
	case EventBack:
		return "back"
	case EventConfirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// guard returns the field errors that block a transition
type guard func(s State, now time.Time) map[string]string

type transition struct {
	from  Step
	event Event
	to    Step
	guard guard
}

var transitions = []transition{
	{from: StepDateTime, event: EventNext, to: StepContactInfo, guard: validateDateTime},
	{from: StepContactInfo, event: EventNext, to: StepReview, guard: validateContactInfo},
	{from: StepContactInfo, event: EventBack, to: StepDateTime},
	{from: StepReview, event: EventBack, to: StepContactInfo},
	{from: StepReview, event: EventConfirmed, to: StepConfirmed, guard: requireConfirmation},
}

// Transition applies ev to s. When a guard fails the returned state stays on
// the same step with FieldErrors populated and the error is a
// *ValidationError. Unknown (step, event) pairs return ErrInvalidTransition
// and s unchanged.
func Transition(s State, ev Event, now time.Time) (State, error) {
	for _, t := range transitions {
		if t.from != s.Step || t.event != ev {
			continue
		}
		next := s.clone()
		if t.guard != nil {
			if errs := t.guard(s, now); len(errs) > 0 {
				next.FieldErrors = errs
				return next, &ValidationError{Fields: errs}
			}
		}
		next.Step = t.to
		next.FieldErrors = map[string]string{}
		next.GlobalError = ""
		return next, nil
	}
	return s, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, ev, s.Step)
}

func validateDateTime(s State, now time.Time) map[string]string {
	errs := map[string]string{}
	f := s.Fields

	if f.Date == "" {
		errs["date"] = "Please select a date"
	} else if d, err := time.Parse(models.DateLayout, f.Date); err != nil {
		errs["date"] = "Please select a valid date"
	} else if d.Format(models.DateLayout) < now.Format(models.DateLayout) {
		errs["date"] = "Please select a date that is not in the past"
	}

	switch {
	case f.Time == "":
		errs["time"] = "Please select a time"
	case s.IsLoadingTimes:
		errs["time"] = "Available times are still loading"
	case !s.hasTime(f.Time):
		errs["time"] = "This time is not available for the selected date"
	}

	switch {
	case f.PartySize == 0:
		errs["partySize"] = "Please select the number of guests"
	case f.PartySize < 0 || f.PartySize > models.MaxPartySize:
		errs["partySize"] = "Please select between 1 and 11+ guests"
	}
	return errs
}

func validateContactInfo(s State, _ time.Time) map[string]string {
	errs := map[string]string{}
	f := s.Fields

	if strings.TrimSpace(f.Name) == "" {
		errs["name"] = "Please enter your name"
	}

	email := strings.TrimSpace(f.Email)
	switch {
	case email == "":
		errs["email"] = "Please enter your email address"
	case !models.ValidEmail(email):
		errs["email"] = "Please enter a valid email address"
	}

	phone := strings.TrimSpace(f.Phone)
	switch {
	case phone == "":
		errs["phone"] = "Please enter your phone number"
	case !models.ValidPhone(phone):
		errs["phone"] = "Please enter a valid phone number"
	}
	return errs
}

// validateSubmission re-runs every field check before the store is contacted.
// Slot membership is left to the store, which checks the live collection.
func validateSubmission(s State, now time.Time) map[string]string {
	errs := validateContactInfo(s, now)
	relaxed := s
	relaxed.IsLoadingTimes = false
	relaxed.AvailableTimes = []string{s.Fields.Time}
	for k, v := range validateDateTime(relaxed, now) {
		errs[k] = v
	}
	return errs
}

func requireConfirmation(s State, _ time.Time) map[string]string {
	if s.ConfirmedReservation == nil {
		return map[string]string{"reservation": "Reservation has not been confirmed"}
	}
	return nil
}
