// Package booking drives a guest through the table reservation flow:
// date, time and party size, then contact details, then review, then
// confirmation.
package booking

import (
	"fmt"

	"taverna/internal/models"
)

// Step is a stage of the booking flow
type Step int

const (
	StepDateTime Step = iota + 1
	StepContactInfo
	StepReview
	StepConfirmed
)

func (s Step) String() string {
	switch s {
	case StepDateTime:
		return "date_time"
	case StepContactInfo:
		return "contact_info"
	case StepReview:
		return "review"
	case StepConfirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Fields holds everything the guest has entered so far. Unset values are
// empty strings or zero, never missing.
type Fields struct {
	Date            string `json:"date"`
	Time            string `json:"time"`
	PartySize       int    `json:"partySize"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Occasion        string `json:"occasion"`
	SpecialRequests string `json:"specialRequests"`
}

// Reservation converts the fields into an unsaved reservation record
func (f Fields) Reservation() models.Reservation {
	return models.Reservation{
		Date:            f.Date,
		Time:            f.Time,
		PartySize:       f.PartySize,
		Name:            f.Name,
		Email:           f.Email,
		Phone:           f.Phone,
		Occasion:        f.Occasion,
		SpecialRequests: f.SpecialRequests,
	}
}

// State is the full view of one in-progress booking
type State struct {
	Step                 Step                `json:"step"`
	Fields               Fields              `json:"fields"`
	FieldErrors          map[string]string   `json:"fieldErrors"`
	AvailableTimes       []string            `json:"availableTimes"`
	IsLoadingTimes       bool                `json:"isLoadingTimes"`
	AvailabilityNotice   string              `json:"availabilityNotice"`
	ConfirmedReservation *models.Reservation `json:"confirmedReservation"`
	GlobalError          string              `json:"globalError"`
	IsSubmitting         bool                `json:"isSubmitting"`
}

// NewState returns the initial state: first step, nothing entered
func NewState() State {
	return State{
		Step:           StepDateTime,
		FieldErrors:    map[string]string{},
		AvailableTimes: []string{},
	}
}

func (s State) clone() State {
	out := s
	out.FieldErrors = make(map[string]string, len(s.FieldErrors))
	for k, v := range s.FieldErrors {
		out.FieldErrors[k] = v
	}
	out.AvailableTimes = append([]string{}, s.AvailableTimes...)
	if s.ConfirmedReservation != nil {
		r := *s.ConfirmedReservation
		out.ConfirmedReservation = &r
	}
	return out
}

func (s State) hasTime(clock string) bool {
	for _, t := range s.AvailableTimes {
		if t == clock {
			return true
		}
	}
	return false
}
