package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ReservationStatus represents the lifecycle state of a reservation
type ReservationStatus string

const (
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// Occasions offered by the booking form
const (
	OccasionNone        = ""
	OccasionBirthday    = "birthday"
	OccasionAnniversary = "anniversary"
	OccasionBusiness    = "business"
	OccasionDate        = "date"
	OccasionCelebration = "celebration"
	OccasionOther       = "other"
)

// Occasions lists every accepted non-empty occasion
var Occasions = []string{
	OccasionBirthday, OccasionAnniversary, OccasionBusiness,
	OccasionDate, OccasionCelebration, OccasionOther,
}

// MaxPartySize is the largest selectable party; it stands for "11+".
const MaxPartySize = 11

// Date and time layouts used by reservations
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Reservation is a table booking. Records are never deleted; cancelling
// only flips the status.
type Reservation struct {
	ID              string            `json:"id"`
	Date            string            `json:"date"`
	Time            string            `json:"time"`
	PartySize       int               `json:"partySize"`
	Name            string            `json:"name"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone"`
	Occasion        string            `json:"occasion"`
	SpecialRequests string            `json:"specialRequests"`
	Status          ReservationStatus `json:"status"`
	CreatedAt       time.Time         `json:"createdAt"`
	CancelledAt     *time.Time        `json:"cancelledAt"`
	UpdatedAt       *time.Time        `json:"updatedAt"`
}

// IsConfirmed reports whether the reservation still holds its slot
func (r *Reservation) IsConfirmed() bool {
	return r.Status == ReservationStatusConfirmed
}

// HoldsSlot reports whether r occupies the given date and time
func (r *Reservation) HoldsSlot(date, clock string) bool {
	return r.IsConfirmed() && r.Date == date && r.Time == clock
}

// PartySizeLabel renders the party size the way the booking form shows it
func (r *Reservation) PartySizeLabel() string {
	return PartySizeLabel(r.PartySize)
}

// PartySizeLabel renders n as shown in the party selector
func PartySizeLabel(n int) string {
	switch {
	case n <= 0:
		return ""
	case n >= MaxPartySize:
		return "11+ guests"
	case n == 1:
		return "1 guest"
	default:
		return strconv.Itoa(n) + " guests"
	}
}

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9()+\-.\s]{7,20}$`)
)

// ValidEmail reports whether s has the local@domain.tld shape
func ValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// ValidPhone accepts digits with common separators, at least seven digits
func ValidPhone(s string) bool {
	s = strings.TrimSpace(s)
	if !phonePattern.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7
}

// ValidOccasion reports whether s is empty or one of Occasions
func ValidOccasion(s string) bool {
	if s == "" {
		return true
	}
	for _, o := range Occasions {
		if s == o {
			return true
		}
	}
	return false
}

// ValidPartySize reports whether n is within 1..MaxPartySize
func ValidPartySize(n int) bool {
	return n >= 1 && n <= MaxPartySize
}
