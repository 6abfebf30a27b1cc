package reservations

import (
	"fmt"
	"time"

	"taverna/internal/models"
)

// SlotGrid is the fixed, date-independent set of bookable times. Both ends
// are inclusive.
type SlotGrid struct {
	Opening  time.Duration
	Closing  time.Duration
	Interval time.Duration
}

// DefaultGrid offers a table every half hour from 17:00 through 22:00.
var DefaultGrid = SlotGrid{
	Opening:  17 * time.Hour,
	Closing:  22 * time.Hour,
	Interval: 30 * time.Minute,
}

// NewSlotGrid builds a grid from "HH:MM" bounds
func NewSlotGrid(opening, closing string, interval time.Duration) (SlotGrid, error) {
	open, err := parseClock(opening)
	if err != nil {
		return SlotGrid{}, err
	}
	shut, err := parseClock(closing)
	if err != nil {
		return SlotGrid{}, err
	}
	if shut < open {
		return SlotGrid{}, fmt.Errorf("closing %s is before opening %s", closing, opening)
	}
	if interval <= 0 {
		return SlotGrid{}, fmt.Errorf("interval must be positive")
	}
	return SlotGrid{Opening: open, Closing: shut, Interval: interval}, nil
}

// Slots lists every slot of the grid in ascending order
func (g SlotGrid) Slots() []string {
	if g.Interval <= 0 {
		return nil
	}
	var out []string
	for t := g.Opening; t <= g.Closing; t += g.Interval {
		out = append(out, formatClock(t))
	}
	return out
}

// Contains reports whether clock is one of the grid's slots
func (g SlotGrid) Contains(clock string) bool {
	t, err := parseClock(clock)
	if err != nil || g.Interval <= 0 {
		return false
	}
	if t < g.Opening || t > g.Closing {
		return false
	}
	return (t-g.Opening)%g.Interval == 0
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse(models.TimeLayout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func formatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}

// ParseDate checks that s is a YYYY-MM-DD calendar date
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}
