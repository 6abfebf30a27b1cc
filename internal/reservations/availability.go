package reservations

import (
	"context"
	"fmt"
)

// Availability derives the free slots of a date from the persisted
// reservations. It never writes.
type Availability struct {
	store *Store
	grid  SlotGrid
}

// NewAvailability creates a provider over store using grid as the base slots
func NewAvailability(store *Store, grid SlotGrid) *Availability {
	return &Availability{store: store, grid: grid}
}

// Grid returns the base slot grid
func (a *Availability) Grid() SlotGrid {
	return a.grid
}

// AvailableTimeSlots returns the grid slots of date that no confirmed
// reservation holds, in ascending order. A fully booked date yields an empty
// list, not an error.
func (a *Availability) AvailableTimeSlots(ctx context.Context, date string) ([]string, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}

	records, err := a.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	booked := make(map[string]bool)
	for i := range records {
		if records[i].IsConfirmed() && records[i].Date == date {
			booked[records[i].Time] = true
		}
	}

	slots := make([]string, 0, len(a.grid.Slots()))
	for _, slot := range a.grid.Slots() {
		if !booked[slot] {
			slots = append(slots, slot)
		}
	}
	return slots, nil
}
