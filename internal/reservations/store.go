// Package reservations persists table bookings and derives slot
// availability from them.
package reservations

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"taverna/internal/models"
	"taverna/internal/storage"

	"github.com/google/uuid"
)

// Store is the append-only reservation collection of one guest. The whole
// collection lives under storage.KeyReservations and every write replaces it.
type Store struct {
	persist storage.Store
	grid    *SlotGrid
	now     func() time.Time
	newID   func() string

	// serializes read-check-write sequences against the collection
	mu sync.Mutex
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithClock overrides time.Now
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the uuid generator
func WithIDGenerator(gen func() string) StoreOption {
	return func(s *Store) { s.newID = gen }
}

// WithSlotGrid makes Create and Update reject times that are not grid slots
func WithSlotGrid(grid SlotGrid) StoreOption {
	return func(s *Store) { s.grid = &grid }
}

// NewStore creates a store over the given persistence port
func NewStore(persist storage.Store, opts ...StoreOption) *Store {
	s := &Store{
		persist: persist,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Patch lists the fields Update may change; nil fields are left alone
type Patch struct {
	Date            *string `json:"date"`
	Time            *string `json:"time"`
	PartySize       *int    `json:"partySize"`
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Phone           *string `json:"phone"`
	Occasion        *string `json:"occasion"`
	SpecialRequests *string `json:"specialRequests"`
}

// List returns every stored reservation in creation order
func (s *Store) List(ctx context.Context) ([]models.Reservation, error) {
	var records []models.Reservation
	if err := storage.LoadJSON(ctx, s.persist, storage.KeyReservations, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return records, nil
}

// Get returns the reservation with the given id
func (s *Store) Get(ctx context.Context, id string) (models.Reservation, error) {
	records, err := s.List(ctx)
	if err != nil {
		return models.Reservation{}, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return models.Reservation{}, ErrNotFound
}

// Upcoming returns confirmed reservations dated today or later, soonest first
func (s *Store) Upcoming(ctx context.Context) ([]models.Reservation, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	today := s.now().Format(models.DateLayout)
	var out []models.Reservation
	for _, r := range records {
		if r.IsConfirmed() && r.Date >= today {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

// Create validates r, re-checks that its slot is still free against the
// current persisted collection and appends it as a confirmed reservation.
// The returned record carries the generated id.
func (s *Store) Create(ctx context.Context, r models.Reservation) (models.Reservation, error) {
	if err := s.validate(r, true); err != nil {
		return models.Reservation{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.List(ctx)
	if err != nil {
		return models.Reservation{}, err
	}
	if slotTaken(records, r.Date, r.Time, "") {
		return models.Reservation{}, ErrSlotUnavailable
	}

	r.ID = s.newID()
	r.Status = models.ReservationStatusConfirmed
	r.CreatedAt = s.now()
	r.CancelledAt = nil
	r.UpdatedAt = nil
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)

	records = append(records, r)
	if err := s.save(ctx, records); err != nil {
		log.Printf("reservations: failed to persist reservation %s for %s %s: %v", r.ID, r.Date, r.Time, err)
		return models.Reservation{}, err
	}
	return r, nil
}

// Cancel marks the reservation cancelled. Cancelling an already cancelled
// reservation succeeds without changing it.
func (s *Store) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.List(ctx)
	if err != nil {
		log.Printf("reservations: cancel %s: %v", id, err)
		return err
	}
	idx := indexOf(records, id)
	if idx < 0 {
		return ErrNotFound
	}
	if !records[idx].IsConfirmed() {
		return nil
	}

	now := s.now()
	records[idx].Status = models.ReservationStatusCancelled
	records[idx].CancelledAt = &now

	if err := s.save(ctx, records); err != nil {
		log.Printf("reservations: cancel %s: %v", id, err)
		return err
	}
	return nil
}

// Update merges patch into the reservation and stamps updatedAt. Moving a
// reservation to another date or time requires that slot to be free.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.List(ctx)
	if err != nil {
		log.Printf("reservations: update %s: %v", id, err)
		return models.Reservation{}, err
	}
	idx := indexOf(records, id)
	if idx < 0 {
		return models.Reservation{}, ErrNotFound
	}
	current := records[idx]
	if !current.IsConfirmed() {
		return models.Reservation{}, ErrReservationCancelled
	}

	updated := applyPatch(current, patch)
	moved := updated.Date != current.Date || updated.Time != current.Time
	if err := s.validate(updated, moved); err != nil {
		return models.Reservation{}, err
	}
	if moved {
		if slotTaken(records, updated.Date, updated.Time, id) {
			return models.Reservation{}, ErrSlotUnavailable
		}
	}

	now := s.now()
	updated.UpdatedAt = &now
	records[idx] = updated

	if err := s.save(ctx, records); err != nil {
		log.Printf("reservations: update %s: %v", id, err)
		return models.Reservation{}, err
	}
	return updated, nil
}

func (s *Store) save(ctx context.Context, records []models.Reservation) error {
	if err := storage.SaveJSON(ctx, s.persist, storage.KeyReservations, records); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (s *Store) checkSlotShape(date, clock string) error {
	if _, err := ParseDate(date); err != nil {
		return err
	}
	if _, err := parseClock(clock); err != nil {
		return err
	}
	if s.grid != nil && !s.grid.Contains(clock) {
		return fmt.Errorf("%w: %s is not a bookable time", ErrSlotUnavailable, clock)
	}
	return nil
}

// validate runs the checks shared by Create and Update. The slot shape and
// the not-in-the-past rule only apply when the slot is being chosen.
func (s *Store) validate(r models.Reservation, slotChosen bool) error {
	if err := validateRequired(r); err != nil {
		return err
	}
	if slotChosen {
		if err := s.checkSlotShape(r.Date, r.Time); err != nil {
			return err
		}
		if r.Date < s.now().Format(models.DateLayout) {
			return &InvalidFieldError{Field: "date", Reason: "date is in the past"}
		}
	}
	return validateFields(r)
}

func validateFields(r models.Reservation) error {
	switch {
	case !models.ValidPartySize(r.PartySize):
		return &InvalidFieldError{Field: "partySize", Reason: fmt.Sprintf("must be between 1 and %d", models.MaxPartySize)}
	case !models.ValidEmail(r.Email):
		return &InvalidFieldError{Field: "email", Reason: "not a valid email address"}
	case !models.ValidPhone(r.Phone):
		return &InvalidFieldError{Field: "phone", Reason: "not a valid phone number"}
	case !models.ValidOccasion(r.Occasion):
		return &InvalidFieldError{Field: "occasion", Reason: fmt.Sprintf("unknown occasion %q", r.Occasion)}
	}
	return nil
}

func validateRequired(r models.Reservation) error {
	switch {
	case r.Date == "":
		return &MissingFieldError{Field: "date"}
	case r.Time == "":
		return &MissingFieldError{Field: "time"}
	case r.PartySize <= 0:
		return &MissingFieldError{Field: "partySize"}
	case strings.TrimSpace(r.Name) == "":
		return &MissingFieldError{Field: "name"}
	case strings.TrimSpace(r.Email) == "":
		return &MissingFieldError{Field: "email"}
	case strings.TrimSpace(r.Phone) == "":
		return &MissingFieldError{Field: "phone"}
	}
	return nil
}

func slotTaken(records []models.Reservation, date, clock, exceptID string) bool {
	for i := range records {
		if records[i].ID != exceptID && records[i].HoldsSlot(date, clock) {
			return true
		}
	}
	return false
}

func indexOf(records []models.Reservation, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}

func applyPatch(r models.Reservation, p Patch) models.Reservation {
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.Time != nil {
		r.Time = *p.Time
	}
	if p.PartySize != nil {
		r.PartySize = *p.PartySize
	}
	if p.Name != nil {
		r.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		r.Email = strings.TrimSpace(*p.Email)
	}
	if p.Phone != nil {
		r.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.Occasion != nil {
		r.Occasion = *p.Occasion
	}
	if p.SpecialRequests != nil {
		r.SpecialRequests = *p.SpecialRequests
	}
	return r
}
