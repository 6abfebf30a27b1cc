package booking

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"taverna/internal/models"
)

// API is the pair of collaborators the workflow calls out to. Either
// function may be nil, in which case the matching operation fails with
// ErrAPINotLoaded and a guest-facing message.
type API struct {
	FetchSlots func(ctx context.Context, date string) ([]string, error)
	Submit     func(ctx context.Context, r models.Reservation) (models.Reservation, error)
}

// SlotService is satisfied by reservations.Service
type SlotService interface {
	FetchSlots(ctx context.Context, date string) ([]string, error)
	Submit(ctx context.Context, r models.Reservation) (models.Reservation, error)
}

// APIFrom binds both collaborators to svc
func APIFrom(svc SlotService) API {
	return API{FetchSlots: svc.FetchSlots, Submit: svc.Submit}
}

// Changes is a partial update of the entered fields. Nil pointers are left
// alone.
type Changes struct {
	Date            *string `json:"date"`
	Time            *string `json:"time"`
	PartySize       *int    `json:"partySize"`
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Phone           *string `json:"phone"`
	Occasion        *string `json:"occasion"`
	SpecialRequests *string `json:"specialRequests"`
}

// Option configures a Workflow
type Option func(*Workflow)

// WithClock overrides the clock used for the past-date check
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

// Workflow is one guest's booking in progress. It is safe for concurrent use.
type Workflow struct {
	mu    sync.Mutex
	api   API
	now   func() time.Time
	state State

	query   uint64
	settled chan struct{}
}

// NewWorkflow returns a workflow on the first step
func NewWorkflow(api API, opts ...Option) *Workflow {
	w := &Workflow{
		api:     api,
		now:     time.Now,
		state:   NewState(),
		settled: closedChan(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns a snapshot of the current state
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.clone()
}

// Settled returns a channel closed once the latest slot query has been applied
func (w *Workflow) Settled() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.settled
}

// SetDate records the chosen date and starts a slot query for it. The
// returned channel closes when that query has finished.
func (w *Workflow) SetDate(ctx context.Context, date string) (<-chan struct{}, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(StepDateTime, "date"); err != nil {
		return nil, err
	}
	w.state.Fields.Date = strings.TrimSpace(date)
	delete(w.state.FieldErrors, "date")
	return w.refreshLocked(ctx), nil
}

// refreshLocked issues a slot query for the current date. Results for any
// earlier query are discarded when they arrive.
func (w *Workflow) refreshLocked(ctx context.Context) <-chan struct{} {
	w.query++
	seq := w.query
	date := w.state.Fields.Date
	w.state.AvailabilityNotice = ""
	w.state.GlobalError = ""

	if date == "" {
		w.clearTimesLocked()
		w.settled = closedChan()
		return w.settled
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		w.state.FieldErrors["date"] = "Please select a valid date"
		w.clearTimesLocked()
		w.settled = closedChan()
		return w.settled
	}
	if w.api.FetchSlots == nil {
		w.state.GlobalError = MsgFetchAPINotLoaded
		w.clearTimesLocked()
		w.settled = closedChan()
		return w.settled
	}

	w.state.IsLoadingTimes = true
	done := make(chan struct{})
	w.settled = done
	fetch := w.api.FetchSlots
	go func() {
		defer close(done)
		slots, err := fetch(context.WithoutCancel(ctx), date)
		w.applySlots(seq, date, slots, err)
	}()
	return done
}

func (w *Workflow) applySlots(seq uint64, date string, slots []string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if seq != w.query || date != w.state.Fields.Date {
		log.Printf("booking: discarding stale slots for %s", date)
		return
	}
	if err != nil {
		log.Printf("booking: failed to load slots for %s: %v", date, err)
		w.clearTimesLocked()
		w.state.GlobalError = fmt.Sprintf("%s: %v", MsgTimesLoadFailed, err)
		return
	}
	w.state.IsLoadingTimes = false

	w.state.AvailableTimes = append([]string{}, slots...)
	if w.state.Fields.Time != "" && !w.state.hasTime(w.state.Fields.Time) {
		w.state.Fields.Time = ""
	}
	if len(slots) == 0 {
		w.state.AvailabilityNotice = MsgNoTimesAvailable
	}
}

// clearTimesLocked empties the offered times. A selected time can never
// outlive the list it was chosen from.
func (w *Workflow) clearTimesLocked() {
	w.state.AvailableTimes = []string{}
	w.state.IsLoadingTimes = false
	w.state.Fields.Time = ""
}

// SetTime records the chosen time. It must be one of the loaded times.
func (w *Workflow) SetTime(clock string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(StepDateTime, "time"); err != nil {
		return err
	}
	if w.state.IsLoadingTimes {
		return ErrTimesLoading
	}
	clock = strings.TrimSpace(clock)
	if clock != "" && !w.state.hasTime(clock) {
		msg := "This time is not available for the selected date"
		w.state.FieldErrors["time"] = msg
		return &ValidationError{Fields: map[string]string{"time": msg}}
	}
	w.state.Fields.Time = clock
	delete(w.state.FieldErrors, "time")
	return nil
}

// SetPartySize records the number of guests, 1 through 11 (11 meaning 11+)
func (w *Workflow) SetPartySize(n int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(StepDateTime, "partySize"); err != nil {
		return err
	}
	if n < 0 || n > models.MaxPartySize {
		msg := "Please select between 1 and 11+ guests"
		w.state.FieldErrors["partySize"] = msg
		return &ValidationError{Fields: map[string]string{"partySize": msg}}
	}
	w.state.Fields.PartySize = n
	delete(w.state.FieldErrors, "partySize")
	return nil
}

// SetContact records the guest's name, email and phone
func (w *Workflow) SetContact(name, email, phone string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(StepContactInfo, "contact"); err != nil {
		return err
	}
	w.state.Fields.Name = name
	w.state.Fields.Email = email
	w.state.Fields.Phone = phone
	for _, f := range []string{"name", "email", "phone"} {
		delete(w.state.FieldErrors, f)
	}
	return nil
}

// SetOccasion records the optional occasion
func (w *Workflow) SetOccasion(occasion string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(StepContactInfo, "occasion"); err != nil {
		return err
	}
	w.state.Fields.Occasion = occasion
	return nil
}

// SetSpecialRequests records the optional free-text requests
func (w *Workflow) SetSpecialRequests(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(StepContactInfo, "specialRequests"); err != nil {
		return err
	}
	w.state.Fields.SpecialRequests = text
	return nil
}

// Apply sets every non-nil field in c through the matching setter and
// returns the first error. When c carries both a date and a time, the time
// is set once the new date's times have loaded.
func (w *Workflow) Apply(ctx context.Context, c Changes) error {
	if c.Date != nil {
		done, err := w.SetDate(ctx, *c.Date)
		if err != nil {
			return err
		}
		if c.Time != nil {
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if c.Time != nil {
		if err := w.SetTime(*c.Time); err != nil {
			return err
		}
	}
	if c.PartySize != nil {
		if err := w.SetPartySize(*c.PartySize); err != nil {
			return err
		}
	}
	if c.Name != nil || c.Email != nil || c.Phone != nil {
		cur := w.State().Fields
		if err := w.SetContact(pick(c.Name, cur.Name), pick(c.Email, cur.Email), pick(c.Phone, cur.Phone)); err != nil {
			return err
		}
	}
	if c.Occasion != nil {
		if err := w.SetOccasion(*c.Occasion); err != nil {
			return err
		}
	}
	if c.SpecialRequests != nil {
		if err := w.SetSpecialRequests(*c.SpecialRequests); err != nil {
			return err
		}
	}
	return nil
}

// Next advances one step if the current step's guard passes
func (w *Workflow) Next() error {
	return w.fire(context.Background(), EventNext)
}

// Back returns to the previous step. Returning to the first step re-queries
// availability for the selected date.
func (w *Workflow) Back(ctx context.Context) error {
	return w.fire(ctx, EventBack)
}

func (w *Workflow) fire(ctx context.Context, ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.IsSubmitting {
		return ErrSubmitInProgress
	}
	next, err := Transition(w.state, ev, w.now())
	w.state = next
	if err != nil {
		return err
	}
	if w.state.Step == StepDateTime && w.state.Fields.Date != "" {
		w.refreshLocked(ctx)
	}
	return nil
}

// Confirm submits the reservation from the review step. On any failure the
// workflow stays on review with GlobalError set.
func (w *Workflow) Confirm(ctx context.Context) (models.Reservation, error) {
	w.mu.Lock()
	if w.state.Step != StepReview {
		step := w.state.Step
		w.mu.Unlock()
		return models.Reservation{}, fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, step)
	}
	if w.state.IsSubmitting {
		w.mu.Unlock()
		return models.Reservation{}, ErrSubmitInProgress
	}
	if errs := validateSubmission(w.state, w.now()); len(errs) > 0 {
		w.state.FieldErrors = errs
		w.mu.Unlock()
		return models.Reservation{}, &ValidationError{Fields: errs}
	}
	if w.api.Submit == nil {
		w.state.GlobalError = MsgSubmitAPINotLoaded
		w.mu.Unlock()
		return models.Reservation{}, ErrAPINotLoaded
	}
	w.state.IsSubmitting = true
	w.state.GlobalError = ""
	submit := w.api.Submit
	draft := w.state.Fields.Reservation()
	w.mu.Unlock()

	saved, err := safeSubmit(ctx, submit, draft)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.IsSubmitting = false
	if err != nil {
		log.Printf("booking: submission failed: %v", err)
		w.state.GlobalError = userMessage(err)
		return models.Reservation{}, err
	}
	w.state.ConfirmedReservation = &saved
	next, err := Transition(w.state, EventConfirmed, w.now())
	if err != nil {
		return models.Reservation{}, err
	}
	w.state = next
	return saved, nil
}

// Reset discards everything and returns to the first step. Any slot query
// still in flight is ignored when it lands.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.query++
	w.state = NewState()
	w.settled = closedChan()
}

func (w *Workflow) editable(step Step, field string) error {
	if w.state.IsSubmitting {
		return ErrSubmitInProgress
	}
	if w.state.Step != step {
		return fmt.Errorf("%w: %s on %s", ErrFieldNotEditable, field, w.state.Step)
	}
	return nil
}

func safeSubmit(ctx context.Context, submit func(context.Context, models.Reservation) (models.Reservation, error), r models.Reservation) (saved models.Reservation, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("unexpected error: %v", p)
		}
	}()
	return submit(ctx, r)
}

func pick(v *string, fallback string) string {
	if v != nil {
		return *v
	}
	return fallback
}

func closedChan() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}
