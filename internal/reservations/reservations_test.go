package reservations

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"taverna/internal/models"
	"taverna/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("res-%d", n)
	}
}

func newTestStore(persist storage.Store) *Store {
	return NewStore(persist,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(sequentialIDs()),
		WithSlotGrid(DefaultGrid),
	)
}

func booking(date, clock string) models.Reservation {
	return models.Reservation{
		Date:      date,
		Time:      clock,
		PartySize: 2,
		Name:      "Jane Doe",
		Email:     "jane@x.com",
		Phone:     "555-0100",
	}
}

// flakyStore fails writes while failWrites is set
type flakyStore struct {
	*storage.MemoryStore
	failWrites bool
}

func (f *flakyStore) Set(ctx context.Context, key, value string) error {
	if f.failWrites {
		return errors.New("quota exceeded")
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func TestSlotGrid_DefaultHasElevenSlots(t *testing.T) {
	slots := DefaultGrid.Slots()
	require.Len(t, slots, 11)
	assert.Equal(t, "17:00", slots[0])
	assert.Equal(t, "17:30", slots[1])
	assert.Equal(t, "22:00", slots[10])
}

func TestSlotGrid_Contains(t *testing.T) {
	assert.True(t, DefaultGrid.Contains("18:30"))
	assert.True(t, DefaultGrid.Contains("22:00"))
	assert.False(t, DefaultGrid.Contains("18:15"))
	assert.False(t, DefaultGrid.Contains("16:30"))
	assert.False(t, DefaultGrid.Contains("22:30"))
	assert.False(t, DefaultGrid.Contains("nope"))
}

func TestNewSlotGrid(t *testing.T) {
	g, err := NewSlotGrid("11:30", "13:00", 45*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"11:30", "12:15"}, g.Slots())

	_, err = NewSlotGrid("20:00", "18:00", time.Hour)
	assert.Error(t, err)

	_, err = NewSlotGrid("x", "18:00", time.Hour)
	assert.ErrorIs(t, err, ErrInvalidTime)
}

func TestAvailableTimeSlots_ExcludesConfirmedOnDate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(storage.NewMemoryStore())
	avail := NewAvailability(store, DefaultGrid)

	_, err := store.Create(ctx, booking("2026-10-20", "18:30"))
	require.NoError(t, err)
	// same time on another date must not matter
	_, err = store.Create(ctx, booking("2026-10-21", "19:00"))
	require.NoError(t, err)

	slots, err := avail.AvailableTimeSlots(ctx, "2026-10-20")
	require.NoError(t, err)
	assert.Len(t, slots, 10)
	assert.NotContains(t, slots, "18:30")
	assert.Contains(t, slots, "19:00")

	again, err := avail.AvailableTimeSlots(ctx, "2026-10-20")
	require.NoError(t, err)
	assert.Equal(t, slots, again)
}

func TestAvailableTimeSlots_IgnoresCancelled(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(storage.NewMemoryStore())
	avail := NewAvailability(store, DefaultGrid)

	r, err := store.Create(ctx, booking("2026-10-20", "18:30"))
	require.NoError(t, err)
	require.NoError(t, store.Cancel(ctx, r.ID))

	slots, err := avail.AvailableTimeSlots(ctx, "2026-10-20")
	require.NoError(t, err)
	assert.Equal(t, DefaultGrid.Slots(), slots)
}

func TestAvailableTimeSlots_FullyBookedIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(storage.NewMemoryStore())
	avail := NewAvailability(store, DefaultGrid)

	for _, slot := range DefaultGrid.Slots() {
		_, err := store.Create(ctx, booking("2026-10-20", slot))
		require.NoError(t, err)
	}

	slots, err := avail.AvailableTimeSlots(ctx, "2026-10-20")
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestAvailableTimeSlots_InvalidDate(t *testing.T) {
	avail := NewAvailability(newTestStore(storage.NewMemoryStore()), DefaultGrid)
	_, err := avail.AvailableTimeSlots(context.Background(), "20/10/2026")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestAvailableTimeSlots_MalformedCollectionIsEmpty(t *testing.T) {
	ctx := context.Background()
	persist := storage.NewMemoryStore()
	require.NoError(t, persist.Set(ctx, storage.KeyReservations, "{not json"))

	avail := NewAvailability(newTestStore(persist), DefaultGrid)
	slots, err := avail.AvailableTimeSlots(ctx, "2026-10-20")
	require.NoError(t, err)
	assert.Len(t, slots, 11)
}

func TestCreate_AssignsIdentityAndStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(storage.NewMemoryStore())

	r, err := store.Create(ctx, booking("2026-10-20", "19:00"))
	require.NoError(t, err)

	assert.Equal(t, "res-1", r.ID)
	assert.Equal(t, models.ReservationStatusConfirmed, r.Status)
	assert.Equal(t, fixedNow, r.CreatedAt)
	assert.Nil(t, r.CancelledAt)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, r, all[0])
}

func TestCreate_UsesUUIDByDefault(t *testing.T) {
	store := NewStore(storage.NewMemoryStore(), WithClock(func() time.Time { return fixedNow }))
	r, err := store.Create(context.Background(), booking("2026-10-20", "19:00"))
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`, r.ID)
}

func TestCreate_MissingFields(t *testing.T) {
	store := newTestStore(storage.NewMemoryStore())

	tests := []struct {
		field  string
		mutate func(*models.Reservation)
	}{
		{"date", func(r *models.Reservation) { r.Date = "" }},
		{"time", func(r *models.Reservation) { r.Time = "" }},
		{"partySize", func(r *models.Reservation) { r.PartySize = 0 }},
		{"name", func(r *models.Reservation) { r.Name = "  " }},
		{"email", func(r *models.Reservation) { r.Email = "" }},
		{"phone", func(r *models.Reservation) { r.Phone = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			r := booking("2026-10-20", "19:00")
			tt.mutate(&r)

			_, err := store.Create(context.Background(), r)
			require.ErrorIs(t, err, ErrMissingField)

			var mf *MissingFieldError
			require.ErrorAs(t, err, &mf)
			assert.Equal(t, tt.field, mf.Field)
		})
	}
}

func TestCreate_InvalidFields(t *testing.T) {
	store := newTestStore(storage.NewMemoryStore())

	tests := []struct {
		name   string
		field  string
		mutate func(*models.Reservation)
	}{
		{"date in the past", "date", func(r *models.Reservation) { r.Date = "2001-01-01" }},
		{"yesterday", "date", func(r *models.Reservation) { r.Date = "2026-10-18" }},
		{"party too large", "partySize", func(r *models.Reservation) { r.PartySize = 500 }},
		{"party just over", "partySize", func(r *models.Reservation) { r.PartySize = models.MaxPartySize + 1 }},
		{"negative party", "partySize", func(r *models.Reservation) { r.PartySize = -2 }},
		{"email without at", "email", func(r *models.Reservation) { r.Email = "not-an-email" }},
		{"email without domain", "email", func(r *models.Reservation) { r.Email = "jane@x" }},
		{"phone with letters", "phone", func(r *models.Reservation) { r.Phone = "abc" }},
		{"phone too short", "phone", func(r *models.Reservation) { r.Phone = "12-34" }},
		{"unknown occasion", "occasion", func(r *models.Reservation) { r.Occasion = "bogus" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := booking("2026-10-20", "19:00")
			tt.mutate(&r)

			_, err := store.Create(context.Background(), r)
			require.ErrorIs(t, err, ErrInvalidField)

			var inv *InvalidFieldError
			require.ErrorAs(t, err, &inv)
			assert.Equal(t, tt.field, inv.Field)
		})
	}

	all, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreate_AcceptsBoundaryValues(t *testing.T) {
	store := newTestStore(storage.NewMemoryStore())

	r := booking("2026-10-19", "22:00")
	r.PartySize = models.MaxPartySize
	r.Occasion = models.OccasionAnniversary
	r.Phone = "+1 (555) 010-0100"
	_, err := store.Create(context.Background(), r)
	require.NoError(t, err)

	r = booking("2026-10-19", "17:00")
	r.PartySize = 1
	_, err = store.Create(context.Background(), r)
	assert.NoError(t, err)
}

func TestCreate_RejectsOffGridTime(t *testing.T) {
	store := newTestStore(storage.NewMemoryStore())
	_, err := store.Create(context.Background(), booking("2026-10-20", "18:10"))
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestCreate_RechecksCurrentPersistedState(t *testing.T) {
	ctx := context.Background()
	persist := storage.NewMemoryStore()

	// two independent stores over the same persisted collection, as when
	// two tabs of the same guest race for a slot
	first := newTestStore(persist)
	second := newTestStore(persist)

	avail := NewAvailability(second, DefaultGrid)
	slots, err := avail.AvailableTimeSlots(ctx, "2026-10-20")
	require.NoError(t, err)
	require.Contains(t, slots, "20:00")

	_, err = first.Create(ctx, booking("2026-10-20", "20:00"))
	require.NoError(t, err)

	_, err = second.Create(ctx, booking("2026-10-20", "20:00"))
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	all, err := first.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreate_PersistenceFailureIsReported(t *testing.T) {
	persist := &flakyStore{MemoryStore: storage.NewMemoryStore(), failWrites: true}
	store := newTestStore(persist)

	_, err := store.Create(context.Background(), booking("2026-10-20", "19:00"))
	assert.ErrorIs(t, err, ErrPersistence)

	persist.failWrites = false
	all, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(storage.NewMemoryStore())

	r, err := store.Create(ctx, booking("2026-10-20", "19:00"))
	require.NoError(t, err)

	require.NoError(t, store.Cancel(ctx, r.ID))

	got, err := store.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusCancelled, got.Status)
	require.NotNil(t, got.CancelledAt)
	assert.Equal(t, fixedNow, *got.CancelledAt)

	// idempotent
	assert.NoError(t, store.Cancel(ctx, r.ID))
	assert.ErrorIs(t, store.Cancel(ctx, "missing"), ErrNotFound)

	// never physically deleted
	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCancel_PersistenceFailure(t *testing.T) {
	ctx := context.Background()
	persist := &flakyStore{MemoryStore: storage.NewMemoryStore()}
	store := newTestStore(persist)

	r, err := store.Create(ctx, booking("2026-10-20", "19:00"))
	require.NoError(t, err)

	persist.failWrites = true
	assert.ErrorIs(t, store.Cancel(ctx, r.ID), ErrPersistence)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(storage.NewMemoryStore())

	a, err := store.Create(ctx, booking("2026-10-20", "19:00"))
	require.NoError(t, err)
	_, err = store.Create(ctx, booking("2026-10-20", "20:00"))
	require.NoError(t, err)

	party := 4
	requests := "window seat"
	updated, err := store.Update(ctx, a.ID, Patch{PartySize: &party, SpecialRequests: &requests})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.PartySize)
	assert.Equal(t, "window seat", updated.SpecialRequests)
	require.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, "19:00", updated.Time)

	taken := "20:00"
	_, err = store.Update(ctx, a.ID, Patch{Time: &taken})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	free := "21:30"
	moved, err := store.Update(ctx, a.ID, Patch{Time: &free})
	require.NoError(t, err)
	assert.Equal(t, "21:30", moved.Time)

	// keeping its own slot is not a conflict
	same := "21:30"
	_, err = store.Update(ctx, a.ID, Patch{Time: &same})
	assert.NoError(t, err)

	blank := ""
	_, err = store.Update(ctx, a.ID, Patch{Name: &blank})
	assert.ErrorIs(t, err, ErrMissingField)

	past := "2001-01-01"
	huge := 500
	email := "not-an-email"
	phone := "abc"
	occasion := "bogus"
	invalid := []struct {
		field string
		patch Patch
	}{
		{"date", Patch{Date: &past}},
		{"partySize", Patch{PartySize: &huge}},
		{"email", Patch{Email: &email}},
		{"phone", Patch{Phone: &phone}},
		{"occasion", Patch{Occasion: &occasion}},
	}
	for _, tt := range invalid {
		t.Run(tt.field, func(t *testing.T) {
			_, err := store.Update(ctx, a.ID, tt.patch)
			require.ErrorIs(t, err, ErrInvalidField)
			var inv *InvalidFieldError
			require.ErrorAs(t, err, &inv)
			assert.Equal(t, tt.field, inv.Field)
		})
	}

	unchanged, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-20", unchanged.Date)
	assert.Equal(t, 4, unchanged.PartySize)
	assert.Equal(t, "jane@x.com", unchanged.Email)

	_, err = store.Update(ctx, "missing", Patch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_CancelledReservation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(storage.NewMemoryStore())

	r, err := store.Create(ctx, booking("2026-10-20", "19:00"))
	require.NoError(t, err)
	require.NoError(t, store.Cancel(ctx, r.ID))

	party := 3
	_, err = store.Update(ctx, r.ID, Patch{PartySize: &party})
	assert.ErrorIs(t, err, ErrReservationCancelled)
}

func TestUpcoming(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(storage.NewMemoryStore())

	_, err := store.Create(ctx, booking("2026-10-25", "18:00"))
	require.NoError(t, err)
	yesterday := booking("2026-10-18", "18:00")
	yesterday.ID = "old"
	yesterday.Status = models.ReservationStatusConfirmed
	records, err := store.List(ctx)
	require.NoError(t, err)
	require.NoError(t, store.save(ctx, append(records, yesterday)))
	_, err = store.Create(ctx, booking("2026-10-19", "21:00"))
	require.NoError(t, err)
	cancelled, err := store.Create(ctx, booking("2026-10-20", "18:00"))
	require.NoError(t, err)
	require.NoError(t, store.Cancel(ctx, cancelled.ID))

	upcoming, err := store.Upcoming(ctx)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, "2026-10-19", upcoming[0].Date)
	assert.Equal(t, "2026-10-25", upcoming[1].Date)
}

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestStore(storage.NewMemoryStore()), DefaultGrid)

	slots, err := svc.FetchSlots(ctx, "2026-10-20")
	require.NoError(t, err)
	require.Len(t, slots, 11)

	r, err := svc.Submit(ctx, booking("2026-10-20", slots[0]))
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)

	slots, err = svc.FetchSlots(ctx, "2026-10-20")
	require.NoError(t, err)
	assert.Len(t, slots, 10)
	assert.NotContains(t, slots, r.Time)
}

func TestServices_ScopedPerGuest(t *testing.T) {
	ctx := context.Background()
	persist := storage.NewMemoryStore()
	clock := WithClock(func() time.Time { return fixedNow })
	reg := NewServices(persist, DefaultGrid, time.Hour, clock)

	alice := reg.For("alice")
	assert.Same(t, alice, reg.For("alice"))

	_, err := alice.Submit(ctx, booking("2026-10-20", "19:00"))
	require.NoError(t, err)

	slots, err := reg.For("bob").FetchSlots(ctx, "2026-10-20")
	require.NoError(t, err)
	assert.Contains(t, slots, "19:00")

	_, err = NewServices(persist, DefaultGrid, time.Hour, clock).For("alice").Submit(ctx, booking("2026-10-20", "19:00"))
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestServices_IdleServiceIsReopened(t *testing.T) {
	ctx := context.Background()
	now := fixedNow
	reg := NewServices(storage.NewMemoryStore(), DefaultGrid, time.Hour, WithClock(func() time.Time { return fixedNow }))
	reg.services.SetClock(func() time.Time { return now })

	before := reg.For("alice")
	_, err := before.Submit(ctx, booking("2026-10-20", "19:00"))
	require.NoError(t, err)
	require.Equal(t, 1, reg.Len())

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 0, reg.Len())

	after := reg.For("alice")
	assert.NotSame(t, before, after)
	slots, err := after.FetchSlots(ctx, "2026-10-20")
	require.NoError(t, err)
	assert.NotContains(t, slots, "19:00")
}
