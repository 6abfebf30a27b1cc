package reservations

import (
	"context"
	"time"

	"taverna/internal/models"
	"taverna/internal/storage"
)

// Service bundles availability lookups and reservation creation behind the
// two calls the booking workflow makes.
type Service struct {
	store        *Store
	availability *Availability
}

// NewService creates a booking service over store with the given grid
func NewService(store *Store, grid SlotGrid) *Service {
	return &Service{
		store:        store,
		availability: NewAvailability(store, grid),
	}
}

// Store returns the underlying reservation store
func (s *Service) Store() *Store {
	return s.store
}

// Availability returns the slot provider
func (s *Service) Availability() *Availability {
	return s.availability
}

// FetchSlots lists the free slots for date
func (s *Service) FetchSlots(ctx context.Context, date string) ([]string, error) {
	return s.availability.AvailableTimeSlots(ctx, date)
}

// Submit books r; the slot is re-checked against the current collection
func (s *Service) Submit(ctx context.Context, r models.Reservation) (models.Reservation, error) {
	return s.store.Create(ctx, r)
}

// Services keeps one Service per guest, each over that guest's namespace of
// the shared store
type Services struct {
	grid     SlotGrid
	services *storage.IdleCache[*Service]
}

// NewServices creates a registry. Every guest store gets the grid and opts.
// A guest's service is dropped after idleTTL without requests and reopened
// from persistence on the next one.
func NewServices(persist storage.Store, grid SlotGrid, idleTTL time.Duration, opts ...StoreOption) *Services {
	opts = append([]StoreOption{WithSlotGrid(grid)}, opts...)
	return &Services{
		grid: grid,
		services: storage.NewIdleCache(idleTTL, func(_ context.Context, guest string) *Service {
			return NewService(NewStore(storage.Namespace(persist, guest), opts...), grid)
		}),
	}
}

// For returns guest's service
func (r *Services) For(guest string) *Service {
	return r.services.Get(context.Background(), guest)
}

// Len returns the number of guests with a live service
func (r *Services) Len() int {
	return r.services.Len()
}

// Grid returns the slot grid shared by every guest
func (r *Services) Grid() SlotGrid {
	return r.grid
}
