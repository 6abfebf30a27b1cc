// Package cart keeps a guest's order-in-progress
package cart

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"taverna/internal/models"
	"taverna/internal/storage"
)

// Ledger holds one line per menu item. Every change is written to the
// persistence store; a failed write is logged and the in-memory ledger is
// kept.
type Ledger struct {
	mu     sync.Mutex
	store  storage.Store
	items  []models.CartItem
	failed int
}

// NewLedger loads the ledger saved under the cart key. A missing or
// malformed value starts an empty cart.
func NewLedger(ctx context.Context, store storage.Store) *Ledger {
	l := &Ledger{store: store}
	if err := storage.LoadJSON(ctx, store, storage.KeyCart, &l.items); err != nil {
		log.Printf("cart: failed to load cart: %v", err)
	}
	kept := []models.CartItem{}
	for _, it := range l.items {
		if it.Quantity > 0 {
			kept = append(kept, it)
		}
	}
	l.items = kept
	return l
}

// Add puts one of item in the cart, or bumps the quantity if it is there
func (l *Ledger) Add(ctx context.Context, item models.MenuItem) models.CartItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.indexLocked(item.ID); i >= 0 {
		l.items[i].Quantity++
		l.persistLocked(ctx)
		return l.items[i]
	}
	line := models.NewCartItem(item)
	l.items = append(l.items, line)
	l.persistLocked(ctx)
	return line
}

// Remove drops the line for itemID and reports whether there was one
func (l *Ledger) Remove(ctx context.Context, itemID int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(itemID)
	if i < 0 {
		return false
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	l.persistLocked(ctx)
	return true
}

// SetQuantity changes the quantity for itemID. A quantity of zero or less
// removes the line. It reports whether the item was in the cart.
func (l *Ledger) SetQuantity(ctx context.Context, itemID, qty int) bool {
	if qty <= 0 {
		return l.Remove(ctx, itemID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(itemID)
	if i < 0 {
		return false
	}
	l.items[i].Quantity = qty
	l.persistLocked(ctx)
	return true
}

// Clear empties the cart
func (l *Ledger) Clear(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = []models.CartItem{}
	l.persistLocked(ctx)
}

// Items returns a copy of the cart lines in the order they were added
func (l *Ledger) Items() []models.CartItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.CartItem{}, l.items...)
}

// Count is the total number of units in the cart
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, it := range l.items {
		n += it.Quantity
	}
	return n
}

// Total is the sum of price times quantity, rounded to the cent
func (l *Ledger) Total() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var cents int64
	for _, it := range l.items {
		cents += toCents(it.Price) * int64(it.Quantity)
	}
	return float64(cents) / 100
}

// FailedWrites counts persistence failures since the ledger was opened
func (l *Ledger) FailedWrites() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failed
}

func (l *Ledger) indexLocked(itemID int) int {
	for i, it := range l.items {
		if it.MenuItemID == itemID {
			return i
		}
	}
	return -1
}

func (l *Ledger) persistLocked(ctx context.Context) {
	if err := storage.SaveJSON(ctx, l.store, storage.KeyCart, l.items); err != nil {
		l.failed++
		log.Printf("cart: failed to save cart: %v", err)
	}
}

func toCents(price float64) int64 {
	return int64(math.Round(price * 100))
}

// Ledgers hands out one Ledger per guest, each scoped to that guest's keys
type Ledgers struct {
	ledgers *storage.IdleCache[*Ledger]
}

// NewLedgers creates a registry over the shared store. Ledgers idle for
// longer than idleTTL are dropped and reloaded on next use.
func NewLedgers(store storage.Store, idleTTL time.Duration) *Ledgers {
	return &Ledgers{
		ledgers: storage.NewIdleCache(idleTTL, func(ctx context.Context, guest string) *Ledger {
			return NewLedger(ctx, storage.Namespace(store, guest))
		}),
	}
}

// For returns guest's ledger, loading it on first use
func (r *Ledgers) For(ctx context.Context, guest string) *Ledger {
	return r.ledgers.Get(ctx, guest)
}

// Len returns the number of loaded ledgers
func (r *Ledgers) Len() int {
	return r.ledgers.Len()
}
