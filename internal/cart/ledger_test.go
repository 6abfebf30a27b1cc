package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"taverna/internal/models"
	"taverna/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	salad   = models.MenuItem{ID: 4, Name: "Greek Salad", Category: "salad", Price: 12.5}
	baklava = models.MenuItem{ID: 9, Name: "Baklava", Category: "dessert", Price: 8.95}
	frappe  = models.MenuItem{ID: 12, Name: "Frappé", Category: "beverage", Price: 0.1}
)

type brokenStore struct {
	*storage.MemoryStore
}

func (brokenStore) Set(context.Context, string, string) error {
	return errors.New("quota exceeded")
}

func TestLedger_AddTwiceKeepsOneLine(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(ctx, storage.NewMemoryStore())

	l.Add(ctx, salad)
	line := l.Add(ctx, salad)

	assert.Equal(t, 2, line.Quantity)
	assert.Len(t, l.Items(), 1)
	assert.Equal(t, 2, l.Count())

	assert.True(t, l.SetQuantity(ctx, salad.ID, 0))
	assert.Empty(t, l.Items())
	assert.Equal(t, 0, l.Count())
}

func TestLedger_SetQuantityAndRemove(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(ctx, storage.NewMemoryStore())
	l.Add(ctx, salad)
	l.Add(ctx, baklava)

	assert.True(t, l.SetQuantity(ctx, baklava.ID, 3))
	assert.False(t, l.SetQuantity(ctx, 99, 3))
	assert.Equal(t, 4, l.Count())

	assert.True(t, l.SetQuantity(ctx, salad.ID, -1))
	assert.False(t, l.Remove(ctx, salad.ID))
	require.Len(t, l.Items(), 1)
	assert.Equal(t, baklava.ID, l.Items()[0].MenuItemID)

	assert.True(t, l.Remove(ctx, baklava.ID))
	assert.Empty(t, l.Items())
}

func TestLedger_TotalIsCentExact(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(ctx, storage.NewMemoryStore())
	for i := 0; i < 3; i++ {
		l.Add(ctx, frappe)
	}
	l.Add(ctx, salad)
	l.SetQuantity(ctx, salad.ID, 2)
	l.Add(ctx, baklava)

	assert.Equal(t, 34.25, l.Total())
}

func TestLedger_PersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	l := NewLedger(ctx, store)
	l.Add(ctx, salad)
	l.Add(ctx, baklava)
	l.Add(ctx, baklava)

	reloaded := NewLedger(ctx, store)
	assert.Equal(t, l.Items(), reloaded.Items())
	assert.Equal(t, 3, reloaded.Count())

	l.Clear(ctx)
	assert.Empty(t, NewLedger(ctx, store).Items())
}

func TestLedger_MalformedStoredCartIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, storage.KeyCart, `[{"menuItemId":`))

	l := NewLedger(ctx, store)
	assert.Empty(t, l.Items())
	assert.Equal(t, 0.0, l.Total())
}

func TestLedger_DropsNonPositiveStoredLines(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, storage.KeyCart, `[{"menuItemId":4,"quantity":0},{"menuItemId":9,"quantity":2,"price":1}]`))

	l := NewLedger(ctx, store)
	require.Len(t, l.Items(), 1)
	assert.Equal(t, 9, l.Items()[0].MenuItemID)
}

func TestLedger_PersistenceFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(ctx, brokenStore{storage.NewMemoryStore()})

	l.Add(ctx, salad)
	l.Add(ctx, baklava)

	assert.Equal(t, 2, l.Count())
	assert.Equal(t, 2, l.FailedWrites())
}

func TestLedgers_ScopedPerGuest(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	r := NewLedgers(store, time.Hour)

	r.For(ctx, "alice").Add(ctx, salad)
	r.For(ctx, "bob").Add(ctx, baklava)

	assert.Same(t, r.For(ctx, "alice"), r.For(ctx, "alice"))
	assert.Equal(t, salad.ID, r.For(ctx, "alice").Items()[0].MenuItemID)
	assert.Equal(t, baklava.ID, r.For(ctx, "bob").Items()[0].MenuItemID)

	fresh := NewLedgers(store, time.Hour)
	assert.Equal(t, 1, fresh.For(ctx, "alice").Count())
}

func TestLedgers_IdleLedgerIsReloaded(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	r := NewLedgers(storage.NewMemoryStore(), time.Hour)
	r.ledgers.SetClock(func() time.Time { return now })

	before := r.For(ctx, "alice")
	before.Add(ctx, salad)
	r.For(ctx, "bob")
	require.Equal(t, 2, r.Len())

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 0, r.Len())

	after := r.For(ctx, "alice")
	assert.NotSame(t, before, after)
	require.Equal(t, 1, after.Count())
	assert.Equal(t, salad.ID, after.Items()[0].MenuItemID)
}
