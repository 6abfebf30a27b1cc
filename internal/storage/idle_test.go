package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIdleCache_ReusesAndEvicts(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	opened := map[string]int{}
	c := NewIdleCache(time.Hour, func(_ context.Context, key string) *string {
		opened[key]++
		v := key
		return &v
	})
	c.SetClock(func() time.Time { return now })

	first := c.Get(ctx, "alice")
	assert.Same(t, first, c.Get(ctx, "alice"))
	c.Get(ctx, "bob")
	assert.Equal(t, 2, c.Len())

	// alice stays warm, bob goes idle
	now = now.Add(40 * time.Minute)
	c.Get(ctx, "alice")
	now = now.Add(40 * time.Minute)

	assert.Equal(t, 1, c.Len())
	assert.Same(t, first, c.Get(ctx, "alice"))

	c.Get(ctx, "bob")
	assert.Equal(t, 1, opened["alice"])
	assert.Equal(t, 2, opened["bob"])
}

func TestIdleCache_ZeroTTLKeepsEverything(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	c := NewIdleCache(0, func(_ context.Context, key string) string { return key })
	c.SetClock(func() time.Time { return now })

	c.Get(ctx, "alice")
	now = now.Add(24 * 365 * time.Hour)
	assert.Equal(t, 1, c.Len())
}
