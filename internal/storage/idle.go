package storage

import (
	"context"
	"sync"
	"time"
)

// IdleCache keeps one lazily opened value per key and forgets keys that
// have not been requested for longer than ttl. A non-positive ttl keeps
// every value.
type IdleCache[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	open    func(ctx context.Context, key string) T
	entries map[string]*idleEntry[T]
}

type idleEntry[T any] struct {
	value    T
	lastSeen time.Time
}

// NewIdleCache uses open to build the value of a key on first use and
// again after it has been evicted.
func NewIdleCache[T any](ttl time.Duration, open func(ctx context.Context, key string) T) *IdleCache[T] {
	return &IdleCache[T]{
		ttl:     ttl,
		now:     time.Now,
		open:    open,
		entries: make(map[string]*idleEntry[T]),
	}
}

// SetClock overrides time.Now
func (c *IdleCache[T]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get returns the value for key and marks it as recently used
func (c *IdleCache[T]) Get(ctx context.Context, key string) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()

	if e, ok := c.entries[key]; ok {
		e.lastSeen = c.now()
		return e.value
	}
	v := c.open(ctx, key)
	c.entries[key] = &idleEntry[T]{value: v, lastSeen: c.now()}
	return v
}

// Len returns the number of live keys
func (c *IdleCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	return len(c.entries)
}

func (c *IdleCache[T]) sweepLocked() {
	if c.ttl <= 0 {
		return
	}
	cutoff := c.now().Add(-c.ttl)
	for key, e := range c.entries {
		if e.lastSeen.Before(cutoff) {
			delete(c.entries, key)
		}
	}
}
