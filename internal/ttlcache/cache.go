// Package ttlcache provides a generic expiring key-value cache with size-bounded pruning.
//
// Every external-data consumer keeps its results in a Cache so that repeated
// evaluations inside a TTL window do not call the provider again. TTL is chosen
// per entry by the caller.
package ttlcache

import (
	"sort"
	"sync"
	"time"
)

// Stats holds cumulative cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64 // entries removed by Sweep, Prune or expiry on read
	Size      int
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
	writtenAt time.Time
	seq       uint64 // write order, breaks writtenAt ties
}

// Cache is a mutex-guarded map from key to (value, expiry).
// A value is never returned at or after its expiry instant.
type Cache[K comparable, V any] struct {
	name       string
	defaultTTL time.Duration
	now        func() time.Time

	mu    sync.Mutex
	items map[K]entry[V]
	seq   uint64
	stats Stats
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	name       string
	defaultTTL time.Duration
	now        func() time.Time
}

// WithName sets the cache name used in metrics and logs.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithDefaultTTL sets the TTL applied when Put receives a non-positive ttl.
func WithDefaultTTL(d time.Duration) Option {
	return func(o *options) {
		o.defaultTTL = d
	}
}

// WithClock sets the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New creates an empty cache.
func New[K comparable, V any](opts ...Option) *Cache[K, V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[K, V]{
		name:       o.name,
		defaultTTL: o.defaultTTL,
		now:        o.now,
		items:      make(map[K]entry[V]),
	}
}

// Name returns the cache name.
func (c *Cache[K, V]) Name() string {
	return c.name
}

// Get returns the value for key if present and not expired.
// An expired entry is removed and reported as a miss.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.items, key)
		c.stats.Misses++
		c.stats.Evictions++
		var zero V
		return zero, false
	}
	c.stats.Hits++
	return e.value, true
}

// Put stores value under key for ttl. A non-positive ttl uses the default TTL;
// with no default the entry is stored already expired.
func (c *Cache[K, V]) Put(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.seq++
	c.items[key] = entry[V]{
		value:     value,
		expiresAt: now.Add(ttl),
		writtenAt: now,
		seq:       c.seq,
	}
}

// Expiry returns the expiry instant of key, if present.
func (c *Cache[K, V]) Expiry(key K) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return time.Time{}, false
	}
	return e.expiresAt, true
}

// Delete removes key.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Sweep removes all expired entries and returns how many were removed.
func (c *Cache[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
			removed++
		}
	}
	c.stats.Evictions += uint64(removed)
	return removed
}

// Prune does nothing while the cache holds at most maxSize entries. Otherwise it
// retains the keep most recently written entries and discards the rest.
// Returns the number of entries removed.
func (c *Cache[K, V]) Prune(maxSize, keep int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) <= maxSize {
		return 0
	}
	if keep < 0 {
		keep = 0
	}

	type keyed struct {
		key K
		e   entry[V]
	}
	all := make([]keyed, 0, len(c.items))
	for k, e := range c.items {
		all = append(all, keyed{key: k, e: e})
	}

	// Newest first: write time, then expiry, then write order.
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i].e, all[j].e
		if !a.writtenAt.Equal(b.writtenAt) {
			return a.writtenAt.After(b.writtenAt)
		}
		if !a.expiresAt.Equal(b.expiresAt) {
			return a.expiresAt.After(b.expiresAt)
		}
		return a.seq > b.seq
	})

	removed := 0
	for i := keep; i < len(all); i++ {
		delete(c.items, all[i].key)
		removed++
	}
	c.stats.Evictions += uint64(removed)
	return removed
}

// Stats returns a copy of the cache counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = len(c.items)
	return s
}

// Maintainable is implemented by caches the maintenance loop sweeps and prunes.
type Maintainable interface {
	Name() string
	Sweep() int
	Prune(maxSize, keep int) int
	Stats() Stats
}

var _ Maintainable = (*Cache[string, int])(nil)
