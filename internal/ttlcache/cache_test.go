package ttlcache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestCache_ExpiresAtTTL(t *testing.T) {
	clock := newClock()
	c := New[string, int](WithClock(clock.Now))

	c.Put("a", 1, 10*time.Second)

	clock.Advance(9*time.Second + 999*time.Millisecond)
	v, ok := c.Get("a")
	require.True(t, ok, "entry must be readable before expiry")
	assert.Equal(t, 1, v)

	clock.Advance(time.Millisecond)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry must miss exactly at expiry")
	assert.Equal(t, 0, c.Len(), "expired entry removed on read")
}

func TestCache_PerEntryTTL(t *testing.T) {
	clock := newClock()
	c := New[string, string](WithClock(clock.Now))

	c.Put("young", "x", 10*time.Minute)
	c.Put("old", "y", 30*time.Minute)

	clock.Advance(15 * time.Minute)

	_, ok := c.Get("young")
	assert.False(t, ok)
	_, ok = c.Get("old")
	assert.True(t, ok)
}

func TestCache_DefaultTTL(t *testing.T) {
	clock := newClock()
	c := New[string, int](WithClock(clock.Now), WithDefaultTTL(time.Minute))

	c.Put("a", 1, 0)
	clock.Advance(59 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestCache_OverwriteRefreshesExpiry(t *testing.T) {
	clock := newClock()
	c := New[string, int](WithClock(clock.Now))

	c.Put("a", 1, time.Minute)
	clock.Advance(50 * time.Second)
	c.Put("a", 2, time.Minute)
	clock.Advance(50 * time.Second)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestCache_Sweep(t *testing.T) {
	clock := newClock()
	c := New[string, int](WithClock(clock.Now))

	c.Put("a", 1, time.Minute)
	c.Put("b", 2, 2*time.Minute)
	c.Put("c", 3, 3*time.Minute)

	clock.Advance(2 * time.Minute)
	removed := c.Sweep()

	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("c")
	assert.True(t, ok)
}

func TestCache_PruneKeepsMostRecent(t *testing.T) {
	clock := newClock()
	c := New[string, int](WithClock(clock.Now))

	for i := 0; i < 10; i++ {
		c.Put(fmt.Sprintf("k%d", i), i, time.Hour)
		clock.Advance(time.Second)
	}

	removed := c.Prune(8, 4)
	assert.Equal(t, 6, removed)
	assert.Equal(t, 4, c.Len())

	for i := 0; i < 6; i++ {
		_, ok := c.Get(fmt.Sprintf("k%d", i))
		assert.False(t, ok, "k%d should be pruned", i)
	}
	for i := 6; i < 10; i++ {
		_, ok := c.Get(fmt.Sprintf("k%d", i))
		assert.True(t, ok, "k%d should be kept", i)
	}
}

func TestCache_PruneSameInstantUsesWriteOrder(t *testing.T) {
	clock := newClock()
	c := New[string, int](WithClock(clock.Now))

	c.Put("first", 1, time.Hour)
	c.Put("second", 2, time.Hour)
	c.Put("third", 3, time.Hour)

	c.Prune(2, 1)

	_, ok := c.Get("third")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestCache_PruneBelowBoundIsNoop(t *testing.T) {
	c := New[string, int]()
	c.Put("a", 1, time.Hour)
	c.Put("b", 2, time.Hour)

	assert.Equal(t, 0, c.Prune(2, 1))
	assert.Equal(t, 2, c.Len())
}

func TestCache_Stats(t *testing.T) {
	clock := newClock()
	c := New[string, int](WithClock(clock.Now), WithName("risk"))

	c.Put("a", 1, time.Minute)
	c.Get("a")
	c.Get("missing")
	clock.Advance(time.Minute)
	c.Get("a")

	s := c.Stats()
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(2), s.Misses)
	assert.Equal(t, uint64(1), s.Evictions)
	assert.Equal(t, 0, s.Size)
	assert.Equal(t, "risk", c.Name())
}

func TestCache_Delete(t *testing.T) {
	c := New[string, int]()
	c.Put("a", 1, time.Hour)
	c.Delete("a")

	_, ok := c.Get("a")
	assert.False(t, ok)
}
