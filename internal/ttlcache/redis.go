package ttlcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// envelope is the JSON form stored in Redis.
// ExpiresAt is kept alongside the value so a reader never trusts Redis TTL rounding.
type envelope[V any] struct {
	Value     V     `json:"value"`
	ExpiresAt int64 `json:"expires_at"` // unix milliseconds
}

// RedisMirror stores typed values in Redis under "<prefix>:<key>".
type RedisMirror[V any] struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisMirror creates a mirror. now may be nil.
func NewRedisMirror[V any](client *redis.Client, prefix string, now func() time.Time) *RedisMirror[V] {
	if now == nil {
		now = time.Now
	}
	return &RedisMirror[V]{client: client, prefix: prefix, now: now}
}

func (m *RedisMirror[V]) key(k string) string {
	return m.prefix + ":" + k
}

// Get returns the value and its expiry. A missing or expired key is (zero, zero, false, nil).
func (m *RedisMirror[V]) Get(ctx context.Context, key string) (V, time.Time, bool, error) {
	var zero V

	raw, err := m.client.Get(ctx, m.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, time.Time{}, false, nil
	}
	if err != nil {
		return zero, time.Time{}, false, fmt.Errorf("redis get %s: %w", m.key(key), err)
	}

	var env envelope[V]
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, time.Time{}, false, fmt.Errorf("decode %s: %w", m.key(key), err)
	}

	expiresAt := time.UnixMilli(env.ExpiresAt).UTC()
	if !m.now().Before(expiresAt) {
		return zero, time.Time{}, false, nil
	}
	return env.Value, expiresAt, true, nil
}

// Set writes value with the given ttl. Non-positive ttl is a no-op.
func (m *RedisMirror[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(envelope[V]{
		Value:     value,
		ExpiresAt: m.now().Add(ttl).UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", m.key(key), err)
	}
	if err := m.client.Set(ctx, m.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", m.key(key), err)
	}
	return nil
}

// Delete removes key.
func (m *RedisMirror[V]) Delete(ctx context.Context, key string) error {
	if err := m.client.Del(ctx, m.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", m.key(key), err)
	}
	return nil
}

// Layered is a local Cache with an optional Redis mirror behind it.
// Mirror failures are logged and never surface to callers.
type Layered[V any] struct {
	local  *Cache[string, V]
	mirror *RedisMirror[V]
	logger zerolog.Logger
}

// NewLayered wraps local. mirror may be nil for a process-local cache.
func NewLayered[V any](local *Cache[string, V], mirror *RedisMirror[V], logger zerolog.Logger) *Layered[V] {
	return &Layered[V]{
		local:  local,
		mirror: mirror,
		logger: logger.With().Str("cache", local.Name()).Logger(),
	}
}

// Local creates a Layered cache without a mirror.
func Local[V any](opts ...Option) *Layered[V] {
	return NewLayered[V](New[string, V](opts...), nil, zerolog.Nop())
}

// Get checks the local cache, then the mirror. A mirror hit is copied locally
// with its remaining lifetime.
func (l *Layered[V]) Get(ctx context.Context, key string) (V, bool) {
	if v, ok := l.local.Get(key); ok {
		return v, true
	}
	if l.mirror == nil {
		var zero V
		return zero, false
	}

	v, expiresAt, ok, err := l.mirror.Get(ctx, key)
	if err != nil {
		l.logger.Warn().Err(err).Str("key", key).Msg("cache mirror read failed")
		return v, false
	}
	if !ok {
		return v, false
	}
	remaining := expiresAt.Sub(l.local.now())
	if remaining <= 0 {
		var zero V
		return zero, false
	}
	l.local.Put(key, v, remaining)
	return v, true
}

// Put stores the value locally and in the mirror.
func (l *Layered[V]) Put(ctx context.Context, key string, value V, ttl time.Duration) {
	l.local.Put(key, value, ttl)
	if l.mirror == nil {
		return
	}
	if ttl <= 0 {
		ttl = l.local.defaultTTL
	}
	if err := l.mirror.Set(ctx, key, value, ttl); err != nil {
		l.logger.Warn().Err(err).Str("key", key).Msg("cache mirror write failed")
	}
}

// Delete removes key from both tiers.
func (l *Layered[V]) Delete(ctx context.Context, key string) {
	l.local.Delete(key)
	if l.mirror == nil {
		return
	}
	if err := l.mirror.Delete(ctx, key); err != nil {
		l.logger.Warn().Err(err).Str("key", key).Msg("cache mirror delete failed")
	}
}

// Expiry returns the local expiry of key.
func (l *Layered[V]) Expiry(key string) (time.Time, bool) { return l.local.Expiry(key) }

func (l *Layered[V]) Name() string { return l.local.Name() }

func (l *Layered[V]) Sweep() int { return l.local.Sweep() }

func (l *Layered[V]) Prune(maxSize, keep int) int { return l.local.Prune(maxSize, keep) }

func (l *Layered[V]) Stats() Stats { return l.local.Stats() }

func (l *Layered[V]) Len() int { return l.local.Len() }

var _ Maintainable = (*Layered[int])(nil)
