// Package safety fetches holder and contract safety data for tokens.
package safety

import (
	"context"
	"errors"
	"time"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/ttlcache"
)

// ErrUnavailable is returned when a provider has no data for a token.
var ErrUnavailable = errors.New("safety data unavailable")

// Provider returns a safety report for a mint address.
type Provider interface {
	Name() string
	Check(ctx context.Context, address string) (*domain.SafetyReport, error)
}

// Provider names accepted by configuration.
const (
	ProviderRugCheck  = "rugcheck"
	ProviderSimulated = "simulated"
)

// DefaultCacheTTL is how long a safety report is reused.
const DefaultCacheTTL = 30 * time.Minute

// Cached reuses reports from a Provider for a fixed TTL. Errors are not cached.
type Cached struct {
	next  Provider
	cache *ttlcache.Layered[domain.SafetyReport]
	ttl   time.Duration
}

// NewCached wraps next.
func NewCached(next Provider, cache *ttlcache.Layered[domain.SafetyReport], ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{next: next, cache: cache, ttl: ttl}
}

// Name returns the wrapped provider's name.
func (c *Cached) Name() string {
	return c.next.Name()
}

// Check returns a cached report or asks the wrapped provider.
func (c *Cached) Check(ctx context.Context, address string) (*domain.SafetyReport, error) {
	if r, ok := c.cache.Get(ctx, address); ok {
		return &r, nil
	}
	r, err := c.next.Check(ctx, address)
	if err != nil {
		return nil, err
	}
	c.cache.Put(ctx, address, *r, c.ttl)
	return r, nil
}

var _ Provider = (*Cached)(nil)
