package marketdata

import (
	"context"
	"time"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/ttlcache"
)

// DefaultSnapshotTTL is how long a token overview is reused.
const DefaultSnapshotTTL = 60 * time.Second

// CachedClient reuses token snapshots from a BirdeyeClient for a short TTL.
// Listings and price history always go to the API. Errors are not cached.
type CachedClient struct {
	*BirdeyeClient
	cache *ttlcache.Layered[domain.TokenSnapshot]
	ttl   time.Duration
}

// NewCachedClient wraps client.
func NewCachedClient(client *BirdeyeClient, cache *ttlcache.Layered[domain.TokenSnapshot], ttl time.Duration) *CachedClient {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	if cache == nil {
		cache = ttlcache.Local[domain.TokenSnapshot](ttlcache.WithName("market"), ttlcache.WithClock(client.now))
	}
	return &CachedClient{BirdeyeClient: client, cache: cache, ttl: ttl}
}

// FetchTokenSnapshot returns a cached snapshot or fetches a fresh one.
// A known listedAt fills in a cached snapshot that lacks one.
func (c *CachedClient) FetchTokenSnapshot(ctx context.Context, address string, listedAt time.Time) (*domain.TokenSnapshot, error) {
	if s, ok := c.cache.Get(ctx, address); ok {
		if s.ListedAt.IsZero() && !listedAt.IsZero() {
			s.ListedAt = listedAt
		}
		return &s, nil
	}
	s, err := c.BirdeyeClient.FetchTokenSnapshot(ctx, address, listedAt)
	if err != nil {
		return nil, err
	}
	c.cache.Put(ctx, address, *s, c.ttl)
	return s, nil
}

// Cache exposes the snapshot cache for maintenance.
func (c *CachedClient) Cache() *ttlcache.Layered[domain.TokenSnapshot] {
	return c.cache
}
