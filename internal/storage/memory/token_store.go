package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenSnapshot // keyed by address
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.TokenSnapshot),
	}
}

// Upsert inserts the token or refreshes its latest snapshot.
// A known listing time is kept when the new snapshot lacks one.
func (s *TokenStore) Upsert(_ context.Context, t *domain.TokenSnapshot) error {
	if t == nil || t.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tokenCopy := *t
	if prev, exists := s.data[t.Address]; exists && tokenCopy.ListedAt.IsZero() {
		tokenCopy.ListedAt = prev.ListedAt
	}
	s.data[t.Address] = &tokenCopy
	return nil
}

// GetByAddress retrieves a token. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByAddress(_ context.Context, address string) (*domain.TokenSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	tokenCopy := *t
	return &tokenCopy, nil
}

// ListRecent retrieves up to limit tokens, most recently fetched first.
func (s *TokenStore) ListRecent(_ context.Context, limit int) ([]*domain.TokenSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TokenSnapshot, 0, len(s.data))
	for _, t := range s.data {
		tokenCopy := *t
		result = append(result, &tokenCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].FetchedAt.Equal(result[j].FetchedAt) {
			return result[i].FetchedAt.After(result[j].FetchedAt)
		}
		return result[i].Address < result[j].Address
	})

	return limitSlice(result, limit), nil
}

var _ storage.TokenStore = (*TokenStore)(nil)

// limitSlice truncates s to limit entries. A non-positive limit keeps everything.
func limitSlice[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
