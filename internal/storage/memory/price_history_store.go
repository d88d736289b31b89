package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

// PriceHistoryStore is an in-memory implementation of storage.PriceHistoryStore.
type PriceHistoryStore struct {
	mu   sync.RWMutex
	data map[string]map[int64]domain.PricePoint // address -> unix ms -> point
}

// NewPriceHistoryStore creates a new in-memory price history store.
func NewPriceHistoryStore() *PriceHistoryStore {
	return &PriceHistoryStore{
		data: make(map[string]map[int64]domain.PricePoint),
	}
}

// Append adds points, skipping (token, timestamp) pairs already stored.
func (s *PriceHistoryStore) Append(_ context.Context, points []domain.PricePoint) error {
	for _, p := range points {
		if p.TokenAddress == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		byTime, ok := s.data[p.TokenAddress]
		if !ok {
			byTime = make(map[int64]domain.PricePoint)
			s.data[p.TokenAddress] = byTime
		}
		ms := p.Timestamp.UnixMilli()
		if _, exists := byTime[ms]; !exists {
			byTime[ms] = p
		}
	}
	return nil
}

// GetRange retrieves points for a token within [start, end] (inclusive), ordered by timestamp ASC.
func (s *PriceHistoryStore) GetRange(_ context.Context, address string, start, end time.Time) ([]domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.PricePoint
	for _, p := range s.data[address] {
		if !p.Timestamp.Before(start) && !p.Timestamp.After(end) {
			result = append(result, p)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}

var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)
