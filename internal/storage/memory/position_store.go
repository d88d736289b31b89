package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Position // keyed by position ID
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[string]*domain.Position),
	}
}

// Open adds an open position. Returns ErrDuplicateKey if the ID exists
// or the token already has an open position.
func (s *PositionStore) Open(_ context.Context, p *domain.Position) error {
	if p == nil || p.ID == "" || p.TokenAddress == "" || p.AmountIn <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.ID]; exists {
		return storage.ErrDuplicateKey
	}
	for _, existing := range s.data {
		if existing.TokenAddress == p.TokenAddress && existing.Status == domain.PositionOpen {
			return storage.ErrDuplicateKey
		}
	}

	c := clonePosition(p)
	c.Status = domain.PositionOpen
	s.data[p.ID] = c
	return nil
}

// Close books a final exit and closes the position.
func (s *PositionStore) Close(_ context.Context, id string, exit storage.PositionExit) (*domain.Position, error) {
	return s.applyExit(id, exit, true)
}

// PartialClose books an exit that reduces the position.
func (s *PositionStore) PartialClose(_ context.Context, id string, exit storage.PositionExit) (*domain.Position, error) {
	if exit.CostBasis <= 0 {
		return nil, storage.ErrInvalidInput
	}
	return s.applyExit(id, exit, false)
}

func (s *PositionStore) applyExit(id string, exit storage.PositionExit, final bool) (*domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	if p.Status == domain.PositionClosed {
		return nil, storage.ErrPositionClosed
	}

	p.ApplyExit(exit.PriceUSD, exit.AmountOut, exit.CostBasis, exit.Reason, exit.At, final)
	if exit.TakeProfit != nil && p.Status == domain.PositionOpen {
		tp := *exit.TakeProfit
		p.TakeProfit = &tp
	}
	return clonePosition(p), nil
}

// GetOpen retrieves all open positions ordered by entry time.
func (s *PositionStore) GetOpen(_ context.Context) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.Status == domain.PositionOpen {
			result = append(result, clonePosition(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].EntryTime.Equal(result[j].EntryTime) {
			return result[i].EntryTime.Before(result[j].EntryTime)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// GetByID retrieves a position. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(_ context.Context, id string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return clonePosition(p), nil
}

// GetClosedSince retrieves positions closed at or after since, ordered by exit time.
func (s *PositionStore) GetClosedSince(_ context.Context, since time.Time) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.Status == domain.PositionClosed && p.ExitTime != nil && !p.ExitTime.Before(since) {
			result = append(result, clonePosition(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].ExitTime.Equal(*result[j].ExitTime) {
			return result[i].ExitTime.Before(*result[j].ExitTime)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

var _ storage.PositionStore = (*PositionStore)(nil)

func clonePosition(p *domain.Position) *domain.Position {
	c := *p
	c.StopLoss = clonePtr(p.StopLoss)
	c.TakeProfit = clonePtr(p.TakeProfit)
	c.ExitPrice = clonePtr(p.ExitPrice)
	c.ExitTime = clonePtr(p.ExitTime)
	return &c
}
