package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

// StatisticsStore is an in-memory implementation of storage.StatisticsStore.
type StatisticsStore struct {
	mu   sync.RWMutex
	data map[time.Time]*domain.DailyStatistics // keyed by UTC midnight
	now  func() time.Time
}

// NewStatisticsStore creates a new in-memory statistics store.
func NewStatisticsStore() *StatisticsStore {
	return &StatisticsStore{
		data: make(map[time.Time]*domain.DailyStatistics),
		now:  time.Now,
	}
}

// Increment adds delta to the counters of date's UTC day, creating the row if needed.
func (s *StatisticsStore) Increment(_ context.Context, date time.Time, delta domain.StatsDelta) (*domain.DailyStatistics, error) {
	day := storage.DayStart(date)

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.data[day]
	if !ok {
		st = &domain.DailyStatistics{Date: day}
		s.data[day] = st
	}
	st.TokensAnalyzed += delta.TokensAnalyzed
	st.TradesExecuted += delta.TradesExecuted
	st.SuccessfulTrades += delta.SuccessfulTrades
	st.FailedTrades += delta.FailedTrades
	st.TotalProfitLoss += delta.ProfitLoss
	st.RuntimeHours += delta.RuntimeHours
	st.UpdatedAt = s.now().UTC()

	statsCopy := *st
	return &statsCopy, nil
}

// Get retrieves the statistics of date's UTC day. Returns ErrNotFound if none.
func (s *StatisticsStore) Get(_ context.Context, date time.Time) (*domain.DailyStatistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.data[storage.DayStart(date)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	statsCopy := *st
	return &statsCopy, nil
}

// Range retrieves days within [from, to], ordered by date ASC.
func (s *StatisticsStore) Range(_ context.Context, from, to time.Time) ([]*domain.DailyStatistics, error) {
	lo, hi := storage.DayStart(from), storage.DayStart(to)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailyStatistics
	for day, st := range s.data {
		if !day.Before(lo) && !day.After(hi) {
			statsCopy := *st
			result = append(result, &statsCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

var _ storage.StatisticsStore = (*StatisticsStore)(nil)

// StatisticsSnapshotStore is an in-memory implementation of storage.StatisticsSnapshotStore.
type StatisticsSnapshotStore struct {
	mu   sync.RWMutex
	data []*domain.DailyStatistics
}

// NewStatisticsSnapshotStore creates a new in-memory snapshot store.
func NewStatisticsSnapshotStore() *StatisticsSnapshotStore {
	return &StatisticsSnapshotStore{}
}

// Insert appends a snapshot.
func (s *StatisticsSnapshotStore) Insert(_ context.Context, st *domain.DailyStatistics) error {
	if st == nil || st.Date.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	statsCopy := *st
	statsCopy.Date = storage.DayStart(st.Date)
	s.data = append(s.data, &statsCopy)
	return nil
}

// GetByDate retrieves all snapshots of date's UTC day ordered by UpdatedAt.
func (s *StatisticsSnapshotStore) GetByDate(_ context.Context, date time.Time) ([]*domain.DailyStatistics, error) {
	day := storage.DayStart(date)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailyStatistics
	for _, st := range s.data {
		if st.Date.Equal(day) {
			statsCopy := *st
			result = append(result, &statsCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].UpdatedAt.Before(result[j].UpdatedAt)
	})

	return result, nil
}

var _ storage.StatisticsSnapshotStore = (*StatisticsSnapshotStore)(nil)
