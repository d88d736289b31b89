package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestPriceHistoryStore_AppendSkipsDuplicates(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPriceHistoryStore(conn)

	points := []domain.PricePoint{
		{TokenAddress: "mintA", Timestamp: t0, PriceUSD: 1.0},
		{TokenAddress: "mintA", Timestamp: t0.Add(time.Minute), PriceUSD: 1.1},
		{TokenAddress: "mintA", Timestamp: t0.Add(time.Minute), PriceUSD: 9.9},
		{TokenAddress: "mintB", Timestamp: t0, PriceUSD: 5},
	}
	require.NoError(t, store.Append(ctx, points))

	// Second append overlaps one stored point.
	require.NoError(t, store.Append(ctx, []domain.PricePoint{
		{TokenAddress: "mintA", Timestamp: t0, PriceUSD: 7},
		{TokenAddress: "mintA", Timestamp: t0.Add(2 * time.Minute), PriceUSD: 1.2},
	}))

	got, err := store.GetRange(ctx, "mintA", t0, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 1.0, got[0].PriceUSD)
	assert.Equal(t, 1.1, got[1].PriceUSD)
	assert.True(t, got[2].Timestamp.Equal(t0.Add(2*time.Minute)))

	narrow, err := store.GetRange(ctx, "mintA", t0.Add(30*time.Second), t0.Add(90*time.Second))
	require.NoError(t, err)
	assert.Len(t, narrow, 1)

	require.NoError(t, store.Append(ctx, nil))
}

func TestStatisticsSnapshotStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewStatisticsSnapshotStore(conn)

	first := &domain.DailyStatistics{
		Date: t0, TokensAnalyzed: 10, TradesExecuted: 2, SuccessfulTrades: 1,
		TotalProfitLoss: 0.05, RuntimeHours: 1.5, UpdatedAt: t0,
	}
	second := *first
	second.TokensAnalyzed = 12
	second.UpdatedAt = t0.Add(time.Hour)

	require.NoError(t, store.Insert(ctx, &second))
	require.NoError(t, store.Insert(ctx, first))
	assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)

	got, err := store.GetByDate(ctx, t0.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 10, got[0].TokensAnalyzed)
	assert.Equal(t, 12, got[1].TokensAnalyzed)
	assert.True(t, got[0].Date.Equal(storage.DayStart(t0)))
	assert.InDelta(t, 0.05, got[1].TotalProfitLoss, 1e-12)

	none, err := store.GetByDate(ctx, t0.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)
}
