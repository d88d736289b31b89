package memory

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newPosition(id, token string, entry time.Time) *domain.Position {
	sl := 0.85
	return &domain.Position{
		ID:           id,
		TokenAddress: token,
		TokenSymbol:  "TKN",
		EntryPrice:   1.0,
		EntryTime:    entry,
		AmountIn:     0.2,
		StopLoss:     &sl,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPositionStore_OpenAndGet(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	if err := store.Open(ctx, newPosition("p1", "mintA", t0)); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	got, err := store.GetByID(ctx, "p1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != domain.PositionOpen {
		t.Errorf("Expected status OPEN, got %s", got.Status)
	}

	// Returned copies must not alias stored state.
	*got.StopLoss = 0.1
	again, _ := store.GetByID(ctx, "p1")
	if *again.StopLoss != 0.85 {
		t.Errorf("Stored stop loss was mutated through a returned copy")
	}
}

func TestPositionStore_OpenRejectsDuplicates(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	if err := store.Open(ctx, newPosition("p1", "mintA", t0)); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Open(ctx, newPosition("p1", "mintB", t0)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for same ID, got %v", err)
	}
	if err := store.Open(ctx, newPosition("p2", "mintA", t0)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for second open position on token, got %v", err)
	}
	if err := store.Open(ctx, &domain.Position{ID: "p3", TokenAddress: "mintC"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for zero amount, got %v", err)
	}
}

func TestPositionStore_PartialThenClose(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()
	_ = store.Open(ctx, newPosition("p1", "mintA", t0))

	target := 1.65
	p, err := store.PartialClose(ctx, "p1", storage.PositionExit{
		PriceUSD: 1.5, AmountOut: 0.075, CostBasis: 0.05, Reason: domain.ExitReasonStrongProfit, At: t0.Add(time.Hour),
		TakeProfit: &target,
	})
	if err != nil {
		t.Fatalf("PartialClose failed: %v", err)
	}
	if p.Status != domain.PositionOpen || !almostEqual(p.AmountIn, 0.15) {
		t.Errorf("Expected open position with 0.15 SOL, got %s %.4f", p.Status, p.AmountIn)
	}
	if p.TakeProfit == nil || !almostEqual(*p.TakeProfit, 1.65) {
		t.Errorf("Expected remainder target 1.65, got %v", p.TakeProfit)
	}

	p, err = store.Close(ctx, "p1", storage.PositionExit{
		PriceUSD: 1.2, AmountOut: 0.18, Reason: domain.ExitReasonTakeProfit, At: t0.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if p.Status != domain.PositionClosed {
		t.Errorf("Expected CLOSED, got %s", p.Status)
	}
	if !almostEqual(p.ProfitLoss, 0.055) {
		t.Errorf("Expected P/L 0.055, got %v", p.ProfitLoss)
	}

	if _, err := store.Close(ctx, "p1", storage.PositionExit{}); !errors.Is(err, storage.ErrPositionClosed) {
		t.Errorf("Expected ErrPositionClosed, got %v", err)
	}
	if _, err := store.Close(ctx, "missing", storage.PositionExit{}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	// The token may be entered again once closed.
	if err := store.Open(ctx, newPosition("p2", "mintA", t0.Add(3*time.Hour))); err != nil {
		t.Errorf("Reopen after close failed: %v", err)
	}
}

func TestPositionStore_GetOpenAndClosedSince(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	_ = store.Open(ctx, newPosition("late", "mintB", t0.Add(time.Hour)))
	_ = store.Open(ctx, newPosition("early", "mintA", t0))
	_ = store.Open(ctx, newPosition("closed", "mintC", t0))
	_, _ = store.Close(ctx, "closed", storage.PositionExit{PriceUSD: 1, AmountOut: 0.2, At: t0.Add(48 * time.Hour)})

	open, err := store.GetOpen(ctx)
	if err != nil {
		t.Fatalf("GetOpen failed: %v", err)
	}
	if len(open) != 2 || open[0].ID != "early" || open[1].ID != "late" {
		t.Errorf("Expected [early late], got %v", open)
	}

	closed, _ := store.GetClosedSince(ctx, t0.Add(24*time.Hour))
	if len(closed) != 1 || closed[0].ID != "closed" {
		t.Errorf("Expected [closed], got %v", closed)
	}
	closed, _ = store.GetClosedSince(ctx, t0.Add(72*time.Hour))
	if len(closed) != 0 {
		t.Errorf("Expected none closed after window, got %d", len(closed))
	}
}
