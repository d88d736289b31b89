package metrics

import (
	"math"
	"testing"
	"time"

	"solana-token-trader/internal/domain"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func closedPosition(id, token, symbol string, entry, exit time.Time, pl, pct float64) *domain.Position {
	return &domain.Position{
		ID:            id,
		TokenAddress:  token,
		TokenSymbol:   symbol,
		EntryTime:     entry,
		Status:        domain.PositionClosed,
		ExitTime:      &exit,
		ProfitLoss:    pl,
		ProfitLossPct: pct,
	}
}

func fixture() (closed, open []*domain.Position) {
	closed = []*domain.Position{
		closedPosition("p1", "mintA", "ALP", now.Add(-3*time.Hour), now.Add(-time.Hour), 0.05, 50),
		closedPosition("p2", "mintB", "", now.Add(-30*time.Hour), now.Add(-26*time.Hour), -0.02, -20),
		closedPosition("p3", "mintA", "ALP", now.Add(-2*time.Hour), now.Add(-30*time.Minute), 0.01, 10),
		closedPosition("p4", "mintC", "CCC", now.Add(-241*time.Hour), now.Add(-240*time.Hour), -0.1, -50),
	}
	open = []*domain.Position{
		{ID: "o1", TokenAddress: "mintD", AmountIn: 0.1, Status: domain.PositionOpen},
		{ID: "o2", TokenAddress: "mintE", AmountIn: 0.25, Status: domain.PositionOpen},
	}
	return closed, open
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputePerformance_24Hours(t *testing.T) {
	closed, open := fixture()
	s := ComputePerformance(closed, open, 1, now)

	if s.PeriodDays != 1 {
		t.Errorf("expected PeriodDays 1, got %d", s.PeriodDays)
	}
	if s.TotalTrades != 2 || s.WinningTrades != 2 || s.LosingTrades != 0 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if !approx(s.WinRate, 100) {
		t.Errorf("expected WinRate 100, got %f", s.WinRate)
	}
	if !approx(s.TotalProfitLoss, 0.06) {
		t.Errorf("expected TotalProfitLoss 0.06, got %f", s.TotalProfitLoss)
	}
	if !approx(s.AvgProfitLossPct, 30) || !approx(s.MedianProfitLossPct, 30) {
		t.Errorf("expected avg and median 30, got %f / %f", s.AvgProfitLossPct, s.MedianProfitLossPct)
	}
	if !approx(s.AvgHoldingHours, 1.75) {
		t.Errorf("expected AvgHoldingHours 1.75, got %f", s.AvgHoldingHours)
	}
	if s.BestTokenAddress != "mintA" || s.BestTokenSymbol != "ALP" || !approx(s.BestTokenProfit, 0.06) {
		t.Errorf("unexpected best token: %s %s %f", s.BestTokenAddress, s.BestTokenSymbol, s.BestTokenProfit)
	}
	if s.OpenPositions != 2 || !approx(s.TotalInvestedOpen, 0.35) {
		t.Errorf("unexpected open summary: %d / %f", s.OpenPositions, s.TotalInvestedOpen)
	}
}

func TestComputePerformance_WeekOrdersChronologically(t *testing.T) {
	closed, open := fixture()
	s := ComputePerformance(closed, open, 7, now)

	if s.TotalTrades != 3 {
		t.Fatalf("expected 3 trades, got %d", s.TotalTrades)
	}
	if !approx(s.WinRate, 200.0/3) {
		t.Errorf("expected WinRate 66.67, got %f", s.WinRate)
	}
	if !approx(s.TotalProfitLoss, 0.04) {
		t.Errorf("expected TotalProfitLoss 0.04, got %f", s.TotalProfitLoss)
	}
	if !approx(s.MedianProfitLossPct, 10) {
		t.Errorf("expected median 10, got %f", s.MedianProfitLossPct)
	}
	// p2 (-0.02) exits first, so the drawdown happens before any gain.
	if !approx(s.MaxDrawdown, 0.02) {
		t.Errorf("expected MaxDrawdown 0.02, got %f", s.MaxDrawdown)
	}
	if s.MaxConsecutiveLosses != 1 {
		t.Errorf("expected 1 consecutive loss, got %d", s.MaxConsecutiveLosses)
	}
	if !approx(s.AvgHoldingHours, 2.5) {
		t.Errorf("expected AvgHoldingHours 2.5, got %f", s.AvgHoldingHours)
	}
}

func TestComputePerformance_AllTime(t *testing.T) {
	closed, open := fixture()
	s := ComputePerformance(closed, open, 0, now)

	if s.TotalTrades != 4 {
		t.Fatalf("expected 4 trades, got %d", s.TotalTrades)
	}
	if !approx(s.TotalProfitLoss, -0.06) {
		t.Errorf("expected TotalProfitLoss -0.06, got %f", s.TotalProfitLoss)
	}
	if !approx(s.MaxDrawdown, 0.12) {
		t.Errorf("expected MaxDrawdown 0.12, got %f", s.MaxDrawdown)
	}
	if s.MaxConsecutiveLosses != 2 {
		t.Errorf("expected 2 consecutive losses, got %d", s.MaxConsecutiveLosses)
	}
}

func TestComputePerformance_Empty(t *testing.T) {
	s := ComputePerformance(nil, nil, 7, now)

	if s.TotalTrades != 0 || s.WinRate != 0 || s.BestTokenAddress != "" {
		t.Errorf("expected zero stats, got %+v", s)
	}
	if s.PeriodDays != 7 {
		t.Errorf("expected PeriodDays 7, got %d", s.PeriodDays)
	}
}

func TestComputePerformance_SkipsOpenAndFutureExits(t *testing.T) {
	future := now.Add(time.Hour)
	closed := []*domain.Position{
		{ID: "x", Status: domain.PositionOpen, ExitTime: &future},
		closedPosition("y", "mintA", "", now.Add(-2*time.Hour), future, 1, 100),
		{ID: "z", Status: domain.PositionClosed},
	}
	s := ComputePerformance(closed, []*domain.Position{nil, {Status: domain.PositionClosed, AmountIn: 5}}, 1, now)

	if s.TotalTrades != 0 {
		t.Errorf("expected 0 trades, got %d", s.TotalTrades)
	}
	if s.OpenPositions != 0 || s.TotalInvestedOpen != 0 {
		t.Errorf("expected no open positions, got %d / %f", s.OpenPositions, s.TotalInvestedOpen)
	}
}

func TestComputePercentile(t *testing.T) {
	tests := []struct {
		sorted []float64
		p      float64
		want   float64
	}{
		{nil, 0.5, 0},
		{[]float64{3}, 0.9, 3},
		{[]float64{1, 2, 3, 4}, 0.5, 2.5},
		{[]float64{1, 2, 3, 4, 5}, 0.25, 2},
		{[]float64{1, 2}, 1, 2},
	}
	for _, tt := range tests {
		if got := computePercentile(tt.sorted, tt.p); !approx(got, tt.want) {
			t.Errorf("computePercentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
		}
	}
}

func TestBestToken_TieBreaksByAddress(t *testing.T) {
	closed := []*domain.Position{
		closedPosition("a", "mintZ", "", now.Add(-2*time.Hour), now.Add(-time.Hour), 0.1, 10),
		closedPosition("b", "mintB", "", now.Add(-2*time.Hour), now.Add(-time.Hour), 0.1, 10),
	}
	s := ComputePerformance(closed, nil, 1, now)
	if s.BestTokenAddress != "mintB" {
		t.Errorf("expected mintB, got %s", s.BestTokenAddress)
	}
}
