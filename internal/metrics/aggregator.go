// Package metrics computes trading performance from closed and open positions.
package metrics

import (
	"context"
	"fmt"
	"time"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

// DefaultWindows are the report windows in days: 24 hours, a week and a month.
var DefaultWindows = []int{1, 7, 30}

// Aggregator computes performance windows from stored positions.
type Aggregator struct {
	positions storage.PositionStore
	now       func() time.Time
}

// NewAggregator creates a new performance aggregator.
func NewAggregator(positions storage.PositionStore, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{positions: positions, now: now}
}

// Report computes one PerformanceStats per window, in the order given.
// A window of 0 covers all closed positions. Nil windows use DefaultWindows.
func (a *Aggregator) Report(ctx context.Context, windows []int) ([]domain.PerformanceStats, error) {
	if windows == nil {
		windows = DefaultWindows
	}
	if len(windows) == 0 {
		return nil, nil
	}
	now := a.now()

	// One query covers the widest window.
	widest := windows[0]
	for _, w := range windows {
		if w <= 0 {
			widest = 0
			break
		}
		widest = max(widest, w)
	}
	var since time.Time
	if widest > 0 {
		since = now.Add(-time.Duration(widest) * 24 * time.Hour)
	}

	closed, err := a.positions.GetClosedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("load closed positions: %w", err)
	}
	open, err := a.positions.GetOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("load open positions: %w", err)
	}

	out := make([]domain.PerformanceStats, len(windows))
	for i, w := range windows {
		out[i] = ComputePerformance(closed, open, w, now)
	}
	return out, nil
}
