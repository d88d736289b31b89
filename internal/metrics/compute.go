package metrics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"solana-token-trader/internal/domain"
)

// ComputePerformance summarises the positions closed within the last
// windowDays days before now, plus the currently open positions.
// windowDays <= 0 covers all closed positions.
//
// Closed positions are ordered by ExitTime ASC, ID ASC before computing
// order-dependent metrics (MaxDrawdown, MaxConsecutiveLosses).
func ComputePerformance(closed, open []*domain.Position, windowDays int, now time.Time) domain.PerformanceStats {
	stats := domain.PerformanceStats{PeriodDays: max(windowDays, 0)}

	invested := decimal.Zero
	for _, p := range open {
		if p == nil || p.Status != domain.PositionOpen {
			continue
		}
		stats.OpenPositions++
		invested = invested.Add(decimal.NewFromFloat(p.AmountIn))
	}
	stats.TotalInvestedOpen = invested.InexactFloat64()

	inWindow := filterWindow(closed, windowDays, now)
	n := len(inWindow)
	if n == 0 {
		return stats
	}

	var (
		totalPL   = decimal.Zero
		totalPct  = decimal.Zero
		totalHeld time.Duration
		pcts      = make([]float64, n)
		pls       = make([]float64, n)
		byToken   = make(map[string]decimal.Decimal)
		symbols   = make(map[string]string)
	)
	for i, p := range inWindow {
		if p.ProfitLoss > 0 {
			stats.WinningTrades++
		} else {
			stats.LosingTrades++
		}
		pl := decimal.NewFromFloat(p.ProfitLoss)
		totalPL = totalPL.Add(pl)
		totalPct = totalPct.Add(decimal.NewFromFloat(p.ProfitLossPct))
		totalHeld += p.HeldFor(*p.ExitTime)
		pcts[i] = p.ProfitLossPct
		pls[i] = p.ProfitLoss

		byToken[p.TokenAddress] = byToken[p.TokenAddress].Add(pl)
		if p.TokenSymbol != "" {
			symbols[p.TokenAddress] = p.TokenSymbol
		}
	}

	count := decimal.NewFromInt(int64(n))
	stats.TotalTrades = n
	stats.WinRate = computeWinRate(stats.WinningTrades, n) * 100
	stats.TotalProfitLoss = totalPL.InexactFloat64()
	stats.AvgProfitLossPct = totalPct.Div(count).InexactFloat64()
	stats.AvgHoldingHours = totalHeld.Hours() / float64(n)
	stats.MaxDrawdown = computeMaxDrawdown(pls)
	stats.MaxConsecutiveLosses = computeMaxConsecutiveLosses(pls)

	sort.Float64s(pcts)
	stats.MedianProfitLossPct = computePercentile(pcts, 0.50)

	stats.BestTokenAddress, stats.BestTokenProfit = bestToken(byToken)
	stats.BestTokenSymbol = symbols[stats.BestTokenAddress]

	return stats
}

// filterWindow keeps closed positions with an exit time inside the window,
// sorted chronologically.
func filterWindow(closed []*domain.Position, windowDays int, now time.Time) []*domain.Position {
	var since time.Time
	if windowDays > 0 {
		since = now.Add(-time.Duration(windowDays) * 24 * time.Hour)
	}

	var out []*domain.Position
	for _, p := range closed {
		if p == nil || p.Status != domain.PositionClosed || p.ExitTime == nil {
			continue
		}
		if p.ExitTime.Before(since) || p.ExitTime.After(now) {
			continue
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExitTime.Equal(*out[j].ExitTime) {
			return out[i].ExitTime.Before(*out[j].ExitTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// bestToken returns the token with the highest summed P/L, ties broken by address.
func bestToken(byToken map[string]decimal.Decimal) (string, float64) {
	best := ""
	var bestPL decimal.Decimal
	for addr, pl := range byToken {
		if best == "" || pl.GreaterThan(bestPL) || (pl.Equal(bestPL) && addr < best) {
			best, bestPL = addr, pl
		}
	}
	return best, bestPL.InexactFloat64()
}

// computeWinRate calculates win rate as wins / total.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
// p is percentile (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxDrawdown calculates worst peak-to-trough on cumulative outcomes.
// Outcomes must be in chronological order.
func computeMaxDrawdown(outcomes []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, o := range outcomes {
		cumulative += o
		if cumulative > peak {
			peak = cumulative
		}
		if drawdown := peak - cumulative; drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// computeMaxConsecutiveLosses finds longest streak of outcome <= 0.
// Outcomes must be in chronological order.
func computeMaxConsecutiveLosses(outcomes []float64) int {
	maxStreak := 0
	currentStreak := 0

	for _, o := range outcomes {
		if o <= 0 {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}
