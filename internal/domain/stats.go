package domain

import "time"

// DailyStatistics holds per-day bot counters.
// Corresponds to bot_statistics table (PostgreSQL) and statistics_snapshots (ClickHouse).
type DailyStatistics struct {
	Date             time.Time // UTC midnight
	TokensAnalyzed   int
	TradesExecuted   int
	SuccessfulTrades int
	FailedTrades     int
	TotalProfitLoss  float64 // SOL
	RuntimeHours     float64
	UpdatedAt        time.Time
}

// StatsDelta is an increment applied to a day's statistics.
type StatsDelta struct {
	TokensAnalyzed   int
	TradesExecuted   int
	SuccessfulTrades int
	FailedTrades     int
	ProfitLoss       float64
	RuntimeHours     float64
}

// IsZero reports whether the delta changes nothing.
func (d StatsDelta) IsZero() bool {
	return d == StatsDelta{}
}

// PerformanceStats summarises closed and open positions over a window.
type PerformanceStats struct {
	PeriodDays           int     // 0 means all time
	TotalTrades          int     // closed positions in window
	WinningTrades        int     // ProfitLoss > 0
	LosingTrades         int     // ProfitLoss <= 0
	WinRate              float64 // percent
	TotalProfitLoss      float64 // SOL
	AvgProfitLossPct     float64
	MedianProfitLossPct  float64
	AvgHoldingHours      float64
	MaxDrawdown          float64 // SOL, peak to trough of cumulative P/L
	MaxConsecutiveLosses int
	BestTokenAddress     string
	BestTokenSymbol      string
	BestTokenProfit      float64 // SOL
	OpenPositions        int
	TotalInvestedOpen    float64 // SOL in open positions
}
