package domain

import "time"

// PositionStatus is the lifecycle state of a position.
type PositionStatus string

// Position statuses
const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// DefaultTargetHoldingPeriod is used when a position carries no holding target.
const DefaultTargetHoldingPeriod = 168 * time.Hour

// Position is an entry created on a BUY fill and closed on an exit fill.
// Corresponds to positions table in PostgreSQL.
type Position struct {
	ID                  string         // deterministic hash of token + entry time
	TokenAddress        string         // mint address
	TokenSymbol         string         // symbol for display
	EntryPrice          float64        // USD price at entry
	EntryTime           time.Time      // fill time
	AmountIn            float64        // SOL committed, reduced by partial exits
	StopLoss            *float64       // USD price, optional
	TakeProfit          *float64       // USD price, optional
	TargetHoldingPeriod time.Duration  // 0 means DefaultTargetHoldingPeriod
	Status              PositionStatus // OPEN | CLOSED
	EntrySignature      string         // transaction signature of the entry

	// Set when closed
	ExitPrice     *float64   // USD price at exit
	ExitTime      *time.Time // exit fill time
	AmountOut     float64    // SOL received over all exits
	ProfitLoss    float64    // SOL
	ProfitLossPct float64    // percent of AmountIn
	ExitReason    string     // exit reason code
}

// PnLPct returns (price-entry)/entry*100. Zero entry yields 0.
func (p *Position) PnLPct(price float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return (price - p.EntryPrice) / p.EntryPrice * 100
}

// HoldingPeriod returns the target holding period, applying the default.
func (p *Position) HoldingPeriod() time.Duration {
	if p.TargetHoldingPeriod <= 0 {
		return DefaultTargetHoldingPeriod
	}
	return p.TargetHoldingPeriod
}

// HeldFor returns the time elapsed since entry.
func (p *Position) HeldFor(now time.Time) time.Duration {
	if now.Before(p.EntryTime) {
		return 0
	}
	return now.Sub(p.EntryTime)
}

// PortfolioState is the capital snapshot used for position sizing.
type PortfolioState struct {
	AvailableSOL    float64             // spendable balance
	TotalValueSOL   float64             // balance + open positions
	DailyTradeCount int                 // trades executed today (UTC)
	OpenPositions   map[string]Position // keyed by token address
}

// HasPosition reports whether an open position exists for address.
func (s *PortfolioState) HasPosition(address string) bool {
	if s == nil || s.OpenPositions == nil {
		return false
	}
	_, ok := s.OpenPositions[address]
	return ok
}

// positionDust is the remaining SOL below which a partial exit closes the position.
const positionDust = 1e-9

// ApplyExit books an exit fill against the position. costBasis is the SOL of
// AmountIn being closed and amountOut the SOL received for it. The position
// closes when final is set or nothing meaningful remains. ProfitLoss
// accumulates over all exits; ProfitLossPct is relative to the cost basis
// closed so far.
func (p *Position) ApplyExit(price, amountOut, costBasis float64, reason string, at time.Time, final bool) {
	if costBasis > p.AmountIn || final {
		costBasis = p.AmountIn
	}
	if costBasis < 0 {
		costBasis = 0
	}

	closedBefore := p.AmountOut - p.ProfitLoss
	p.AmountIn -= costBasis
	p.AmountOut += amountOut
	p.ProfitLoss += amountOut - costBasis
	if closed := closedBefore + costBasis; closed > 0 {
		p.ProfitLossPct = p.ProfitLoss / closed * 100
	}

	exitPrice := price
	exitTime := at
	p.ExitPrice = &exitPrice
	p.ExitTime = &exitTime
	p.ExitReason = reason

	if final || p.AmountIn <= positionDust {
		p.AmountIn = 0
		p.Status = PositionClosed
	}
}

// CostBasisClosed returns the SOL of the original entry already exited.
func (p *Position) CostBasisClosed() float64 {
	return p.AmountOut - p.ProfitLoss
}
