package strategy

import "errors"

// Settings errors
var (
	ErrInvalidSevereLoss   = errors.New("severe loss threshold must be negative")
	ErrInvalidStrongProfit = errors.New("strong profit threshold must be positive")
	ErrInvalidFraction     = errors.New("partial exit fraction must be in (0,1]")
	ErrInvalidLevelPct     = errors.New("take profit and stop loss percentages must be positive")
)

// ExitSettings are the thresholds used by the P/L based exit rules.
type ExitSettings struct {
	SevereLossPct       float64 // P/L % at or below which the position is cut
	StrongProfitPct     float64 // P/L % at or above which profit is partially taken
	PartialExitFraction float64 // share closed on a strong profit
	RemainderTargetPct  float64 // new target above the current price for the remainder
}

// DefaultExitSettings returns -20%, +50%, 75% and +10%.
func DefaultExitSettings() ExitSettings {
	return ExitSettings{
		SevereLossPct:       -20,
		StrongProfitPct:     50,
		PartialExitFraction: 0.75,
		RemainderTargetPct:  10,
	}
}

// Validate checks threshold signs and the exit fraction.
func (s ExitSettings) Validate() error {
	if s.SevereLossPct >= 0 {
		return ErrInvalidSevereLoss
	}
	if s.StrongProfitPct <= 0 {
		return ErrInvalidStrongProfit
	}
	if s.PartialExitFraction <= 0 || s.PartialExitFraction > 1 {
		return ErrInvalidFraction
	}
	return nil
}

// EntryLevels returns the stop-loss and take-profit prices for a new position.
// A zero percentage leaves the level unset.
func EntryLevels(entryPrice, takeProfitPct, stopLossPct float64) (takeProfit, stopLoss *float64, err error) {
	if takeProfitPct < 0 || stopLossPct < 0 || stopLossPct >= 100 {
		return nil, nil, ErrInvalidLevelPct
	}
	if entryPrice <= 0 {
		return nil, nil, nil
	}
	if takeProfitPct > 0 {
		tp := entryPrice * (1 + takeProfitPct/100)
		takeProfit = &tp
	}
	if stopLossPct > 0 {
		sl := entryPrice * (1 - stopLossPct/100)
		stopLoss = &sl
	}
	return takeProfit, stopLoss, nil
}
