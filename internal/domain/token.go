package domain

import (
	"math"
	"time"
)

// TokenSnapshot is a point-in-time view of a listed token.
// Corresponds to the tokens table in PostgreSQL (identity columns) and is
// refreshed on every poll. Never mutated during an evaluation cycle.
type TokenSnapshot struct {
	Address      string    // mint address, stable identity
	Name         string    // token name
	Symbol       string    // token symbol
	LiquidityUSD float64   // pool liquidity in USD
	Volume24hUSD float64   // 24h traded volume in USD
	PriceUSD     float64   // last price in USD
	MarketCapUSD float64   // market cap in USD
	Holders      int       // holder count, 0 if unknown
	ListedAt     time.Time // listing time, zero if unknown
	FetchedAt    time.Time // when the snapshot was taken
	Source       string    // data source ("birdeye", "feed")

	// LiquidityInvalid is set when the provider returned a liquidity value
	// that could not be parsed as a number.
	LiquidityInvalid bool
}

// AgeHours returns hours since listing at now. ok is false when the listing time is unknown.
func (t *TokenSnapshot) AgeHours(now time.Time) (hours float64, ok bool) {
	if t.ListedAt.IsZero() {
		return 0, false
	}
	h := now.Sub(t.ListedAt).Hours()
	if h < 0 {
		h = 0
	}
	return h, true
}

// HasValidLiquidity reports whether LiquidityUSD is a usable number.
func (t *TokenSnapshot) HasValidLiquidity() bool {
	if t.LiquidityInvalid {
		return false
	}
	return !math.IsNaN(t.LiquidityUSD) && !math.IsInf(t.LiquidityUSD, 0) && t.LiquidityUSD >= 0
}

// Label returns "SYMBOL (address)" for logs and notifications.
func (t *TokenSnapshot) Label() string {
	if t.Symbol == "" {
		return t.Address
	}
	return t.Symbol + " (" + t.Address + ")"
}

// PricePoint is a single sample of a token price history.
type PricePoint struct {
	TokenAddress string    // mint address
	Timestamp    time.Time // sample time
	PriceUSD     float64   // price at sample
}
