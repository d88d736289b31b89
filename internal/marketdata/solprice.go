package marketdata

import (
	"math"
	"sync/atomic"
)

// SOLPrice holds the latest SOL/USD price. The zero value reports 0 (unknown).
type SOLPrice struct {
	bits atomic.Uint64
}

// Set stores price. Non-positive prices are ignored.
func (p *SOLPrice) Set(price float64) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return
	}
	p.bits.Store(math.Float64bits(price))
}

// Get returns the latest price, or 0 if none was set.
func (p *SOLPrice) Get() float64 {
	return math.Float64frombits(p.bits.Load())
}
