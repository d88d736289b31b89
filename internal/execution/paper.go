package execution

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"solana-token-trader/internal/observability"
)

// DefaultSOLPriceUSD is used for token amounts when no SOL price is known.
const DefaultSOLPriceUSD = 100.0

// PaperExecutor simulates fills at the snapshot price moved against the trade by half the slippage.
type PaperExecutor struct {
	slippageBps func() int
	solPrice    func() float64
	now         func() time.Time
}

// NewPaperExecutor creates a PaperExecutor. solPrice and now may be nil.
func NewPaperExecutor(slippageBps func() int, solPrice func() float64, now func() time.Time) *PaperExecutor {
	if solPrice == nil {
		solPrice = func() float64 { return DefaultSOLPriceUSD }
	}
	if now == nil {
		now = time.Now
	}
	return &PaperExecutor{slippageBps: slippageBps, solPrice: solPrice, now: now}
}

// Mode returns ModePaper.
func (p *PaperExecutor) Mode() string { return ModePaper }

// Execute fills the order without touching the chain.
func (p *PaperExecutor) Execute(_ context.Context, order Order) (*Fill, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	direction := order.Direction()

	slip := float64(p.slippageBps()) / 20000
	sol := p.solPrice()
	if sol <= 0 {
		sol = DefaultSOLPriceUSD
	}

	fill := &Fill{
		Signature:  "paper-" + uuid.NewString(),
		Direction:  direction,
		Paper:      true,
		ExecutedAt: p.now(),
	}

	size := decimal.NewFromFloat(order.Decision.PositionSize)
	if order.Decision.Action.IsExit() {
		fill.PriceUSD = order.Token.PriceUSD * (1 - slip)
		ratio := decimal.NewFromFloat(fill.PriceUSD / order.Position.EntryPrice)
		fill.CostBasis = size.Round(9).InexactFloat64()
		fill.AmountSOL = size.Mul(ratio).Round(9).InexactFloat64()
		fill.TokenAmount = order.Decision.PositionSize * sol / order.Position.EntryPrice
	} else {
		fill.PriceUSD = order.Token.PriceUSD * (1 + slip)
		fill.AmountSOL = size.Round(9).InexactFloat64()
		fill.TokenAmount = order.Decision.PositionSize * sol / fill.PriceUSD
	}

	observability.RecordTrade(string(direction), ModePaper, nil)
	return fill, nil
}
