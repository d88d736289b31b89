// Package execution turns trading decisions into paper or on-chain swaps.
package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"solana-token-trader/internal/domain"
)

// Execution modes.
const (
	ModePaper = "paper"
	ModeLive  = "live"
)

// Sentinel errors.
var (
	ErrTradingDisabled   = errors.New("trading disabled")
	ErrNotExecutable     = errors.New("decision is not executable")
	ErrNoPosition        = errors.New("exit requires an open position")
	ErrNoPrice           = errors.New("token has no price")
	ErrNoBalance         = errors.New("no token balance to sell")
	ErrTransactionFailed = errors.New("transaction failed")
	ErrConfirmTimeout    = errors.New("transaction not confirmed in time")
)

// Order is a decision ready for execution.
type Order struct {
	Decision *domain.TradingDecision
	Token    *domain.TokenSnapshot
	Position *domain.Position // required for exits
}

// Direction returns BUY for entries and SELL for exits.
func (o Order) Direction() domain.TradeDirection {
	if o.Decision != nil && o.Decision.Action.IsExit() {
		return domain.DirectionSell
	}
	return domain.DirectionBuy
}

// Validate checks that the order can be executed.
func (o Order) Validate() error {
	if o.Decision == nil || o.Token == nil {
		return fmt.Errorf("%w: missing decision or token", ErrNotExecutable)
	}
	a := o.Decision.Action
	if a != domain.ActionBuy && !a.IsExit() {
		return fmt.Errorf("%w: action %s", ErrNotExecutable, a)
	}
	if o.Decision.PositionSize <= 0 {
		return fmt.Errorf("%w: zero size", ErrNotExecutable)
	}
	if a.IsExit() && (o.Position == nil || o.Position.AmountIn <= 0) {
		return ErrNoPosition
	}
	if o.Token.PriceUSD <= 0 {
		return ErrNoPrice
	}
	return nil
}

// exitFraction is the share of the position an exit closes, in (0,1].
func (o Order) exitFraction() decimal.Decimal {
	f := decimal.NewFromFloat(o.Decision.PositionSize).Div(decimal.NewFromFloat(o.Position.AmountIn))
	if f.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return f
}

// Fill is the result of an executed order.
type Fill struct {
	Signature   string
	Direction   domain.TradeDirection
	PriceUSD    float64 // effective fill price
	AmountSOL   float64 // SOL spent (BUY) or received (SELL)
	CostBasis   float64 // SOL of the position closed by a SELL
	TokenAmount float64 // tokens bought or sold
	Paper       bool
	ExecutedAt  time.Time
}

// Executor executes orders.
type Executor interface {
	Execute(ctx context.Context, order Order) (*Fill, error)
	Mode() string
}

// Gate refuses every order while trading is disabled.
type Gate struct {
	enabled func() bool
	next    Executor
}

// NewGate wraps next; enabled is read on every order.
func NewGate(next Executor, enabled func() bool) *Gate {
	return &Gate{enabled: enabled, next: next}
}

// Execute forwards to the wrapped executor when trading is enabled.
func (g *Gate) Execute(ctx context.Context, order Order) (*Fill, error) {
	if !g.enabled() {
		return nil, ErrTradingDisabled
	}
	return g.next.Execute(ctx, order)
}

// Mode returns the wrapped executor's mode.
func (g *Gate) Mode() string {
	return g.next.Mode()
}
