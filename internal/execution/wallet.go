package execution

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/solana"
)

// BalanceSource reports the SOL available for trading.
type BalanceSource interface {
	BalanceSOL(ctx context.Context) (decimal.Decimal, error)
}

var (
	_ BalanceSource = (*Wallet)(nil)
	_ BalanceSource = (*PaperBalance)(nil)
)

// Wallet reads the trading wallet's SOL balance.
type Wallet struct {
	rpc     solana.RPCClient
	address string
}

// NewWallet creates a Wallet for address.
func NewWallet(rpc solana.RPCClient, address string) *Wallet {
	return &Wallet{rpc: rpc, address: address}
}

// Address returns the wallet address.
func (w *Wallet) Address() string {
	return w.address
}

// BalanceSOL returns the wallet's SOL balance.
func (w *Wallet) BalanceSOL(ctx context.Context) (decimal.Decimal, error) {
	lamports, err := w.rpc.GetBalance(ctx, w.address)
	if err != nil {
		return decimal.Zero, fmt.Errorf("wallet balance: %w", err)
	}
	return solana.LamportsToSOL(lamports), nil
}

// BuildPortfolio combines the available balance with open positions.
// Open positions are valued at their SOL cost basis.
func BuildPortfolio(available decimal.Decimal, open []domain.Position, dailyTrades int) *domain.PortfolioState {
	total := available
	positions := make(map[string]domain.Position, len(open))
	for _, p := range open {
		positions[p.TokenAddress] = p
		total = total.Add(decimal.NewFromFloat(p.AmountIn))
	}
	return &domain.PortfolioState{
		AvailableSOL:    available.InexactFloat64(),
		TotalValueSOL:   total.InexactFloat64(),
		DailyTradeCount: dailyTrades,
		OpenPositions:   positions,
	}
}

// PaperBalance tracks a simulated SOL balance for paper trading.
type PaperBalance struct {
	mu      sync.Mutex
	balance decimal.Decimal
}

// NewPaperBalance starts a simulated balance at sol.
func NewPaperBalance(sol float64) *PaperBalance {
	return &PaperBalance{balance: decimal.NewFromFloat(sol)}
}

// BalanceSOL returns the simulated balance.
func (b *PaperBalance) BalanceSOL(context.Context) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance, nil
}

// Apply debits a BUY fill or credits a SELL fill.
func (b *PaperBalance) Apply(fill *Fill) {
	amt := decimal.NewFromFloat(fill.AmountSOL)
	b.mu.Lock()
	defer b.mu.Unlock()
	if fill.Direction == domain.DirectionBuy {
		b.balance = b.balance.Sub(amt)
		return
	}
	b.balance = b.balance.Add(amt)
}
