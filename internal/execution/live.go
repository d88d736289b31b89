package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/observability"
	"solana-token-trader/internal/solana"
)

// Confirmation polling defaults.
const (
	DefaultConfirmTimeout  = 60 * time.Second
	DefaultConfirmInterval = 2 * time.Second
)

// LiveOptions configures LiveExecutor.
type LiveOptions struct {
	Jupiter         *JupiterClient
	RPC             solana.RPCClient
	Signer          Signer
	SlippageBps     func() int
	PriorityFee     uint64 // lamports, 0 = auto
	ConfirmTimeout  time.Duration
	ConfirmInterval time.Duration
	Logger          zerolog.Logger
	Now             func() time.Time
}

// LiveExecutor swaps through Jupiter and submits signed transactions over RPC.
type LiveExecutor struct {
	opts LiveOptions
}

// NewLiveExecutor creates a LiveExecutor.
func NewLiveExecutor(opts LiveOptions) *LiveExecutor {
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = DefaultConfirmTimeout
	}
	if opts.ConfirmInterval <= 0 {
		opts.ConfirmInterval = DefaultConfirmInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Logger = opts.Logger.With().Str("component", "executor").Str("mode", ModeLive).Logger()
	return &LiveExecutor{opts: opts}
}

// Mode returns ModeLive.
func (e *LiveExecutor) Mode() string { return ModeLive }

// Execute quotes, signs, submits and confirms the swap for order.
func (e *LiveExecutor) Execute(ctx context.Context, order Order) (fill *Fill, err error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	direction := order.Direction()
	defer func() {
		observability.RecordTrade(string(direction), ModeLive, err)
	}()

	wallet := e.opts.Signer.PublicKey()
	mint := order.Token.Address
	log := e.opts.Logger.With().Str("token", mint).Str("direction", string(direction)).Logger()

	var (
		inputMint, outputMint string
		amount                uint64
		soldFraction          decimal.Decimal
	)
	if direction == domain.DirectionBuy {
		inputMint, outputMint = solana.WrappedSOLMint, mint
		amount = solana.SOLToLamports(decimal.NewFromFloat(order.Decision.PositionSize))
	} else {
		inputMint, outputMint = mint, solana.WrappedSOLMint
		soldFraction = order.exitFraction()
		amount, err = e.sellAmount(ctx, wallet, mint, soldFraction)
		if err != nil {
			return nil, err
		}
	}

	quote, err := e.opts.Jupiter.Quote(ctx, inputMint, outputMint, amount, e.opts.SlippageBps())
	if err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}
	unsigned, err := e.opts.Jupiter.SwapTransaction(ctx, quote, wallet, e.opts.PriorityFee)
	if err != nil {
		return nil, fmt.Errorf("build swap: %w", err)
	}
	signed, err := e.opts.Signer.SignTransaction(unsigned)
	if err != nil {
		return nil, fmt.Errorf("sign swap: %w", err)
	}

	signature, err := e.opts.RPC.SendTransaction(ctx, signed)
	if err != nil {
		return nil, fmt.Errorf("submit swap: %w", err)
	}
	log.Info().Str("signature", signature).Uint64("amount", amount).Msg("swap submitted")

	if err := e.confirm(ctx, signature); err != nil {
		return nil, fmt.Errorf("swap %s: %w", signature, err)
	}

	fill = &Fill{
		Signature:  signature,
		Direction:  direction,
		PriceUSD:   order.Token.PriceUSD,
		ExecutedAt: e.opts.Now(),
	}
	if direction == domain.DirectionBuy {
		fill.AmountSOL = solana.LamportsToSOL(quote.InAmount).InexactFloat64()
		fill.TokenAmount = float64(quote.OutAmount)
	} else {
		fill.AmountSOL = solana.LamportsToSOL(quote.OutAmount).InexactFloat64()
		fill.TokenAmount = float64(quote.InAmount)
		fill.CostBasis = decimal.NewFromFloat(order.Position.AmountIn).Mul(soldFraction).Round(9).InexactFloat64()
	}
	log.Info().Str("signature", signature).Float64("sol", fill.AmountSOL).Msg("swap confirmed")
	return fill, nil
}

// sellAmount is the share of the wallet's token balance to sell, in base units.
func (e *LiveExecutor) sellAmount(ctx context.Context, wallet, mint string, fraction decimal.Decimal) (uint64, error) {
	accounts, err := e.opts.RPC.GetTokenAccountsByOwner(ctx, wallet, mint)
	if err != nil {
		return 0, fmt.Errorf("token balance: %w", err)
	}
	var total uint64
	for _, a := range accounts {
		total += a.Amount
	}
	if total == 0 {
		return 0, ErrNoBalance
	}
	if fraction.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return total, nil
	}
	amount := uint64(decimal.NewFromInt(int64(total)).Mul(fraction).IntPart())
	if amount == 0 {
		return 0, ErrNoBalance
	}
	return amount, nil
}

// confirm polls the signature until it is confirmed, fails or times out.
func (e *LiveExecutor) confirm(ctx context.Context, signature string) error {
	ctx, cancel := context.WithTimeout(ctx, e.opts.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(e.opts.ConfirmInterval)
	defer ticker.Stop()

	for {
		statuses, err := e.opts.RPC.GetSignatureStatuses(ctx, []string{signature})
		if err == nil && len(statuses) == 1 && statuses[0] != nil {
			st := statuses[0]
			if st.Err != nil {
				return fmt.Errorf("%w: %v", ErrTransactionFailed, st.Err)
			}
			if st.Confirmed() {
				return nil
			}
		} else if err != nil {
			e.opts.Logger.Debug().Err(err).Str("signature", signature).Msg("status poll failed")
		}

		select {
		case <-ctx.Done():
			return ErrConfirmTimeout
		case <-ticker.C:
		}
	}
}
