package orchestrator

import (
	"context"
	"errors"
	"time"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/execution"
	"solana-token-trader/internal/notify"
	"solana-token-trader/internal/observability"
	"solana-token-trader/internal/storage"
	"solana-token-trader/internal/strategy"
)

// examinePositions runs the exit machine over every open position and books
// the exits it asks for. Partial exits reduce the position.
func (o *Orchestrator) examinePositions(ctx context.Context, res *CycleResult) {
	open, err := o.opts.Stores.Positions.GetOpen(ctx)
	if err != nil {
		res.addError("positions", "load open", err)
		return
	}

	market := o.Market()
	for _, p := range open {
		if ctx.Err() != nil {
			return
		}
		o.examine(ctx, p, market, res)
	}

	if remaining, err := o.opts.Stores.Positions.GetOpen(ctx); err == nil {
		observability.SetOpenPositions(len(remaining))
	}
}

func (o *Orchestrator) examine(ctx context.Context, p *domain.Position, market *domain.MarketContext, res *CycleResult) {
	log := o.log.With().Str("position", p.ID).Str("token", p.TokenAddress).Logger()

	token, err := o.opts.Market.FetchTokenSnapshot(ctx, p.TokenAddress, time.Time{})
	if err != nil {
		res.addError(p.TokenAddress, "position snapshot", err)
		return
	}
	if token.Symbol == "" {
		token.Symbol = p.TokenSymbol
	}

	in := strategy.ExitInput{
		Token:    token,
		Position: p,
		Risk:     o.opts.Risk.Assess(ctx, token),
		Market:   market,
	}
	if o.opts.AI != nil {
		// A substituted default carries no opinion worth exiting on.
		if eval := o.opts.AI.Evaluate(ctx, token, market, nil); !eval.Default {
			in.AI = &eval
		}
	}

	exit := o.opts.Exits.Evaluate(in)
	if !exit.Decision.Action.IsExit() {
		log.Debug().Float64("pnl_pct", p.PnLPct(token.PriceUSD)).Msg("holding position")
		return
	}
	observability.RecordExit(exit.Reason)
	o.recordDecision(ctx, exit.Decision, res)

	log.Info().
		Str("action", string(exit.Decision.Action)).
		Str("reason", exit.Reason).
		Float64("fraction", exit.Fraction).
		Msg("exit triggered")

	fill, err := o.opts.Executor.Execute(ctx, execution.Order{Decision: exit.Decision, Token: token, Position: p})
	if errors.Is(err, execution.ErrTradingDisabled) {
		log.Info().Msg("auto trading disabled, exit not executed")
		return
	}
	if err != nil {
		res.addError(p.TokenAddress, "execute exit", err)
		return
	}
	o.applyPaper(fill)

	pe := storage.PositionExit{
		PriceUSD:  fill.PriceUSD,
		AmountOut: fill.AmountSOL,
		CostBasis: fill.CostBasis,
		Reason:    exit.Reason,
		At:        fill.ExecutedAt,
	}
	before := p.ProfitLoss

	var updated *domain.Position
	if exit.Fraction >= 1 {
		updated, err = o.opts.Stores.Positions.Close(ctx, p.ID, pe)
	} else {
		if pe.CostBasis <= 0 {
			pe.CostBasis = p.AmountIn * exit.Fraction
		}
		pe.TakeProfit = exit.Decision.PriceTarget
		updated, err = o.opts.Stores.Positions.PartialClose(ctx, p.ID, pe)
	}
	if err != nil {
		log.Error().Err(err).Str("signature", fill.Signature).Msg("filled exit could not be recorded")
		res.addError(p.TokenAddress, "book exit", err)
		return
	}
	o.recordTrade(ctx, p.ID, p.TokenAddress, exit.Decision.Action, fill, res)

	res.Exits++
	res.stats.TradesExecuted++
	res.stats.ProfitLoss += updated.ProfitLoss - before
	if updated.Status == domain.PositionClosed {
		if updated.ProfitLoss > 0 {
			res.stats.SuccessfulTrades++
		} else {
			res.stats.FailedTrades++
		}
	}

	log.Info().
		Float64("amount_sol", fill.AmountSOL).
		Float64("pnl_sol", updated.ProfitLoss).
		Str("status", string(updated.Status)).
		Msg("exit booked")

	reasons := append([]string{"Exit reason: " + exit.Reason}, exit.Decision.Reasons...)
	o.notify(notify.TradeAlert(notify.Trade{
		Action:      exit.Decision.Action,
		Token:       token,
		AmountSOL:   fill.AmountSOL,
		TokenAmount: fill.TokenAmount,
		PriceUSD:    fill.PriceUSD,
		Reasons:     reasons,
		Paper:       fill.Paper,
		ExecutedAt:  fill.ExecutedAt,
	}))
}
