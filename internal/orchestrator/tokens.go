package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"solana-token-trader/internal/ai"
	"solana-token-trader/internal/decision"
	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/execution"
	"solana-token-trader/internal/idhash"
	"solana-token-trader/internal/notify"
	"solana-token-trader/internal/observability"
	"solana-token-trader/internal/solana"
	"solana-token-trader/internal/storage"
	"solana-token-trader/internal/strategy"
)

const (
	historyWindow   = 24 * time.Hour
	historyInterval = "15m"
	listingMemory   = 24 * time.Hour
)

// refreshMarket rebuilds the market context when it is older than
// MarketContextInterval, or always when force is set.
func (o *Orchestrator) refreshMarket(ctx context.Context, settings Settings, force bool) *domain.MarketContext {
	now := o.opts.Now()

	o.mu.Lock()
	current := o.market
	newTokens := 0
	for _, at := range o.seen {
		if now.Sub(at) < listingMemory {
			newTokens++
		}
	}
	o.mu.Unlock()

	if !force && current != nil && now.Sub(current.UpdatedAt) < settings.MarketContextInterval {
		return current
	}

	data := ai.MarketData{NewTokenCount24h: newTokens}
	sol, err := o.opts.Market.FetchTokenSnapshot(ctx, solana.WrappedSOLMint, time.Time{})
	if err != nil {
		o.log.Warn().Err(err).Msg("SOL snapshot unavailable, market data uses placeholders")
	} else {
		data.SOLPrice = sol.PriceUSD
		data.SOLVolume24h = sol.Volume24hUSD
		o.opts.SOLPrice.Set(sol.PriceUSD)
	}

	var mc domain.MarketContext
	if o.opts.AI != nil {
		mc = o.opts.AI.MarketContext(ctx, data)
	} else {
		mc = domain.NewMarketContext("", "", "", now)
	}

	o.mu.Lock()
	o.market = &mc
	o.mu.Unlock()

	o.notify(notify.MarketUpdate(mc))
	return &mc
}

// gatherTokens merges feed and polled listings, feed first, deduplicated by
// address and capped at MaxTokensPerCycle.
func (o *Orchestrator) gatherTokens(ctx context.Context, settings Settings, res *CycleResult) []domain.TokenSnapshot {
	var candidates []domain.TokenSnapshot
	if o.opts.Feed != nil {
		candidates = append(candidates, o.opts.Feed.Drain()...)
	}
	listings, err := o.opts.Market.NewListings(ctx, settings.ListingLookback, settings.MaxTokensPerCycle)
	if err != nil {
		res.addError("discovery", "new listings", err)
	}
	candidates = append(candidates, listings...)

	now := o.opts.Now()
	batch := make(map[string]struct{}, len(candidates))
	out := make([]domain.TokenSnapshot, 0, len(candidates))

	o.mu.Lock()
	defer o.mu.Unlock()
	for _, t := range candidates {
		if t.Address == "" {
			continue
		}
		if _, dup := batch[t.Address]; dup {
			continue
		}
		batch[t.Address] = struct{}{}
		if _, ok := o.seen[t.Address]; !ok {
			seenAt := t.ListedAt
			if seenAt.IsZero() {
				seenAt = now
			}
			o.seen[t.Address] = seenAt
		}
		out = append(out, t)
		if settings.MaxTokensPerCycle > 0 && len(out) == settings.MaxTokensPerCycle {
			break
		}
	}
	return out
}

// processToken evaluates one listing and enters a position on BUY.
func (o *Orchestrator) processToken(ctx context.Context, listing *domain.TokenSnapshot, settings Settings, portfolio *domain.PortfolioState, res *CycleResult) {
	log := o.log.With().Str("token", listing.Address).Logger()

	token, err := o.snapshot(ctx, listing)
	if err != nil {
		res.addError(listing.Address, "snapshot", err)
		return
	}
	res.TokensAnalyzed++

	if err := o.opts.Stores.Tokens.Upsert(ctx, token); err != nil {
		res.addError(token.Address, "store token", err)
	}
	history := o.priceHistory(ctx, token, log)

	assessment := o.opts.Risk.Assess(ctx, token)
	if err := o.opts.Stores.Risk.Insert(ctx, assessment); err != nil {
		res.addError(token.Address, "store risk assessment", err)
	}
	if !assessment.Passes {
		res.RiskRejected++
		log.Info().Str("check", assessment.FailedCheck).Str("reason", assessment.Reason).Msg("token rejected by risk gates")
		return
	}

	market := o.Market()
	eval := o.evaluate(ctx, token, market, history)
	if err := o.opts.Stores.AI.Insert(ctx, &eval); err != nil {
		res.addError(token.Address, "store ai evaluation", err)
	}
	sent := o.sentiment(ctx, token)

	d := o.opts.Decisions.Decide(decision.Input{
		Token:     token,
		AI:        &eval,
		Risk:      assessment,
		Sentiment: sent,
		Market:    market,
		Portfolio: portfolio,
	})
	o.recordDecision(ctx, d, res)

	log.Info().
		Str("action", string(d.Action)).
		Float64("confidence", d.Confidence).
		Float64("size_sol", d.PositionSize).
		Msg("decision made")

	if d.Action != domain.ActionBuy {
		return
	}
	o.notify(notify.NewTokenAlert(token, eval, assessment))

	if portfolio.HasPosition(token.Address) {
		log.Debug().Msg("position already open, entry skipped")
		return
	}
	o.enter(ctx, token, d, settings, portfolio, res, log)
}

// enter executes a BUY and opens the position.
func (o *Orchestrator) enter(ctx context.Context, token *domain.TokenSnapshot, d *domain.TradingDecision, settings Settings, portfolio *domain.PortfolioState, res *CycleResult, log zerolog.Logger) {
	fill, err := o.opts.Executor.Execute(ctx, execution.Order{Decision: d, Token: token})
	if errors.Is(err, execution.ErrTradingDisabled) {
		log.Info().Msg("auto trading disabled, entry not executed")
		return
	}
	if err != nil {
		res.addError(token.Address, "execute buy", err)
		return
	}
	o.applyPaper(fill)

	takeProfit, stopLoss, err := strategy.EntryLevels(fill.PriceUSD, settings.TakeProfitPct, settings.StopLossPct)
	if err != nil {
		log.Warn().Err(err).Msg("entry levels unavailable")
	}

	entryMs := fill.ExecutedAt.UnixMilli()
	pos := &domain.Position{
		ID:                  idhash.ComputePositionID(token.Address, fill.Signature, entryMs),
		TokenAddress:        token.Address,
		TokenSymbol:         token.Symbol,
		EntryPrice:          fill.PriceUSD,
		EntryTime:           fill.ExecutedAt,
		AmountIn:            fill.AmountSOL,
		StopLoss:            stopLoss,
		TakeProfit:          takeProfit,
		TargetHoldingPeriod: settings.HoldingPeriod,
		Status:              domain.PositionOpen,
		EntrySignature:      fill.Signature,
	}
	if err := o.opts.Stores.Positions.Open(ctx, pos); err != nil {
		// The swap already happened; the position must be reconciled by hand.
		log.Error().Err(err).Str("signature", fill.Signature).Msg("filled entry could not be recorded")
		res.addError(token.Address, "open position", err)
		return
	}
	o.recordTrade(ctx, pos.ID, token.Address, d.Action, fill, res)

	res.Entries++
	res.stats.TradesExecuted++
	portfolio.OpenPositions[token.Address] = *pos
	portfolio.DailyTradeCount++
	portfolio.AvailableSOL -= fill.AmountSOL

	log.Info().
		Str("position", pos.ID).
		Float64("amount_sol", fill.AmountSOL).
		Float64("price", fill.PriceUSD).
		Bool("paper", fill.Paper).
		Msg("position opened")

	o.notify(notify.TradeAlert(notify.Trade{
		Action:      d.Action,
		Token:       token,
		AmountSOL:   fill.AmountSOL,
		TokenAmount: fill.TokenAmount,
		PriceUSD:    fill.PriceUSD,
		Reasons:     d.Reasons,
		Paper:       fill.Paper,
		ExecutedAt:  fill.ExecutedAt,
	}))
}

// snapshot fetches the full snapshot of a listing, keeping identity fields
// the listing already knew.
func (o *Orchestrator) snapshot(ctx context.Context, listing *domain.TokenSnapshot) (*domain.TokenSnapshot, error) {
	token, err := o.opts.Market.FetchTokenSnapshot(ctx, listing.Address, listing.ListedAt)
	if err != nil {
		return nil, err
	}
	if token.Name == "" {
		token.Name = listing.Name
	}
	if token.Symbol == "" {
		token.Symbol = listing.Symbol
	}
	if token.ListedAt.IsZero() {
		token.ListedAt = listing.ListedAt
	}
	return token, nil
}

// priceHistory fetches the recent price history and stores it when a price
// store is configured. Failures only cost the AI prompt its history.
func (o *Orchestrator) priceHistory(ctx context.Context, token *domain.TokenSnapshot, log zerolog.Logger) []domain.PricePoint {
	history, err := o.opts.Market.FetchPriceHistory(ctx, token.Address, historyWindow, historyInterval)
	if err != nil {
		log.Warn().Err(err).Msg("price history unavailable")
		return nil
	}
	if o.opts.Stores.Prices != nil && len(history) > 0 {
		if err := o.opts.Stores.Prices.Append(ctx, history); err != nil {
			log.Warn().Err(err).Msg("store price history failed")
		}
	}
	return history
}

func (o *Orchestrator) evaluate(ctx context.Context, token *domain.TokenSnapshot, market *domain.MarketContext, history []domain.PricePoint) domain.AIEvaluation {
	if o.opts.AI == nil {
		return domain.DefaultAIEvaluation(token.Address, o.opts.Now())
	}
	return o.opts.AI.Evaluate(ctx, token, market, history)
}

func (o *Orchestrator) sentiment(ctx context.Context, token *domain.TokenSnapshot) *domain.SentimentResult {
	if o.opts.Sentiment == nil {
		return nil
	}
	symbol := token.Symbol
	if symbol == "" {
		symbol = token.Name
	}
	if symbol == "" {
		return nil
	}
	s := o.opts.Sentiment.Score(ctx, symbol)
	return &s
}

func (o *Orchestrator) recordDecision(ctx context.Context, d *domain.TradingDecision, res *CycleResult) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	observability.RecordDecision(string(d.Action))
	res.Decisions[d.Action]++
	if err := o.opts.Stores.Decisions.Insert(ctx, d); err != nil {
		res.addError(d.TokenAddress, "store decision", err)
	}
}

func (o *Orchestrator) recordTrade(ctx context.Context, positionID, address string, action domain.Action, fill *execution.Fill, res *CycleResult) {
	trade := &domain.TradeRecord{
		TradeID:      idhash.ComputeTradeID(positionID, string(fill.Direction), fill.Signature, fill.ExecutedAt.UnixMilli()),
		PositionID:   positionID,
		TokenAddress: address,
		Direction:    fill.Direction,
		Action:       action,
		AmountSOL:    fill.AmountSOL,
		TokenAmount:  fill.TokenAmount,
		PriceUSD:     fill.PriceUSD,
		Signature:    fill.Signature,
		Paper:        fill.Paper,
		ExecutedAt:   fill.ExecutedAt,
	}
	if err := o.opts.Stores.Trades.Insert(ctx, trade); err != nil {
		res.addError(address, "store trade", err)
	}
}

// applyPaper keeps a simulated balance in step with paper fills.
func (o *Orchestrator) applyPaper(fill *execution.Fill) {
	if !fill.Paper {
		return
	}
	if b, ok := o.opts.Balance.(*execution.PaperBalance); ok {
		b.Apply(fill)
	}
}

// Evaluation is the full assessment of one token without execution.
type Evaluation struct {
	Token     *domain.TokenSnapshot
	Risk      *domain.RiskAssessment
	AI        *domain.AIEvaluation // nil when the risk gates rejected the token
	Sentiment *domain.SentimentResult
	Decision  *domain.TradingDecision // nil when the risk gates rejected the token
	Signals   decision.Signals
}

// Evaluate runs the evaluation pipeline for address without persisting or
// trading. It only fails when the token snapshot cannot be fetched.
func (o *Orchestrator) Evaluate(ctx context.Context, address string) (*Evaluation, error) {
	if address == "" {
		return nil, fmt.Errorf("evaluate: %w", storage.ErrInvalidInput)
	}
	token, err := o.snapshot(ctx, &domain.TokenSnapshot{Address: address})
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", address, err)
	}

	out := &Evaluation{Token: token, Risk: o.opts.Risk.Assess(ctx, token)}
	if !out.Risk.Passes {
		return out, nil
	}

	market := o.Market()
	history, err := o.opts.Market.FetchPriceHistory(ctx, address, historyWindow, historyInterval)
	if err != nil {
		o.log.Debug().Err(err).Str("token", address).Msg("price history unavailable")
	}
	eval := o.evaluate(ctx, token, market, history)
	out.AI = &eval
	out.Sentiment = o.sentiment(ctx, token)

	in := decision.Input{
		Token:     token,
		AI:        out.AI,
		Risk:      out.Risk,
		Sentiment: out.Sentiment,
		Market:    market,
	}
	out.Decision = o.opts.Decisions.Decide(in)
	out.Signals = decision.ComputeSignals(in)
	return out, nil
}
