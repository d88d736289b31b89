// Package orchestrator runs the trading loop.
// It coordinates: discovery → risk → AI → sentiment → decision → execution,
// then examines open positions and books exits.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solana-token-trader/internal/ai"
	"solana-token-trader/internal/decision"
	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/execution"
	"solana-token-trader/internal/marketdata"
	"solana-token-trader/internal/metrics"
	"solana-token-trader/internal/observability"
	"solana-token-trader/internal/sentiment"
	"solana-token-trader/internal/storage"
	"solana-token-trader/internal/strategy"
	"solana-token-trader/internal/ttlcache"
)

// MarketSource supplies listings, snapshots and price history.
type MarketSource interface {
	NewListings(ctx context.Context, lookback time.Duration, limit int) ([]domain.TokenSnapshot, error)
	FetchTokenSnapshot(ctx context.Context, address string, listedAt time.Time) (*domain.TokenSnapshot, error)
	FetchPriceHistory(ctx context.Context, address string, window time.Duration, interval string) ([]domain.PricePoint, error)
}

// ListingSource buffers listings pushed between cycles.
type ListingSource interface {
	Drain() []domain.TokenSnapshot
}

// RiskAssessor runs the risk gates. It never fails.
type RiskAssessor interface {
	Assess(ctx context.Context, token *domain.TokenSnapshot) *domain.RiskAssessment
}

// TokenEvaluator supplies AI token evaluations and the market context.
type TokenEvaluator interface {
	Evaluate(ctx context.Context, token *domain.TokenSnapshot, market *domain.MarketContext, history []domain.PricePoint) domain.AIEvaluation
	MarketContext(ctx context.Context, data ai.MarketData) domain.MarketContext
}

// SentimentScorer scores social sentiment for a symbol.
type SentimentScorer interface {
	Score(ctx context.Context, symbol string) domain.SentimentResult
}

// Notifications accepts formatted messages without blocking.
type Notifications interface {
	Enqueue(text string) bool
}

var (
	_ MarketSource    = (*marketdata.BirdeyeClient)(nil)
	_ MarketSource    = (*marketdata.CachedClient)(nil)
	_ ListingSource   = (*marketdata.ListingFeed)(nil)
	_ TokenEvaluator  = (*ai.Evaluator)(nil)
	_ SentimentScorer = (*sentiment.Analyzer)(nil)
)

// Settings are the loop parameters, read at the start of every cycle.
type Settings struct {
	PollInterval          time.Duration
	MarketContextInterval time.Duration
	StatusInterval        time.Duration
	PerformanceInterval   time.Duration
	MaintenanceInterval   time.Duration
	ListingLookback       time.Duration
	MaxTokensPerCycle     int

	TakeProfitPct float64
	StopLossPct   float64
	HoldingPeriod time.Duration

	CacheMaxEntries  int
	CacheKeepEntries int

	TradingEnabled bool
}

// DefaultSettings returns a 60s poll, 8h market refresh, 30m status,
// 24h performance and 1h maintenance.
func DefaultSettings() Settings {
	return Settings{
		PollInterval:          time.Minute,
		MarketContextInterval: 8 * time.Hour,
		StatusInterval:        30 * time.Minute,
		PerformanceInterval:   24 * time.Hour,
		MaintenanceInterval:   time.Hour,
		ListingLookback:       24 * time.Hour,
		MaxTokensPerCycle:     20,
		TakeProfitPct:         30,
		StopLossPct:           15,
		HoldingPeriod:         domain.DefaultTargetHoldingPeriod,
		CacheMaxEntries:       1000,
		CacheKeepEntries:      500,
	}
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Stores    storage.Stores
	Market    MarketSource
	Risk      RiskAssessor
	Decisions *decision.Engine
	Exits     *strategy.ExitMachine
	Executor  execution.Executor
	Balance   execution.BalanceSource

	// Optional
	Feed      ListingSource
	AI        TokenEvaluator
	Sentiment SentimentScorer
	Notifier  Notifications
	Caches    []ttlcache.Maintainable
	SOLPrice  *marketdata.SOLPrice

	Settings func() Settings
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Orchestrator drives evaluation cycles.
type Orchestrator struct {
	opts Options
	log  zerolog.Logger
	perf *metrics.Aggregator

	mu        sync.Mutex
	market    *domain.MarketContext
	seen      map[string]time.Time // address -> first seen
	lastCycle time.Time
	startedAt time.Time

	runtimeMark time.Time // last time runtime hours were recorded
}

// New creates a new Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	switch {
	case opts.Market == nil:
		return nil, errors.New("orchestrator: market source is required")
	case opts.Risk == nil:
		return nil, errors.New("orchestrator: risk assessor is required")
	case opts.Decisions == nil || opts.Exits == nil:
		return nil, errors.New("orchestrator: decision engine and exit machine are required")
	case opts.Executor == nil || opts.Balance == nil:
		return nil, errors.New("orchestrator: executor and balance source are required")
	case opts.Stores.Tokens == nil || opts.Stores.Risk == nil || opts.Stores.AI == nil ||
		opts.Stores.Decisions == nil || opts.Stores.Positions == nil ||
		opts.Stores.Trades == nil || opts.Stores.Stats == nil:
		return nil, errors.New("orchestrator: incomplete stores")
	}
	if opts.Settings == nil {
		opts.Settings = DefaultSettings
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SOLPrice == nil {
		opts.SOLPrice = &marketdata.SOLPrice{}
	}
	now := opts.Now()
	return &Orchestrator{
		opts:        opts,
		log:         opts.Logger.With().Str("component", "orchestrator").Logger(),
		perf:        metrics.NewAggregator(opts.Stores.Positions, opts.Now),
		seen:        make(map[string]time.Time),
		startedAt:   now,
		runtimeMark: now,
	}, nil
}

// CycleResult contains results from one evaluation cycle.
type CycleResult struct {
	StartedAt      time.Time
	Duration       time.Duration
	TokensSeen     int
	TokensAnalyzed int
	RiskRejected   int
	Decisions      map[domain.Action]int
	Entries        int
	Exits          int
	Errors         []string

	stats domain.StatsDelta
}

func (r *CycleResult) addError(scope, op string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %s: %v", scope, op, err))
}

// RunCycle executes one cycle:
//  1. Refresh the market context when stale
//  2. Gather new listings from the poller and the feed
//  3. Evaluate each token and enter on BUY
//  4. Examine open positions and book exits
//  5. Update daily statistics
//
// Per-token and per-position errors are collected in CycleResult.Errors and
// never abort the cycle. The returned error is only set when ctx ends.
func (o *Orchestrator) RunCycle(ctx context.Context) (*CycleResult, error) {
	start := o.opts.Now()
	settings := o.opts.Settings()
	res := &CycleResult{StartedAt: start, Decisions: make(map[domain.Action]int)}

	o.refreshMarket(ctx, settings, false)

	tokens := o.gatherTokens(ctx, settings, res)
	res.TokensSeen = len(tokens)

	portfolio := o.portfolio(ctx, res)
	for i := range tokens {
		if ctx.Err() != nil {
			break
		}
		o.processToken(ctx, &tokens[i], settings, portfolio, res)
	}

	if ctx.Err() == nil {
		o.examinePositions(ctx, res)
	}

	res.Duration = o.opts.Now().Sub(start)
	o.recordStats(ctx, res)

	o.mu.Lock()
	o.lastCycle = start
	o.mu.Unlock()

	status := "success"
	if len(res.Errors) > 0 {
		status = "partial"
	}
	if ctx.Err() != nil {
		status = "aborted"
	}
	observability.RecordCycle(status, res.Duration.Seconds(), o.opts.Now().Unix())

	o.log.Info().
		Int("tokens", res.TokensSeen).
		Int("analyzed", res.TokensAnalyzed).
		Int("rejected", res.RiskRejected).
		Int("entries", res.Entries).
		Int("exits", res.Exits).
		Int("errors", len(res.Errors)).
		Dur("duration", res.Duration).
		Msg("cycle completed")

	return res, ctx.Err()
}

// Market returns the current market context, or nil before the first refresh.
func (o *Orchestrator) Market() *domain.MarketContext {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.market == nil {
		return nil
	}
	mc := *o.market
	return &mc
}

// LastCycle returns the start time of the last completed cycle.
func (o *Orchestrator) LastCycle() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastCycle
}

// portfolio builds the capital snapshot used for sizing. Balance failures
// yield a zero balance so no entry is sized on unknown capital.
func (o *Orchestrator) portfolio(ctx context.Context, res *CycleResult) *domain.PortfolioState {
	balance, err := o.opts.Balance.BalanceSOL(ctx)
	if err != nil {
		res.addError("portfolio", "balance", err)
		balance = decimal.Zero
	}

	open, err := o.opts.Stores.Positions.GetOpen(ctx)
	if err != nil {
		res.addError("portfolio", "open positions", err)
	}
	positions := make([]domain.Position, 0, len(open))
	for _, p := range open {
		positions = append(positions, *p)
	}

	// The counter resets at UTC midnight because it is derived from today's trades.
	trades, err := o.opts.Stores.Trades.CountSince(ctx, domain.DirectionBuy, storage.DayStart(o.opts.Now()))
	if err != nil {
		res.addError("portfolio", "daily trades", err)
	}
	return execution.BuildPortfolio(balance, positions, trades)
}

func (o *Orchestrator) recordStats(ctx context.Context, res *CycleResult) {
	delta := res.stats
	delta.TokensAnalyzed = res.TokensAnalyzed
	if delta.IsZero() {
		return
	}

	day, err := o.opts.Stores.Stats.Increment(ctx, res.StartedAt, delta)
	if err != nil {
		res.addError("stats", "increment", err)
		return
	}
	if o.opts.Stores.Snapshots != nil {
		if err := o.opts.Stores.Snapshots.Insert(ctx, day); err != nil {
			res.addError("stats", "snapshot", err)
		}
	}
}

func (o *Orchestrator) notify(text string) {
	if o.opts.Notifier == nil {
		return
	}
	if !o.opts.Notifier.Enqueue(text) {
		o.log.Debug().Msg("notification dropped")
	}
}
