package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-trader/internal/ai"
	"solana-token-trader/internal/decision"
	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/execution"
	"solana-token-trader/internal/marketdata"
	"solana-token-trader/internal/solana"
	"solana-token-trader/internal/storage"
	"solana-token-trader/internal/storage/memory"
	"solana-token-trader/internal/strategy"
	"solana-token-trader/internal/ttlcache"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

type fakeMarket struct {
	mu        sync.Mutex
	listings  []domain.TokenSnapshot
	listErr   error
	snapshots map[string]domain.TokenSnapshot
	history   []domain.PricePoint
	calls     map[string]int
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		snapshots: map[string]domain.TokenSnapshot{
			solana.WrappedSOLMint: {Address: solana.WrappedSOLMint, Symbol: "SOL", PriceUSD: 150, Volume24hUSD: 1e9},
		},
		calls: make(map[string]int),
	}
}

func (m *fakeMarket) NewListings(context.Context, time.Duration, int) ([]domain.TokenSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TokenSnapshot(nil), m.listings...), m.listErr
}

func (m *fakeMarket) FetchTokenSnapshot(_ context.Context, address string, _ time.Time) (*domain.TokenSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[address]++
	s, ok := m.snapshots[address]
	if !ok {
		return nil, errors.New("token not found")
	}
	s.FetchedAt = now
	return &s, nil
}

func (m *fakeMarket) FetchPriceHistory(_ context.Context, address string, _ time.Duration, _ string) ([]domain.PricePoint, error) {
	var out []domain.PricePoint
	for _, p := range m.history {
		if p.TokenAddress == address {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *fakeMarket) setPrice(address string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.snapshots[address]
	s.PriceUSD = price
	m.snapshots[address] = s
}

type fakeFeed struct {
	pending []domain.TokenSnapshot
}

func (f *fakeFeed) Drain() []domain.TokenSnapshot {
	out := f.pending
	f.pending = nil
	return out
}

type fakeRisk struct {
	rejected map[string]string
}

func (r *fakeRisk) Assess(_ context.Context, token *domain.TokenSnapshot) *domain.RiskAssessment {
	a := &domain.RiskAssessment{
		TokenAddress: token.Address,
		Passes:       true,
		RiskScore:    10,
		RiskLevel:    domain.RiskLevelLow,
		AssessedAt:   now,
	}
	if reason, ok := r.rejected[token.Address]; ok {
		a.Passes = false
		a.Reason = reason
		a.FailedCheck = domain.CheckLiquidity
		a.RiskScore = 90
		a.RiskLevel = domain.RiskLevelExtreme
	}
	return a
}

type fakeAI struct {
	avoid map[string]bool
}

func (a *fakeAI) Evaluate(_ context.Context, token *domain.TokenSnapshot, _ *domain.MarketContext, _ []domain.PricePoint) domain.AIEvaluation {
	if a.avoid[token.Address] {
		return domain.NewAIEvaluation(token.Address, 8, 9, domain.RecommendationAvoid, now)
	}
	return domain.NewAIEvaluation(token.Address, 9, 1, domain.RecommendationBuy, now)
}

func (a *fakeAI) MarketContext(context.Context, ai.MarketData) domain.MarketContext {
	return domain.NewMarketContext("bullish", "positive", "low", now)
}

type fakeSentiment struct{}

func (fakeSentiment) Score(context.Context, string) domain.SentimentResult {
	return domain.NewSentimentResult(0.8, 0.9, domain.EngagementHigh, now)
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Enqueue(text string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return true
}

func (n *fakeNotifier) contains(substr string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, m := range n.messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

type harness struct {
	orch     *Orchestrator
	stores   storage.Stores
	market   *fakeMarket
	feed     *fakeFeed
	risk     *fakeRisk
	ai       *fakeAI
	notifier *fakeNotifier
	balance  *execution.PaperBalance
	solPrice *marketdata.SOLPrice
	settings Settings
	enabled  bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		stores:   memory.NewStores(),
		market:   newFakeMarket(),
		feed:     &fakeFeed{},
		risk:     &fakeRisk{rejected: map[string]string{}},
		ai:       &fakeAI{avoid: map[string]bool{}},
		notifier: &fakeNotifier{},
		balance:  execution.NewPaperBalance(10),
		settings: DefaultSettings(),
		enabled:  true,
	}
	h.settings.TradingEnabled = true

	exits, err := strategy.NewExitMachine(strategy.DefaultExitSettings(), clock)
	require.NoError(t, err)

	h.solPrice = &marketdata.SOLPrice{}
	paper := execution.NewPaperExecutor(func() int { return 0 }, h.solPrice.Get, clock)

	h.orch, err = New(Options{
		Stores:    h.stores,
		Market:    h.market,
		Feed:      h.feed,
		Risk:      h.risk,
		AI:        h.ai,
		Sentiment: fakeSentiment{},
		Decisions: decision.NewEngine(nil, clock),
		Exits:     exits,
		Executor:  execution.NewGate(paper, func() bool { return h.enabled }),
		Balance:   h.balance,
		Notifier:  h.notifier,
		SOLPrice:  h.solPrice,
		Settings:  func() Settings { return h.settings },
		Logger:    zerolog.Nop(),
		Now:       clock,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) addListing(address, symbol string, price float64) {
	t := domain.TokenSnapshot{
		Address:      address,
		Symbol:       symbol,
		Name:         symbol + " Token",
		PriceUSD:     price,
		LiquidityUSD: 50000,
		Volume24hUSD: 100000,
		ListedAt:     now.Add(-2 * time.Hour),
	}
	h.market.listings = append(h.market.listings, domain.TokenSnapshot{Address: address, Symbol: symbol, ListedAt: t.ListedAt})
	h.market.snapshots[address] = t
}

func (h *harness) seedPosition(t *testing.T, id, address string, entry, amount float64, stop, target *float64) {
	t.Helper()
	h.market.snapshots[address] = domain.TokenSnapshot{Address: address, Symbol: "POS", PriceUSD: entry, LiquidityUSD: 50000}
	require.NoError(t, h.stores.Positions.Open(context.Background(), &domain.Position{
		ID:           id,
		TokenAddress: address,
		TokenSymbol:  "POS",
		EntryPrice:   entry,
		EntryTime:    now.Add(-time.Hour),
		AmountIn:     amount,
		StopLoss:     stop,
		TakeProfit:   target,
		Status:       domain.PositionOpen,
	}))
}

func ptr(v float64) *float64 { return &v }

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	_, err = New(Options{Market: newFakeMarket(), Risk: &fakeRisk{}})
	assert.Error(t, err)
}

func TestRunCycle_EntersOnBuy(t *testing.T) {
	h := newHarness(t)
	h.addListing("mintA", "AAA", 1.0)
	ctx := context.Background()

	res, err := h.orch.RunCycle(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, res.TokensSeen)
	assert.Equal(t, 1, res.TokensAnalyzed)
	assert.Equal(t, 1, res.Decisions[domain.ActionBuy])
	assert.Equal(t, 1, res.Entries)

	open, err := h.stores.Positions.GetOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	p := open[0]
	assert.Equal(t, "mintA", p.TokenAddress)
	assert.InDelta(t, 1.0, p.EntryPrice, 1e-9)
	assert.InDelta(t, 0.1, p.AmountIn, 1e-9)
	require.NotNil(t, p.TakeProfit)
	require.NotNil(t, p.StopLoss)
	assert.InDelta(t, 1.3, *p.TakeProfit, 1e-9)
	assert.InDelta(t, 0.85, *p.StopLoss, 1e-9)

	trades, err := h.stores.Trades.GetByPosition(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, domain.DirectionBuy, trades[0].Direction)
	assert.True(t, trades[0].Paper)

	bal, _ := h.balance.BalanceSOL(ctx)
	assert.InDelta(t, 9.9, bal.InexactFloat64(), 1e-9)

	stats, err := h.stores.Stats.Get(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TokensAnalyzed)
	assert.Equal(t, 1, stats.TradesExecuted)

	snaps, err := h.stores.Snapshots.GetByDate(ctx, now)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)

	_, err = h.stores.Tokens.GetByAddress(ctx, "mintA")
	assert.NoError(t, err)
	decisions, err := h.stores.Decisions.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.NotEmpty(t, decisions[0].ID)

	assert.True(t, h.notifier.contains("New Token Detected"))
	assert.True(t, h.notifier.contains("BUY AAA"))
	assert.True(t, h.notifier.contains("Market"))
}

func TestRunCycle_SecondCycleDoesNotReenter(t *testing.T) {
	h := newHarness(t)
	h.addListing("mintA", "AAA", 1.0)
	ctx := context.Background()

	_, err := h.orch.RunCycle(ctx)
	require.NoError(t, err)
	res, err := h.orch.RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Entries)
	open, _ := h.stores.Positions.GetOpen(ctx)
	assert.Len(t, open, 1)
	count, _ := h.stores.Trades.CountSince(ctx, domain.DirectionBuy, storage.DayStart(now))
	assert.Equal(t, 1, count)
}

func TestRunCycle_RiskRejectionStopsEvaluation(t *testing.T) {
	h := newHarness(t)
	h.addListing("mintBad", "BAD", 1.0)
	h.risk.rejected["mintBad"] = "Insufficient liquidity"
	ctx := context.Background()

	res, err := h.orch.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RiskRejected)
	assert.Empty(t, res.Decisions)

	a, err := h.stores.Risk.GetLatest(ctx, "mintBad")
	require.NoError(t, err)
	assert.False(t, a.Passes)

	evals, err := h.stores.AI.GetByToken(ctx, "mintBad", 10)
	require.NoError(t, err)
	assert.Empty(t, evals)
}

func TestRunCycle_TradingDisabledRecordsDecisionOnly(t *testing.T) {
	h := newHarness(t)
	h.enabled = false
	h.addListing("mintA", "AAA", 1.0)
	ctx := context.Background()

	res, err := h.orch.RunCycle(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, res.Decisions[domain.ActionBuy])
	assert.Equal(t, 0, res.Entries)

	open, _ := h.stores.Positions.GetOpen(ctx)
	assert.Empty(t, open)
	decisions, _ := h.stores.Decisions.ListRecent(ctx, 10)
	assert.Len(t, decisions, 1)
}

func TestRunCycle_PerTokenErrorsDoNotAbort(t *testing.T) {
	h := newHarness(t)
	h.market.listings = append(h.market.listings, domain.TokenSnapshot{Address: "mintGone"})
	h.addListing("mintA", "AAA", 1.0)

	res, err := h.orch.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "mintGone")
	assert.Equal(t, 1, res.Entries)
}

func TestRunCycle_ListingFailureStillExaminesPositions(t *testing.T) {
	h := newHarness(t)
	h.market.listErr = errors.New("birdeye down")
	h.seedPosition(t, "pos1", "mintP", 1.0, 1.0, ptr(0.8), nil)
	h.market.setPrice("mintP", 0.5)

	res, err := h.orch.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Errors, 1)
	assert.Equal(t, 1, res.Exits)
}

func TestRunCycle_FeedAndListingsAreDeduplicated(t *testing.T) {
	h := newHarness(t)
	h.addListing("mintA", "AAA", 1.0)
	h.addListing("mintB", "BBB", 1.0)
	h.feed.pending = []domain.TokenSnapshot{{Address: "mintB"}, {Address: "mintA"}, {Address: ""}}
	h.settings.MaxTokensPerCycle = 0

	res, err := h.orch.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.TokensSeen)
}

func TestRunCycle_CapsTokensPerCycle(t *testing.T) {
	h := newHarness(t)
	h.addListing("mintA", "AAA", 1.0)
	h.addListing("mintB", "BBB", 1.0)
	h.addListing("mintC", "CCC", 1.0)
	h.settings.MaxTokensPerCycle = 2

	res, err := h.orch.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.TokensSeen)
}

func TestRunCycle_DailyTradeLimit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 0; i < decision.DefaultSettings().MaxDailyTrades; i++ {
		require.NoError(t, h.stores.Trades.Insert(ctx, &domain.TradeRecord{
			TradeID:    "t" + string(rune('a'+i)),
			Direction:  domain.DirectionBuy,
			ExecutedAt: now.Add(-time.Minute),
		}))
	}
	h.addListing("mintA", "AAA", 1.0)

	res, err := h.orch.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Decisions[domain.ActionNoAction])
	assert.Equal(t, 0, res.Entries)
}

func TestRunCycle_StopLossClosesPosition(t *testing.T) {
	h := newHarness(t)
	h.seedPosition(t, "pos1", "mintP", 1.0, 1.0, ptr(0.8), ptr(1.3))
	h.market.setPrice("mintP", 0.5)
	ctx := context.Background()

	res, err := h.orch.RunCycle(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, res.Exits)
	assert.Equal(t, 1, res.Decisions[domain.ActionCutLoss])

	p, err := h.stores.Positions.GetByID(ctx, "pos1")
	require.NoError(t, err)
	assert.Equal(t, domain.PositionClosed, p.Status)
	assert.Equal(t, domain.ExitReasonStopLoss, p.ExitReason)
	assert.InDelta(t, -0.5, p.ProfitLoss, 1e-9)

	stats, err := h.stores.Stats.Get(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FailedTrades)
	assert.Equal(t, 0, stats.SuccessfulTrades)
	assert.InDelta(t, -0.5, stats.TotalProfitLoss, 1e-9)

	bal, _ := h.balance.BalanceSOL(ctx)
	assert.InDelta(t, 10.5, bal.InexactFloat64(), 1e-9)
	assert.True(t, h.notifier.contains("CUT_LOSS"))
}

func TestRunCycle_StrongProfitReducesPosition(t *testing.T) {
	h := newHarness(t)
	h.seedPosition(t, "pos1", "mintP", 1.0, 1.0, nil, nil)
	h.market.setPrice("mintP", 2.0)
	ctx := context.Background()

	res, err := h.orch.RunCycle(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, res.Exits)

	p, err := h.stores.Positions.GetByID(ctx, "pos1")
	require.NoError(t, err)
	assert.Equal(t, domain.PositionOpen, p.Status)
	assert.InDelta(t, 0.25, p.AmountIn, 1e-9)
	assert.InDelta(t, 0.75, p.ProfitLoss, 1e-9)
	require.NotNil(t, p.TakeProfit)
	assert.InDelta(t, 2.2, *p.TakeProfit, 1e-9)

	stats, err := h.stores.Stats.Get(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.SuccessfulTrades)
	assert.InDelta(t, 0.75, stats.TotalProfitLoss, 1e-9)

	trades, err := h.stores.Trades.GetByPosition(ctx, "pos1")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, domain.DirectionSell, trades[0].Direction)
	assert.Equal(t, domain.ActionTakeProfit, trades[0].Action)

	// Still below the remainder target: the remainder is kept.
	res, err = h.orch.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Exits)
	p, err = h.stores.Positions.GetByID(ctx, "pos1")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, p.AmountIn, 1e-9)
}

func TestRunCycle_AIAvoidExitsPosition(t *testing.T) {
	h := newHarness(t)
	h.seedPosition(t, "pos1", "mintP", 1.0, 1.0, nil, nil)
	h.ai.avoid["mintP"] = true

	res, err := h.orch.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Exits)

	p, err := h.stores.Positions.GetByID(context.Background(), "pos1")
	require.NoError(t, err)
	assert.Equal(t, domain.ExitReasonAIAvoid, p.ExitReason)
}

func TestRunCycle_HoldLeavesPositionOpen(t *testing.T) {
	h := newHarness(t)
	h.seedPosition(t, "pos1", "mintP", 1.0, 1.0, ptr(0.8), ptr(1.3))
	h.market.setPrice("mintP", 1.1)

	res, err := h.orch.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Exits)

	p, _ := h.stores.Positions.GetByID(context.Background(), "pos1")
	assert.Equal(t, domain.PositionOpen, p.Status)
}

func TestRunCycle_MarketContextRefreshedOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orch.RunCycle(ctx)
	require.NoError(t, err)
	_, err = h.orch.RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, h.market.calls[solana.WrappedSOLMint])
	mc := h.orch.Market()
	require.NotNil(t, mc)
	assert.Equal(t, domain.MarketBullish, mc.MarketSentiment)
	assert.InDelta(t, 150, h.solPrice.Get(), 1e-9)

	h.orch.RefreshMarket(ctx)
	assert.Equal(t, 2, h.market.calls[solana.WrappedSOLMint])
}

func TestRunCycle_CancelledContext(t *testing.T) {
	h := newHarness(t)
	h.addListing("mintA", "AAA", 1.0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := h.orch.RunCycle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.TokensAnalyzed)
}

func TestEvaluate_DoesNotPersistOrTrade(t *testing.T) {
	h := newHarness(t)
	h.addListing("mintA", "AAA", 1.0)
	ctx := context.Background()

	ev, err := h.orch.Evaluate(ctx, "mintA")
	require.NoError(t, err)
	require.NotNil(t, ev.Decision)
	assert.Equal(t, domain.ActionBuy, ev.Decision.Action)
	assert.Greater(t, ev.Signals.Consensus, 0.0)

	open, _ := h.stores.Positions.GetOpen(ctx)
	assert.Empty(t, open)
	decisions, _ := h.stores.Decisions.ListRecent(ctx, 10)
	assert.Empty(t, decisions)

	_, err = h.orch.Evaluate(ctx, "unknown")
	assert.Error(t, err)
	_, err = h.orch.Evaluate(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestEvaluate_RejectedTokenHasNoDecision(t *testing.T) {
	h := newHarness(t)
	h.addListing("mintBad", "BAD", 1.0)
	h.risk.rejected["mintBad"] = "Honeypot"

	ev, err := h.orch.Evaluate(context.Background(), "mintBad")
	require.NoError(t, err)
	assert.False(t, ev.Risk.Passes)
	assert.Nil(t, ev.AI)
	assert.Nil(t, ev.Decision)
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	h.addListing("mintA", "AAA", 1.0)
	ctx := context.Background()
	_, err := h.orch.RunCycle(ctx)
	require.NoError(t, err)

	s, err := h.orch.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, execution.ModePaper, s.Mode)
	assert.True(t, s.TradingEnabled)
	assert.Equal(t, 1, s.OpenPositions)
	assert.InDelta(t, 0.1, s.InvestedSOL, 1e-9)
	assert.Equal(t, 1, s.TradesToday)
	assert.Equal(t, 1, s.TokensAnalyzed)
	assert.Equal(t, now, s.LastCycle)

	h.orch.SendStatus(ctx)
	assert.True(t, h.notifier.contains("Bot Status"))
}

func TestPerformance(t *testing.T) {
	h := newHarness(t)
	h.seedPosition(t, "pos1", "mintP", 1.0, 1.0, ptr(0.8), nil)
	h.market.setPrice("mintP", 0.5)
	ctx := context.Background()
	_, err := h.orch.RunCycle(ctx)
	require.NoError(t, err)

	windows, err := h.orch.Performance(ctx)
	require.NoError(t, err)
	require.Len(t, windows, 3)
	assert.Equal(t, 1, windows[0].TotalTrades)
	assert.InDelta(t, -0.5, windows[0].TotalProfitLoss, 1e-9)

	h.orch.SendPerformance(ctx)
	assert.True(t, h.notifier.contains("Performance"))
}

func TestMaintain_SweepsCachesAndRecordsRuntime(t *testing.T) {
	current := now
	cache := ttlcache.Local[int](ttlcache.WithName("test"), ttlcache.WithClock(func() time.Time { return current }))
	ctx := context.Background()
	cache.Put(ctx, "a", 1, time.Minute)
	cache.Put(ctx, "b", 2, time.Hour)

	h := newHarness(t)
	h.orch.opts.Caches = []ttlcache.Maintainable{cache}
	h.orch.opts.Now = func() time.Time { return current }

	current = now.Add(30 * time.Minute)
	h.orch.Maintain(ctx)
	assert.Equal(t, 1, cache.Len())

	stats, err := h.stores.Stats.Get(ctx, current)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, stats.RuntimeHours, 1e-9)
}

func TestRun_StopsOnCancel(t *testing.T) {
	h := newHarness(t)
	h.settings.PollInterval = time.Hour
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.orch.Run(ctx) }()

	require.Eventually(t, func() bool { return !h.orch.LastCycle().IsZero() }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
	assert.True(t, h.notifier.contains("Bot started"))
	assert.True(t, h.notifier.contains("Bot stopped"))
}

func TestRun_RejectsZeroPollInterval(t *testing.T) {
	h := newHarness(t)
	h.settings.PollInterval = 0
	assert.Error(t, h.orch.Run(context.Background()))
}
