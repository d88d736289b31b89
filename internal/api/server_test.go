package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-trader/internal/decision"
	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/notify"
	"solana-token-trader/internal/orchestrator"
	"solana-token-trader/internal/solana"
	"solana-token-trader/internal/storage"
	"solana-token-trader/internal/storage/memory"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeBot struct {
	status    notify.Status
	statusErr error
	perf      []domain.PerformanceStats
	eval      *orchestrator.Evaluation
	evalErr   error
	evaluated []string
}

func (b *fakeBot) Status(context.Context) (notify.Status, error) { return b.status, b.statusErr }

func (b *fakeBot) Performance(context.Context) ([]domain.PerformanceStats, error) {
	return b.perf, nil
}

func (b *fakeBot) Evaluate(_ context.Context, address string) (*orchestrator.Evaluation, error) {
	b.evaluated = append(b.evaluated, address)
	return b.eval, b.evalErr
}

func newTestServer(t *testing.T, bot *fakeBot) (*Server, storage.Stores) {
	t.Helper()
	stores := memory.NewStores()
	s, err := NewServer(Options{
		Bot:       bot,
		Positions: stores.Positions,
		Decisions: stores.Decisions,
		Trades:    stores.Trades,
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return s, stores
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestNewServer_RequiresCollaborators(t *testing.T) {
	_, err := NewServer(Options{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, &fakeBot{})

	rec := get(t, s, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

type fakeChain struct {
	slot int64
	err  error
}

func (c fakeChain) GetSlot(context.Context) (int64, error) { return c.slot, c.err }

func newChainServer(t *testing.T, chain SlotSource) *Server {
	t.Helper()
	stores := memory.NewStores()
	s, err := NewServer(Options{
		Bot:       &fakeBot{},
		Positions: stores.Positions,
		Decisions: stores.Decisions,
		Trades:    stores.Trades,
		Chain:     chain,
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return s
}

func TestHealth_ReportsSlot(t *testing.T) {
	rec := get(t, newChainServer(t, fakeChain{slot: 250_000_000}), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, 250_000_000.0, body["slot"])
}

func TestHealth_DegradedWhenRPCDown(t *testing.T) {
	rec := get(t, newChainServer(t, fakeChain{err: errors.New("connection refused")}), "/health")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "connection refused", body["rpc_error"])
	assert.NotContains(t, body, "slot")
}

func TestRequestID_Propagated(t *testing.T) {
	s, _ := newTestServer(t, &fakeBot{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "abc123", rec.Header().Get("X-Request-ID"))
}

func TestStatus(t *testing.T) {
	bot := &fakeBot{status: notify.Status{
		Mode:           "paper",
		TradingEnabled: true,
		Uptime:         90 * time.Minute,
		BalanceSOL:     9.5,
		OpenPositions:  2,
		TradesToday:    3,
		At:             testNow,
	}}
	s, _ := newTestServer(t, bot)

	rec := get(t, s, "/status")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "paper", body["mode"])
	assert.Equal(t, true, body["trading_enabled"])
	assert.Equal(t, "1h30m0s", body["uptime"])
	assert.Equal(t, 9.5, body["balance_sol"])
	assert.Equal(t, float64(2), body["open_positions"])
}

func TestStatus_Error(t *testing.T) {
	s, _ := newTestServer(t, &fakeBot{statusErr: errors.New("rpc down")})

	rec := get(t, s, "/status")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "rpc down")
}

func TestPerformance(t *testing.T) {
	bot := &fakeBot{perf: []domain.PerformanceStats{
		{PeriodDays: 1, TotalTrades: 2, WinRate: 50},
		{PeriodDays: 7, TotalTrades: 5, WinRate: 60},
	}}
	s, _ := newTestServer(t, bot)

	rec := get(t, s, "/performance")

	require.Equal(t, http.StatusOK, rec.Code)
	windows := decode(t, rec)["windows"].([]any)
	require.Len(t, windows, 2)
	assert.Equal(t, float64(7), windows[1].(map[string]any)["period_days"])
}

func seedPositions(t *testing.T, stores storage.Stores) {
	t.Helper()
	ctx := context.Background()
	for _, p := range []*domain.Position{
		{ID: "open-1", TokenAddress: "TokA", TokenSymbol: "AAA", EntryPrice: 1, EntryTime: testNow.Add(-2 * time.Hour), AmountIn: 0.1},
		{ID: "closed-1", TokenAddress: "TokB", TokenSymbol: "BBB", EntryPrice: 1, EntryTime: testNow.Add(-3 * 24 * time.Hour), AmountIn: 0.2},
		{ID: "closed-old", TokenAddress: "TokC", TokenSymbol: "CCC", EntryPrice: 1, EntryTime: testNow.Add(-30 * 24 * time.Hour), AmountIn: 0.2},
	} {
		require.NoError(t, stores.Positions.Open(ctx, p))
	}
	_, err := stores.Positions.Close(ctx, "closed-1", storage.PositionExit{
		PriceUSD: 1.5, AmountOut: 0.3, Reason: domain.ExitReasonTakeProfit, At: testNow.Add(-24 * time.Hour),
	})
	require.NoError(t, err)
	_, err = stores.Positions.Close(ctx, "closed-old", storage.PositionExit{
		PriceUSD: 0.5, AmountOut: 0.1, Reason: domain.ExitReasonStopLoss, At: testNow.Add(-20 * 24 * time.Hour),
	})
	require.NoError(t, err)
}

func TestPositions(t *testing.T) {
	s, stores := newTestServer(t, &fakeBot{})
	seedPositions(t, stores)

	tests := []struct {
		name    string
		path    string
		code    int
		wantIDs []string
	}{
		{name: "open by default", path: "/positions", code: http.StatusOK, wantIDs: []string{"open-1"}},
		{name: "closed last week", path: "/positions?status=closed", code: http.StatusOK, wantIDs: []string{"closed-1"}},
		{name: "closed last month", path: "/positions?status=closed&days=30", code: http.StatusOK, wantIDs: []string{"closed-old", "closed-1"}},
		{name: "bad status", path: "/positions?status=pending", code: http.StatusBadRequest},
		{name: "bad days", path: "/positions?status=closed&days=0", code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, tt.path)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.code != http.StatusOK {
				return
			}
			var ids []string
			for _, p := range decode(t, rec)["positions"].([]any) {
				ids = append(ids, p.(map[string]any)["id"].(string))
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestPosition_ByID(t *testing.T) {
	s, stores := newTestServer(t, &fakeBot{})
	seedPositions(t, stores)

	rec := get(t, s, "/positions/closed-1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "CLOSED", body["status"])
	assert.Equal(t, domain.ExitReasonTakeProfit, body["exit_reason"])

	assert.Equal(t, http.StatusNotFound, get(t, s, "/positions/missing").Code)
}

func TestDecisions_Limit(t *testing.T) {
	s, stores := newTestServer(t, &fakeBot{})
	for i, id := range []string{"d1", "d2", "d3"} {
		require.NoError(t, stores.Decisions.Insert(context.Background(), &domain.TradingDecision{
			ID:           id,
			TokenAddress: "TokA",
			Action:       domain.ActionHold,
			Confidence:   0.5,
			CreatedAt:    testNow.Add(time.Duration(i) * time.Minute),
		}))
	}

	rec := get(t, s, "/decisions?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(2), body["count"])
	first := body["decisions"].([]any)[0].(map[string]any)
	assert.Equal(t, "d3", first["id"])
	assert.Equal(t, []any{}, first["reasons"])

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/decisions?limit=abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/decisions?limit=100000").Code)
}

func TestTrades(t *testing.T) {
	s, stores := newTestServer(t, &fakeBot{})
	require.NoError(t, stores.Trades.Insert(context.Background(), &domain.TradeRecord{
		TradeID:      "t1",
		PositionID:   "open-1",
		TokenAddress: "TokA",
		Direction:    domain.DirectionBuy,
		Action:       domain.ActionBuy,
		AmountSOL:    0.1,
		PriceUSD:     1,
		Signature:    "paper-1",
		Paper:        true,
		ExecutedAt:   testNow,
	}))

	rec := get(t, s, "/trades")
	require.Equal(t, http.StatusOK, rec.Code)
	trades := decode(t, rec)["trades"].([]any)
	require.Len(t, trades, 1)
	assert.Equal(t, "BUY", trades[0].(map[string]any)["direction"])
}

func buyEvaluation() *orchestrator.Evaluation {
	target := 1.4
	token := &domain.TokenSnapshot{Address: solana.WrappedSOLMint, Symbol: "TEST", Name: "Test", PriceUSD: 1}
	return &orchestrator.Evaluation{
		Token: token,
		Risk: &domain.RiskAssessment{
			Passes:    true,
			Reason:    "all checks passed",
			RiskScore: 20,
			RiskLevel: domain.RiskLevelLow,
			Checks: map[string]domain.CheckResult{
				"liquidity": {Status: domain.CheckPassed, Details: "ok"},
			},
		},
		AI:        &domain.AIEvaluation{AIConfidence: 9, RiskScore: 1, Recommendation: domain.RecommendationBuy},
		Sentiment: &domain.SentimentResult{Score: 0.5, Label: "bullish", Confidence: 0.8, Engagement: domain.EngagementHigh},
		Decision: &domain.TradingDecision{
			TokenAddress: token.Address,
			TokenSymbol:  "TEST",
			Action:       domain.ActionBuy,
			Confidence:   0.9,
			Reasons:      []string{"strong consensus"},
			PositionSize: 0.1,
			PriceTarget:  &target,
			CreatedAt:    testNow,
		},
		Signals: decision.Signals{AI: 0.8, Risk: 0.6, Consensus: 0.7},
	}
}

func TestAssess_JSON(t *testing.T) {
	bot := &fakeBot{eval: buyEvaluation()}
	s, _ := newTestServer(t, bot)

	rec := get(t, s, "/assess/"+solana.WrappedSOLMint)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{solana.WrappedSOLMint}, bot.evaluated)
	body := decode(t, rec)
	assert.Equal(t, "TEST", body["symbol"])
	risk := body["risk"].(map[string]any)
	assert.Equal(t, true, risk["passes"])
	assert.Contains(t, risk["checks"], "liquidity")
	assert.Equal(t, "BUY", body["decision"].(map[string]any)["action"])
	assert.Equal(t, 0.7, body["signals"].(map[string]any)["consensus"])
}

func TestAssess_Rejected(t *testing.T) {
	eval := buyEvaluation()
	eval.Risk.Passes = false
	eval.Risk.Reason = "blacklisted"
	eval.AI, eval.Sentiment, eval.Decision = nil, nil, nil
	s, _ := newTestServer(t, &fakeBot{eval: eval})

	rec := get(t, s, "/assess/"+solana.WrappedSOLMint)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.NotContains(t, body, "decision")
	assert.NotContains(t, body, "ai")

	rec = get(t, s, "/assess/"+solana.WrappedSOLMint+"?format=markdown")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "blacklisted")
}

func TestAssess_Markdown(t *testing.T) {
	s, _ := newTestServer(t, &fakeBot{eval: buyEvaluation()})

	rec := get(t, s, "/assess/"+solana.WrappedSOLMint+"?format=markdown")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/markdown"))
	assert.Contains(t, rec.Body.String(), "BUY")
}

func TestAssess_Errors(t *testing.T) {
	bot := &fakeBot{evalErr: errors.New("birdeye: 500")}
	s, _ := newTestServer(t, bot)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/assess/not-a-mint").Code)
	assert.Empty(t, bot.evaluated)

	assert.Equal(t, http.StatusBadGateway, get(t, s, "/assess/"+solana.WrappedSOLMint).Code)
}

func TestNotFound(t *testing.T) {
	s, _ := newTestServer(t, &fakeBot{})

	rec := get(t, s, "/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "endpoint not found", decode(t, rec)["error"])
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t, &fakeBot{})

	rec := get(t, s, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
}
