package api

import (
	"time"

	"solana-token-trader/internal/decision"
	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/notify"
	"solana-token-trader/internal/orchestrator"
)

// JSON views of domain types. Domain structs carry no tags; the wire shape
// is fixed here.

type statusView struct {
	Mode           string    `json:"mode"`
	TradingEnabled bool      `json:"trading_enabled"`
	Uptime         string    `json:"uptime"`
	BalanceSOL     float64   `json:"balance_sol"`
	OpenPositions  int       `json:"open_positions"`
	InvestedSOL    float64   `json:"invested_sol"`
	TradesToday    int       `json:"trades_today"`
	TokensAnalyzed int       `json:"tokens_analyzed_today"`
	LastCycle      time.Time `json:"last_cycle,omitempty"`
	At             time.Time `json:"at"`
}

func newStatusView(s notify.Status) statusView {
	return statusView{
		Mode:           s.Mode,
		TradingEnabled: s.TradingEnabled,
		Uptime:         s.Uptime.Truncate(time.Second).String(),
		BalanceSOL:     s.BalanceSOL,
		OpenPositions:  s.OpenPositions,
		InvestedSOL:    s.InvestedSOL,
		TradesToday:    s.TradesToday,
		TokensAnalyzed: s.TokensAnalyzed,
		LastCycle:      s.LastCycle,
		At:             s.At,
	}
}

type positionView struct {
	ID            string     `json:"id"`
	TokenAddress  string     `json:"token_address"`
	TokenSymbol   string     `json:"token_symbol"`
	Status        string     `json:"status"`
	EntryPrice    float64    `json:"entry_price"`
	EntryTime     time.Time  `json:"entry_time"`
	AmountIn      float64    `json:"amount_in"`
	StopLoss      *float64   `json:"stop_loss,omitempty"`
	TakeProfit    *float64   `json:"take_profit,omitempty"`
	ExitPrice     *float64   `json:"exit_price,omitempty"`
	ExitTime      *time.Time `json:"exit_time,omitempty"`
	AmountOut     float64    `json:"amount_out"`
	ProfitLoss    float64    `json:"profit_loss"`
	ProfitLossPct float64    `json:"profit_loss_pct"`
	ExitReason    string     `json:"exit_reason,omitempty"`
}

func newPositionView(p *domain.Position) positionView {
	return positionView{
		ID:            p.ID,
		TokenAddress:  p.TokenAddress,
		TokenSymbol:   p.TokenSymbol,
		Status:        string(p.Status),
		EntryPrice:    p.EntryPrice,
		EntryTime:     p.EntryTime,
		AmountIn:      p.AmountIn,
		StopLoss:      p.StopLoss,
		TakeProfit:    p.TakeProfit,
		ExitPrice:     p.ExitPrice,
		ExitTime:      p.ExitTime,
		AmountOut:     p.AmountOut,
		ProfitLoss:    p.ProfitLoss,
		ProfitLossPct: p.ProfitLossPct,
		ExitReason:    p.ExitReason,
	}
}

type decisionView struct {
	ID           string    `json:"id"`
	TokenAddress string    `json:"token_address"`
	TokenSymbol  string    `json:"token_symbol"`
	Action       string    `json:"action"`
	Confidence   float64   `json:"confidence"`
	Consensus    float64   `json:"consensus"`
	Reasons      []string  `json:"reasons"`
	PositionSize float64   `json:"position_size"`
	PriceTarget  *float64  `json:"price_target,omitempty"`
	StopLoss     *float64  `json:"stop_loss,omitempty"`
	Strategy     string    `json:"strategy"`
	CreatedAt    time.Time `json:"created_at"`
}

func newDecisionView(d *domain.TradingDecision) decisionView {
	reasons := d.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return decisionView{
		ID:           d.ID,
		TokenAddress: d.TokenAddress,
		TokenSymbol:  d.TokenSymbol,
		Action:       string(d.Action),
		Confidence:   d.Confidence,
		Consensus:    d.Consensus,
		Reasons:      reasons,
		PositionSize: d.PositionSize,
		PriceTarget:  d.PriceTarget,
		StopLoss:     d.StopLoss,
		Strategy:     d.StrategyName,
		CreatedAt:    d.CreatedAt,
	}
}

type tradeView struct {
	TradeID      string    `json:"trade_id"`
	PositionID   string    `json:"position_id"`
	TokenAddress string    `json:"token_address"`
	Direction    string    `json:"direction"`
	Action       string    `json:"action"`
	AmountSOL    float64   `json:"amount_sol"`
	TokenAmount  float64   `json:"token_amount"`
	PriceUSD     float64   `json:"price_usd"`
	Signature    string    `json:"signature"`
	Paper        bool      `json:"paper"`
	ExecutedAt   time.Time `json:"executed_at"`
}

func newTradeView(t *domain.TradeRecord) tradeView {
	return tradeView{
		TradeID:      t.TradeID,
		PositionID:   t.PositionID,
		TokenAddress: t.TokenAddress,
		Direction:    string(t.Direction),
		Action:       string(t.Action),
		AmountSOL:    t.AmountSOL,
		TokenAmount:  t.TokenAmount,
		PriceUSD:     t.PriceUSD,
		Signature:    t.Signature,
		Paper:        t.Paper,
		ExecutedAt:   t.ExecutedAt,
	}
}

type performanceView struct {
	PeriodDays          int     `json:"period_days"`
	TotalTrades         int     `json:"total_trades"`
	WinningTrades       int     `json:"winning_trades"`
	LosingTrades        int     `json:"losing_trades"`
	WinRate             float64 `json:"win_rate"`
	TotalProfitLoss     float64 `json:"total_profit_loss"`
	AvgProfitLossPct    float64 `json:"avg_profit_loss_pct"`
	MedianProfitLossPct float64 `json:"median_profit_loss_pct"`
	AvgHoldingHours     float64 `json:"avg_holding_hours"`
	MaxDrawdown         float64 `json:"max_drawdown"`
	BestTokenSymbol     string  `json:"best_token_symbol,omitempty"`
	BestTokenProfit     float64 `json:"best_token_profit"`
	OpenPositions       int     `json:"open_positions"`
	TotalInvestedOpen   float64 `json:"total_invested_open"`
}

func newPerformanceView(p domain.PerformanceStats) performanceView {
	return performanceView{
		PeriodDays:          p.PeriodDays,
		TotalTrades:         p.TotalTrades,
		WinningTrades:       p.WinningTrades,
		LosingTrades:        p.LosingTrades,
		WinRate:             p.WinRate,
		TotalProfitLoss:     p.TotalProfitLoss,
		AvgProfitLossPct:    p.AvgProfitLossPct,
		MedianProfitLossPct: p.MedianProfitLossPct,
		AvgHoldingHours:     p.AvgHoldingHours,
		MaxDrawdown:         p.MaxDrawdown,
		BestTokenSymbol:     p.BestTokenSymbol,
		BestTokenProfit:     p.BestTokenProfit,
		OpenPositions:       p.OpenPositions,
		TotalInvestedOpen:   p.TotalInvestedOpen,
	}
}

type checkView struct {
	Result  string `json:"result"`
	Details string `json:"details"`
}

type riskView struct {
	Passes           bool                 `json:"passes"`
	Reason           string               `json:"reason"`
	FailedCheck      string               `json:"failed_check,omitempty"`
	RiskScore        int                  `json:"risk_score"`
	RiskLevel        string               `json:"risk_level"`
	LiquidityUSD     float64              `json:"liquidity_usd"`
	HoldersCount     int                  `json:"holders_count"`
	Concentration    float64              `json:"top_holders_concentration"`
	ContractVerified bool                 `json:"contract_verified"`
	HoneypotRisk     bool                 `json:"honeypot_risk"`
	MaxTax           float64              `json:"max_tax"`
	AgeHours         float64              `json:"age_hours"`
	SafetySource     string               `json:"safety_source,omitempty"`
	Checks           map[string]checkView `json:"checks"`
}

type aiView struct {
	Confidence     float64  `json:"ai_confidence"`
	RiskScore      float64  `json:"risk_score"`
	Recommendation string   `json:"recommendation"`
	KeyFactors     []string `json:"key_factors,omitempty"`
	Default        bool     `json:"default"`
}

type sentimentView struct {
	Score      float64 `json:"sentiment_score"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Engagement string  `json:"engagement_level"`
	SampleSize int     `json:"sample_size"`
}

type signalsView struct {
	AI        float64 `json:"ai"`
	Risk      float64 `json:"risk"`
	Sentiment float64 `json:"sentiment"`
	Market    float64 `json:"market"`
	Consensus float64 `json:"consensus"`
}

type assessmentView struct {
	Address   string         `json:"address"`
	Symbol    string         `json:"symbol"`
	Name      string         `json:"name"`
	PriceUSD  float64        `json:"price_usd"`
	Risk      riskView       `json:"risk"`
	AI        *aiView        `json:"ai,omitempty"`
	Sentiment *sentimentView `json:"sentiment,omitempty"`
	Decision  *decisionView  `json:"decision,omitempty"`
	Signals   *signalsView   `json:"signals,omitempty"`
}

func newAssessmentView(e *orchestrator.Evaluation) assessmentView {
	r := e.Risk
	v := assessmentView{
		Address:  e.Token.Address,
		Symbol:   e.Token.Symbol,
		Name:     e.Token.Name,
		PriceUSD: e.Token.PriceUSD,
		Risk: riskView{
			Passes:           r.Passes,
			Reason:           r.Reason,
			FailedCheck:      r.FailedCheck,
			RiskScore:        r.RiskScore,
			RiskLevel:        string(r.RiskLevel),
			LiquidityUSD:     r.LiquidityUSD,
			HoldersCount:     r.HoldersCount,
			Concentration:    r.TopHoldersConcentration,
			ContractVerified: r.ContractVerified,
			HoneypotRisk:     r.HoneypotRisk,
			MaxTax:           r.MaxTax,
			AgeHours:         r.AgeHours,
			SafetySource:     r.SafetySource,
			Checks:           make(map[string]checkView, len(r.Checks)),
		},
	}
	for name, c := range r.Checks {
		v.Risk.Checks[name] = checkView{Result: string(c.Status), Details: c.Details}
	}
	if e.AI != nil {
		v.AI = &aiView{
			Confidence:     e.AI.AIConfidence,
			RiskScore:      e.AI.RiskScore,
			Recommendation: string(e.AI.Recommendation),
			KeyFactors:     e.AI.KeyFactors,
			Default:        e.AI.Default,
		}
	}
	if e.Sentiment != nil {
		v.Sentiment = &sentimentView{
			Score:      e.Sentiment.Score,
			Label:      e.Sentiment.Label,
			Confidence: e.Sentiment.Confidence,
			Engagement: string(e.Sentiment.Engagement),
			SampleSize: e.Sentiment.SampleSize,
		}
	}
	if e.Decision != nil {
		d := newDecisionView(e.Decision)
		v.Decision = &d
		v.Signals = newSignalsView(e.Signals)
	}
	return v
}

func newSignalsView(s decision.Signals) *signalsView {
	return &signalsView{
		AI:        s.AI,
		Risk:      s.Risk,
		Sentiment: s.Sentiment,
		Market:    s.Market,
		Consensus: s.Consensus,
	}
}
