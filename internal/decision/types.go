package decision

import "solana-token-trader/internal/domain"

// Settings are the sizing limits read by the engine on every decision.
type Settings struct {
	DefaultPositionSOL  float64 // position size before confidence scaling
	MaxPositionSOL      float64 // hard cap per position
	MaxDailyTrades      int     // new entries allowed per UTC day
	MaxPortfolioRiskPct float64 // max position value as % of portfolio
}

// DefaultSettings returns the sizing limits used when no config is supplied.
func DefaultSettings() Settings {
	return Settings{
		DefaultPositionSOL:  0.1,
		MaxPositionSOL:      1.0,
		MaxDailyTrades:      10,
		MaxPortfolioRiskPct: 5.0,
	}
}

// Input bundles everything a decision is made from.
// Market and Portfolio are optional.
type Input struct {
	Token     *domain.TokenSnapshot
	AI        *domain.AIEvaluation
	Risk      *domain.RiskAssessment
	Sentiment *domain.SentimentResult
	Market    *domain.MarketContext
	Portfolio *domain.PortfolioState
}

// Signals are the normalized per-source signals and their weighted consensus.
// Every field is in [-1,1].
type Signals struct {
	AI        float64
	Risk      float64
	Sentiment float64
	Market    float64
	Consensus float64
}

// Consensus weights. They sum to 1 so the consensus stays in [-1,1].
const (
	WeightAI        = 0.50
	WeightRisk      = 0.30
	WeightSentiment = 0.10
	WeightMarket    = 0.10
)

// Action ladder thresholds on the consensus signal.
const (
	StrongBuyThreshold  = 0.7
	BuyThreshold        = 0.4
	WeakBuyThreshold    = 0.1
	StrongSellThreshold = -0.6
	SellThreshold       = -0.3
	WeakSellThreshold   = -0.1
)

// Override rule on an explicit AI AVOID.
const (
	avoidRiskAbove       = 6.0
	avoidConfidenceBelow = 4.0
	avoidConfidence      = 0.8
)
