package domain

import (
	"strings"
	"time"
)

// Recommendation is the qualitative verdict of the AI evaluator.
type Recommendation string

// Recommendations
const (
	RecommendationBuy   Recommendation = "BUY"
	RecommendationHold  Recommendation = "HOLD"
	RecommendationAvoid Recommendation = "AVOID"
)

// ParseRecommendation normalises s. Unknown values map to HOLD.
func ParseRecommendation(s string) Recommendation {
	switch Recommendation(strings.ToUpper(strings.TrimSpace(s))) {
	case RecommendationBuy:
		return RecommendationBuy
	case RecommendationAvoid:
		return RecommendationAvoid
	default:
		return RecommendationHold
	}
}

// AIEvaluation is the qualitative token evaluation supplied by the AI collaborator.
// Corresponds to ai_analyses table in PostgreSQL.
type AIEvaluation struct {
	TokenAddress      string         // mint address
	AIConfidence      float64        // [0,10]
	RiskScore         float64        // [0,10]
	Recommendation    Recommendation // BUY | HOLD | AVOID
	PricePrediction   string         // free-form outlook
	KeyFactors        []string       // main drivers
	TradingInsights   []string       // execution notes
	ConfidenceReasons []string       // reasons supporting confidence
	RiskReasons       []string       // reasons supporting risk
	Default           bool           // true when the conservative default was substituted
	EvaluatedAt       time.Time      // evaluation time
}

// NewAIEvaluation builds an evaluation with scores clamped to [0,10].
func NewAIEvaluation(address string, confidence, risk float64, rec Recommendation, at time.Time) AIEvaluation {
	return AIEvaluation{
		TokenAddress:   address,
		AIConfidence:   Clamp(confidence, 0, 10),
		RiskScore:      Clamp(risk, 0, 10),
		Recommendation: ParseRecommendation(string(rec)),
		EvaluatedAt:    at,
	}
}

// DefaultAIEvaluation is the conservative evaluation used when the AI collaborator fails.
func DefaultAIEvaluation(address string, at time.Time) AIEvaluation {
	e := NewAIEvaluation(address, 5, 5, RecommendationHold, at)
	e.PricePrediction = "neutral"
	e.Default = true
	return e
}

// EngagementLevel describes social activity around a token.
type EngagementLevel string

// Engagement levels
const (
	EngagementLow    EngagementLevel = "low"
	EngagementMedium EngagementLevel = "medium"
	EngagementHigh   EngagementLevel = "high"
)

// ParseEngagement normalises s. Unknown values map to low.
func ParseEngagement(s string) EngagementLevel {
	switch EngagementLevel(strings.ToLower(strings.TrimSpace(s))) {
	case EngagementHigh:
		return EngagementHigh
	case EngagementMedium:
		return EngagementMedium
	default:
		return EngagementLow
	}
}

// SentimentResult is the social sentiment supplied by the sentiment collaborator.
type SentimentResult struct {
	Score          float64         // [-1,1]
	Label          string          // "bullish" | "neutral" | "bearish"
	Confidence     float64         // [0,1]
	BullishSignals []string        // positive observations
	BearishSignals []string        // negative observations
	KeyThemes      []string        // recurring topics
	Engagement     EngagementLevel // low | medium | high
	Summary        string          // one-line summary
	SampleSize     int             // number of posts analysed
	AnalyzedAt     time.Time       // analysis time
}

// NewSentimentResult builds a result with bounded fields clamped.
func NewSentimentResult(score, confidence float64, engagement EngagementLevel, at time.Time) SentimentResult {
	score = ClampSigned(score)
	label := "neutral"
	switch {
	case score > 0.2:
		label = "bullish"
	case score < -0.2:
		label = "bearish"
	}
	return SentimentResult{
		Score:      score,
		Label:      label,
		Confidence: ClampUnit(confidence),
		Engagement: ParseEngagement(string(engagement)),
		AnalyzedAt: at,
	}
}

// NeutralSentiment is returned when no sentiment data is available.
func NeutralSentiment(at time.Time) SentimentResult {
	r := NewSentimentResult(0, 0.5, EngagementLow, at)
	r.Summary = "no sentiment data available"
	return r
}

// MarketSentiment is the broad crypto market mood.
type MarketSentiment string

// Market sentiments
const (
	MarketBullish MarketSentiment = "bullish"
	MarketNeutral MarketSentiment = "neutral"
	MarketBearish MarketSentiment = "bearish"
)

// Outlook is the Solana ecosystem outlook.
type Outlook string

// Outlooks
const (
	OutlookPositive Outlook = "positive"
	OutlookNeutral  Outlook = "neutral"
	OutlookNegative Outlook = "negative"
)

// MarketRisk is the market-wide risk level.
type MarketRisk string

// Market risk levels
const (
	MarketRiskLow      MarketRisk = "low"
	MarketRiskModerate MarketRisk = "moderate"
	MarketRiskHigh     MarketRisk = "high"
	MarketRiskExtreme  MarketRisk = "extreme"
)

// MarketContext is shared read-only across all tokens in a cycle.
type MarketContext struct {
	MarketSentiment MarketSentiment
	SolanaOutlook   Outlook
	RiskLevel       MarketRisk
	Summary         string
	UpdatedAt       time.Time
}

// NewMarketContext normalises raw enum strings; unknown values map to the neutral member.
func NewMarketContext(sentiment, outlook, risk string, at time.Time) MarketContext {
	mc := MarketContext{
		MarketSentiment: MarketNeutral,
		SolanaOutlook:   OutlookNeutral,
		RiskLevel:       MarketRiskModerate,
		UpdatedAt:       at,
	}
	switch MarketSentiment(strings.ToLower(strings.TrimSpace(sentiment))) {
	case MarketBullish:
		mc.MarketSentiment = MarketBullish
	case MarketBearish:
		mc.MarketSentiment = MarketBearish
	}
	switch Outlook(strings.ToLower(strings.TrimSpace(outlook))) {
	case OutlookPositive:
		mc.SolanaOutlook = OutlookPositive
	case OutlookNegative:
		mc.SolanaOutlook = OutlookNegative
	}
	switch MarketRisk(strings.ToLower(strings.TrimSpace(risk))) {
	case MarketRiskLow:
		mc.RiskLevel = MarketRiskLow
	case MarketRiskHigh:
		mc.RiskLevel = MarketRiskHigh
	case MarketRiskExtreme:
		mc.RiskLevel = MarketRiskExtreme
	}
	return mc
}
