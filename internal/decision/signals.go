package decision

import "solana-token-trader/internal/domain"

// AISignal maps an AI evaluation to [-1,1]. Higher AI risk damps the signal.
func AISignal(ai *domain.AIEvaluation) float64 {
	if ai == nil {
		return 0
	}
	normalized := (ai.AIConfidence - 5) / 5

	var modifier float64
	switch ai.Recommendation {
	case domain.RecommendationBuy:
		modifier = 1
	case domain.RecommendationAvoid:
		modifier = -1
	}

	riskAdjustment := 1 - ai.RiskScore/10
	return domain.ClampSigned((normalized*0.4 + modifier*0.6) * riskAdjustment)
}

// RiskSignal maps a risk assessment to [-1,1]. A failed assessment is -1.
func RiskSignal(r *domain.RiskAssessment) float64 {
	if r == nil || !r.Passes {
		return -1
	}
	signal := 1 - float64(r.RiskScore)/50
	switch r.RiskLevel {
	case domain.RiskLevelExtreme:
		signal -= 0.3
	case domain.RiskLevelHigh:
		signal -= 0.15
	}
	return domain.ClampSigned(signal)
}

// SentimentSignal is the sentiment score weighted by its confidence.
func SentimentSignal(s *domain.SentimentResult) float64 {
	if s == nil {
		return 0
	}
	return domain.ClampSigned(s.Score * s.Confidence)
}

// MarketSignal sums the market mood, Solana outlook and market risk modifiers.
// A nil context is neutral.
func MarketSignal(m *domain.MarketContext) float64 {
	if m == nil {
		return 0
	}
	var signal float64
	switch m.MarketSentiment {
	case domain.MarketBullish:
		signal += 0.8
	case domain.MarketBearish:
		signal -= 0.8
	}
	switch m.SolanaOutlook {
	case domain.OutlookPositive:
		signal += 0.5
	case domain.OutlookNegative:
		signal -= 0.5
	}
	switch m.RiskLevel {
	case domain.MarketRiskLow:
		signal += 0.3
	case domain.MarketRiskHigh:
		signal -= 0.3
	case domain.MarketRiskExtreme:
		signal -= 0.6
	}
	return domain.ClampSigned(signal)
}

// Consensus is the weighted sum of the four signals.
func Consensus(ai, risk, sentiment, market float64) float64 {
	return ai*WeightAI + risk*WeightRisk + sentiment*WeightSentiment + market*WeightMarket
}

// ComputeSignals evaluates every signal of in.
func ComputeSignals(in Input) Signals {
	s := Signals{
		AI:        AISignal(in.AI),
		Risk:      RiskSignal(in.Risk),
		Sentiment: SentimentSignal(in.Sentiment),
		Market:    MarketSignal(in.Market),
	}
	s.Consensus = Consensus(s.AI, s.Risk, s.Sentiment, s.Market)
	return s
}
