package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/observability"
	"solana-token-trader/internal/ttlcache"
)

// Cache lifetimes.
const (
	DefaultEvaluationTTL = 15 * time.Minute
	maxHistoryPoints     = 5
)

const (
	evaluationSystem = "You are a cryptocurrency analyst specializing in Solana tokens. Your response must be valid JSON only."
	marketSystem     = "You are a cryptocurrency market analyst specializing in market trends and environment analysis. Your response must be valid JSON only."
)

// Options configures Evaluator.
type Options struct {
	Completer *Completer // nil disables the model; every call returns the default
	Cache     *ttlcache.Layered[domain.AIEvaluation]
	TTL       time.Duration
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Evaluator produces AI evaluations of tokens and of the market.
// It never returns an error: failures yield conservative defaults.
type Evaluator struct {
	completer *Completer
	cache     *ttlcache.Layered[domain.AIEvaluation]
	ttl       time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(opts Options) *Evaluator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultEvaluationTTL
	}
	if opts.Cache == nil {
		opts.Cache = ttlcache.Local[domain.AIEvaluation](ttlcache.WithName("ai"), ttlcache.WithClock(opts.Now))
	}
	return &Evaluator{
		completer: opts.Completer,
		cache:     opts.Cache,
		ttl:       opts.TTL,
		logger:    opts.Logger.With().Str("component", "ai").Logger(),
		now:       opts.Now,
	}
}

type pricePrediction struct {
	Direction  string  `json:"direction"`
	Confidence float64 `json:"confidence"`
}

type keyFactor struct {
	Factor     string `json:"factor"`
	Impact     string `json:"impact"`
	Importance string `json:"importance"`
}

type evaluationPayload struct {
	AIConfidence    *float64 `json:"ai_confidence"`
	RiskScore       *float64 `json:"risk_score"`
	Recommendation  string   `json:"recommendation"`
	PricePrediction struct {
		ShortTerm  *pricePrediction `json:"short_term"`
		MediumTerm *pricePrediction `json:"medium_term"`
	} `json:"price_prediction"`
	KeyFactors        []keyFactor `json:"key_factors"`
	TradingInsights   string      `json:"trading_insights"`
	ConfidenceReasons []string    `json:"confidence_reasons"`
	RiskReasons       []string    `json:"risk_reasons"`
}

// Evaluate returns the cached or fresh evaluation of token.
func (e *Evaluator) Evaluate(ctx context.Context, token *domain.TokenSnapshot, market *domain.MarketContext, history []domain.PricePoint) domain.AIEvaluation {
	now := e.now()
	if token == nil {
		return domain.DefaultAIEvaluation("", now)
	}
	if cached, ok := e.cache.Get(ctx, token.Address); ok {
		return cached
	}
	log := e.logger.With().Str("token", token.Address).Str("symbol", token.Symbol).Logger()

	if e.completer == nil {
		return domain.DefaultAIEvaluation(token.Address, now)
	}

	var payload evaluationPayload
	prompt := evaluationPrompt(token, market, history, now)
	if err := e.completer.CompleteJSON(ctx, "evaluate_token", evaluationSystem, prompt, 0.2, &payload); err != nil {
		log.Warn().Err(err).Msg("AI evaluation failed, using default")
		observability.RecordProviderDefault(ProviderOpenAI)
		return domain.DefaultAIEvaluation(token.Address, now)
	}

	eval := payload.toEvaluation(token.Address, now)
	if string(eval.Recommendation) != strings.ToUpper(strings.TrimSpace(payload.Recommendation)) {
		log.Warn().Str("recommendation", payload.Recommendation).Msg("invalid recommendation, defaulting to HOLD")
	}
	e.cache.Put(ctx, token.Address, eval, e.ttl)

	log.Debug().
		Float64("confidence", eval.AIConfidence).
		Float64("risk", eval.RiskScore).
		Str("recommendation", string(eval.Recommendation)).
		Msg("token evaluated")
	return eval
}

func (p *evaluationPayload) toEvaluation(address string, now time.Time) domain.AIEvaluation {
	confidence, risk := 5.0, 5.0
	if p.AIConfidence != nil {
		confidence = *p.AIConfidence
	}
	if p.RiskScore != nil {
		risk = *p.RiskScore
	}
	eval := domain.NewAIEvaluation(address, confidence, risk, domain.Recommendation(p.Recommendation), now)

	eval.PricePrediction = formatPrediction(p.PricePrediction.ShortTerm, p.PricePrediction.MediumTerm)
	for _, f := range p.KeyFactors {
		if f.Factor == "" {
			continue
		}
		eval.KeyFactors = append(eval.KeyFactors, fmt.Sprintf("%s (%s, %s)", f.Factor, orDefault(f.Impact, "neutral"), orDefault(f.Importance, "medium")))
	}
	if p.TradingInsights != "" {
		eval.TradingInsights = []string{p.TradingInsights}
	}
	eval.ConfidenceReasons = p.ConfidenceReasons
	eval.RiskReasons = p.RiskReasons
	return eval
}

func formatPrediction(short, medium *pricePrediction) string {
	if short == nil && medium == nil {
		return "neutral"
	}
	var parts []string
	if short != nil {
		parts = append(parts, fmt.Sprintf("short term %s (%.2f)", orDefault(short.Direction, "neutral"), short.Confidence))
	}
	if medium != nil {
		parts = append(parts, fmt.Sprintf("medium term %s (%.2f)", orDefault(medium.Direction, "neutral"), medium.Confidence))
	}
	return strings.Join(parts, ", ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// MarketData is the market-wide input for MarketContext. Zero fields are
// replaced with rough placeholders so the model is not misled by zeros.
type MarketData struct {
	SOLPrice         float64
	DefiTVL          float64
	SOLVolume24h     float64
	NewTokenCount24h int
}

type marketPayload struct {
	MarketSentiment      string   `json:"market_sentiment"`
	SolanaOutlook        string   `json:"solana_outlook"`
	RiskLevel            string   `json:"risk_level"`
	LiquidityConditions  string   `json:"liquidity_conditions"`
	KeyTrends            []string `json:"key_trends"`
	TradingOpportunities string   `json:"trading_opportunities"`
	MarketSummary        string   `json:"market_summary"`
}

// MarketContext analyses market-wide conditions. Failures return a neutral context.
func (e *Evaluator) MarketContext(ctx context.Context, data MarketData) domain.MarketContext {
	now := e.now()
	neutral := domain.NewMarketContext("", "", "", now)
	neutral.Summary = "market analysis unavailable"

	if e.completer == nil {
		return neutral
	}

	var payload marketPayload
	if err := e.completer.CompleteJSON(ctx, "market_analysis", marketSystem, marketPrompt(data, now), 0.3, &payload); err != nil {
		e.logger.Warn().Err(err).Msg("market analysis failed, using neutral context")
		observability.RecordProviderDefault(ProviderOpenAI)
		return neutral
	}

	mc := domain.NewMarketContext(payload.MarketSentiment, payload.SolanaOutlook, payload.RiskLevel, now)
	mc.Summary = payload.MarketSummary
	e.logger.Info().
		Str("sentiment", string(mc.MarketSentiment)).
		Str("outlook", string(mc.SolanaOutlook)).
		Str("risk", string(mc.RiskLevel)).
		Msg("market context updated")
	return mc
}

// Cache exposes the evaluation cache for maintenance.
func (e *Evaluator) Cache() *ttlcache.Layered[domain.AIEvaluation] {
	return e.cache
}
