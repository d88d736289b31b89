// Package sentiment scores social chatter about a token.
package sentiment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"solana-token-trader/internal/ai"
	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/observability"
	"solana-token-trader/internal/ttlcache"
)

// Defaults.
const (
	DefaultTTL       = 30 * time.Minute
	DefaultMaxTweets = 50
)

const scoringSystem = "You are an expert in cryptocurrency social media sentiment analysis. Your response must be valid JSON only."

// Searcher finds recent posts about a symbol.
type Searcher interface {
	SearchRecent(ctx context.Context, symbol string, max int) ([]Tweet, error)
}

// Options configures Analyzer.
type Options struct {
	Search    Searcher      // nil disables social search
	Completer *ai.Completer // nil disables scoring
	Cache     *ttlcache.Layered[domain.SentimentResult]
	TTL       time.Duration
	MaxTweets int
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Analyzer produces a SentimentResult per token symbol.
type Analyzer struct {
	opts Options
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(opts Options) *Analyzer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxTweets <= 0 {
		opts.MaxTweets = DefaultMaxTweets
	}
	if opts.Cache == nil {
		opts.Cache = ttlcache.Local[domain.SentimentResult](ttlcache.WithName("sentiment"), ttlcache.WithClock(opts.Now))
	}
	opts.Logger = opts.Logger.With().Str("component", "sentiment").Logger()
	return &Analyzer{opts: opts}
}

type scorePayload struct {
	SentimentScore  float64  `json:"sentiment_score"`
	Confidence      float64  `json:"confidence"`
	BullishSignals  []string `json:"bullish_signals"`
	BearishSignals  []string `json:"bearish_signals"`
	KeyThemes       []string `json:"key_themes"`
	EngagementLevel string   `json:"engagement_level"`
	Summary         string   `json:"summary"`
}

// Score returns the sentiment for symbol. Any failure yields a neutral result.
func (a *Analyzer) Score(ctx context.Context, symbol string) domain.SentimentResult {
	now := a.opts.Now()
	symbol = strings.TrimSpace(symbol)
	if symbol == "" || a.opts.Search == nil || a.opts.Completer == nil {
		return domain.NeutralSentiment(now)
	}

	key := strings.ToLower(symbol)
	if cached, ok := a.opts.Cache.Get(ctx, key); ok {
		return cached
	}
	log := a.opts.Logger.With().Str("symbol", symbol).Logger()

	tweets, err := a.opts.Search.SearchRecent(ctx, symbol, a.opts.MaxTweets)
	if err != nil {
		log.Warn().Err(err).Msg("tweet search failed")
		observability.RecordProviderDefault(ProviderTwitter)
		return domain.NeutralSentiment(now)
	}
	if len(tweets) == 0 {
		log.Debug().Msg("no tweets found")
		return domain.NeutralSentiment(now)
	}
	if len(tweets) > a.opts.MaxTweets {
		tweets = tweets[:a.opts.MaxTweets]
	}

	var payload scorePayload
	if err := a.opts.Completer.CompleteJSON(ctx, "score_sentiment", scoringSystem, scoringPrompt(symbol, tweets), 0.3, &payload); err != nil {
		log.Warn().Err(err).Msg("sentiment scoring failed")
		observability.RecordProviderDefault(ai.ProviderOpenAI)
		return domain.NeutralSentiment(now)
	}

	result := domain.NewSentimentResult(payload.SentimentScore, payload.Confidence, domain.EngagementLevel(payload.EngagementLevel), now)
	result.BullishSignals = payload.BullishSignals
	result.BearishSignals = payload.BearishSignals
	result.KeyThemes = payload.KeyThemes
	result.Summary = payload.Summary
	result.SampleSize = len(tweets)

	a.opts.Cache.Put(ctx, key, result, a.opts.TTL)
	log.Debug().Float64("score", result.Score).Str("label", result.Label).Int("tweets", len(tweets)).Msg("sentiment scored")
	return result
}

// Cache exposes the sentiment cache for maintenance.
func (a *Analyzer) Cache() *ttlcache.Layered[domain.SentimentResult] {
	return a.opts.Cache
}

// WeightedScore scales the score by confidence and engagement.
func WeightedScore(r domain.SentimentResult) float64 {
	m := 0.6
	switch r.Engagement {
	case domain.EngagementHigh:
		m = 1.0
	case domain.EngagementMedium:
		m = 0.8
	}
	return r.Score * r.Confidence * m
}

func scoringPrompt(symbol string, tweets []Tweet) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze the sentiment of the following tweets about the cryptocurrency token $%s.\n\n", symbol)
	sb.WriteString("Tweets:\n")
	for i, t := range tweets {
		text := strings.Join(strings.Fields(t.Text), " ")
		fmt.Fprintf(&sb, "%d. [engagement %d] %s\n", i+1, t.Engagement(), text)
	}
	sb.WriteString(`
Return a JSON object with the following structure:
{
  "sentiment_score": <float between -1.0 (extremely bearish) and 1.0 (extremely bullish)>,
  "confidence": <float between 0 and 1>,
  "bullish_signals": [<positive observations>],
  "bearish_signals": [<negative observations>],
  "key_themes": [<recurring topics>],
  "engagement_level": <"high", "medium", or "low">,
  "summary": <one sentence summary>
}
`)
	return sb.String()
}
