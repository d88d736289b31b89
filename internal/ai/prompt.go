package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"solana-token-trader/internal/domain"
)

func evaluationPrompt(token *domain.TokenSnapshot, market *domain.MarketContext, history []domain.PricePoint, now time.Time) string {
	info := map[string]interface{}{
		"name":       token.Name,
		"symbol":     token.Symbol,
		"address":    token.Address,
		"liquidity":  token.LiquidityUSD,
		"volume_24h": token.Volume24hUSD,
		"price_usd":  token.PriceUSD,
		"market_cap": token.MarketCapUSD,
		"holders":    token.Holders,
	}
	if age, ok := token.AgeHours(now); ok {
		info["listing_time"] = token.ListedAt.UTC().Format(time.RFC3339)
		info["age_minutes"] = int(age * 60)
	}

	var sb strings.Builder
	sb.WriteString("Analyze the following Solana token and provide a detailed evaluation in JSON format.\n\n")
	sb.WriteString("Token Data:\n")
	sb.WriteString(indentJSON(info))
	sb.WriteString("\n\n")

	if len(history) > 0 {
		if len(history) > maxHistoryPoints {
			history = history[len(history)-maxHistoryPoints:]
		}
		points := make([]map[string]interface{}, len(history))
		for i, p := range history {
			points[i] = map[string]interface{}{
				"timestamp": p.Timestamp.UTC().Format(time.RFC3339),
				"price_usd": p.PriceUSD,
			}
		}
		sb.WriteString("Token Price History:\n")
		sb.WriteString(indentJSON(points))
		sb.WriteString("\n\n")
	}

	if market != nil {
		sb.WriteString("Market Context:\n")
		sb.WriteString(indentJSON(map[string]string{
			"market_sentiment": string(market.MarketSentiment),
			"solana_outlook":   string(market.SolanaOutlook),
			"risk_level":       string(market.RiskLevel),
			"summary":          market.Summary,
		}))
		sb.WriteString("\n\n")
	}

	sb.WriteString(`Based on this information, provide a comprehensive analysis considering:
1. Liquidity depth and stability
2. Trading volume and trends
3. Price action and volatility
4. Market cap and token valuation
5. Holder distribution (if available)
6. Token age and maturity
7. Current market environment

Return a JSON object with the following structure:
{
  "ai_confidence": <float 0-10, higher means more promising>,
  "risk_score": <float 0-10, lower means less risk>,
  "recommendation": <"BUY", "HOLD", or "AVOID">,
  "price_prediction": {
    "short_term": {"direction": <"bullish", "neutral", or "bearish">, "confidence": <float 0-1>},
    "medium_term": {"direction": <"bullish", "neutral", or "bearish">, "confidence": <float 0-1>}
  },
  "key_factors": [{"factor": <text>, "impact": <"bullish", "neutral", or "bearish">, "importance": <"high", "medium", or "low">}],
  "trading_insights": <string with specific trading guidance>,
  "confidence_reasons": [<reasons for the confidence score>],
  "risk_reasons": [<reasons for the risk score>]
}
`)
	return sb.String()
}

func marketPrompt(data MarketData, now time.Time) string {
	if data.SOLPrice <= 0 {
		data.SOLPrice = 100
	}
	if data.DefiTVL <= 0 {
		data.DefiTVL = 2_000_000_000
	}
	if data.SOLVolume24h <= 0 {
		data.SOLVolume24h = 500_000_000
	}
	if data.NewTokenCount24h <= 0 {
		data.NewTokenCount24h = 10
	}

	payload := map[string]interface{}{
		"timestamp": now.UTC().Format(time.RFC3339),
		"sol_price": data.SOLPrice,
		"global_metrics": map[string]interface{}{
			"total_solana_defi_tvl": data.DefiTVL,
			"sol_24h_volume":        data.SOLVolume24h,
			"new_token_count_24h":   data.NewTokenCount24h,
		},
	}

	return fmt.Sprintf(`Analyze the following cryptocurrency market data and provide a high-level market analysis.

Market Data:
%s

Return your analysis as a JSON object with these exact fields:
{
  "market_sentiment": <"bullish", "neutral", or "bearish">,
  "solana_outlook": <"positive", "neutral", or "negative">,
  "risk_level": <"low", "moderate", "high", or "extreme">,
  "liquidity_conditions": <"abundant", "adequate", "tight", or "scarce">,
  "key_trends": [<current market trends>],
  "trading_opportunities": <"abundant", "selective", "limited", or "avoid">,
  "market_summary": <concise overall market summary>
}
`, indentJSON(payload))
}

func indentJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
