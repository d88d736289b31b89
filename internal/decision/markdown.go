package decision

import (
	"fmt"
	"strings"

	"solana-token-trader/internal/domain"
)

// RenderMarkdown renders a decision and, when available, its signals as Markdown.
func RenderMarkdown(d *domain.TradingDecision, signals *Signals) string {
	var sb strings.Builder

	label := d.TokenAddress
	if d.TokenSymbol != "" {
		label = fmt.Sprintf("%s (%s)", d.TokenSymbol, d.TokenAddress)
	}
	sb.WriteString(fmt.Sprintf("# Trading Decision: %s\n\n", label))
	sb.WriteString(fmt.Sprintf("## Action: %s\n\n", d.Action))

	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Confidence | %.2f |\n", d.Confidence))
	sb.WriteString(fmt.Sprintf("| Position Size | %.4f SOL |\n", d.PositionSize))
	if d.PriceTarget != nil {
		sb.WriteString(fmt.Sprintf("| Price Target | $%.8f |\n", *d.PriceTarget))
	}
	if d.StopLoss != nil {
		sb.WriteString(fmt.Sprintf("| Stop Loss | $%.8f |\n", *d.StopLoss))
	}
	sb.WriteString(fmt.Sprintf("| Strategy | %s |\n", d.StrategyName))
	sb.WriteString(fmt.Sprintf("| Time | %s |\n", d.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC")))
	sb.WriteString("\n")

	if signals != nil {
		sb.WriteString("## Signals\n\n")
		sb.WriteString("| Signal | Value | Weight |\n")
		sb.WriteString("|--------|-------|--------|\n")
		sb.WriteString(fmt.Sprintf("| AI | %+.3f | %.2f |\n", signals.AI, WeightAI))
		sb.WriteString(fmt.Sprintf("| Risk | %+.3f | %.2f |\n", signals.Risk, WeightRisk))
		sb.WriteString(fmt.Sprintf("| Sentiment | %+.3f | %.2f |\n", signals.Sentiment, WeightSentiment))
		sb.WriteString(fmt.Sprintf("| Market | %+.3f | %.2f |\n", signals.Market, WeightMarket))
		sb.WriteString(fmt.Sprintf("| **Consensus** | **%+.3f** | |\n", signals.Consensus))
		sb.WriteString("\n")
	}

	if len(d.Reasons) > 0 {
		sb.WriteString("## Reasons\n\n")
		for _, r := range d.Reasons {
			sb.WriteString(fmt.Sprintf("- %s\n", r))
		}
	}

	return sb.String()
}
