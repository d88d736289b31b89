package notify

import (
	"fmt"
	"strings"
	"time"

	"solana-token-trader/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05 UTC"

// maxReasons bounds the reasons listed in a trade alert.
const maxReasons = 3

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// Escape makes free text safe inside a Markdown message.
func Escape(s string) string {
	return markdownEscaper.Replace(s)
}

// Trade describes an executed trade for TradeAlert.
type Trade struct {
	Action      domain.Action
	Token       *domain.TokenSnapshot
	AmountSOL   float64
	TokenAmount float64
	PriceUSD    float64
	Reasons     []string
	Paper       bool
	ExecutedAt  time.Time
}

// TradeAlert formats an executed entry or exit.
func TradeAlert(t Trade) string {
	var sb strings.Builder

	name, symbol, address := tokenIdentity(t.Token)
	mode := ""
	if t.Paper {
		mode = " (paper)"
	}
	sb.WriteString(fmt.Sprintf("%s *%s %s*%s\n\n", actionEmoji(t.Action), t.Action, Escape(symbol), mode))
	sb.WriteString(fmt.Sprintf("*Token:* %s (%s)\n", Escape(name), Escape(symbol)))
	if t.Action == domain.ActionBuy {
		sb.WriteString(fmt.Sprintf("*Amount:* %.3f SOL\n", t.AmountSOL))
	} else {
		sb.WriteString(fmt.Sprintf("*Amount:* %s tokens (%.4f SOL)\n", formatAmount(t.TokenAmount), t.AmountSOL))
	}
	sb.WriteString(fmt.Sprintf("*Price:* $%.8f\n", t.PriceUSD))
	sb.WriteString(fmt.Sprintf("*Time:* %s\n", t.ExecutedAt.UTC().Format(timeLayout)))

	if len(t.Reasons) > 0 {
		sb.WriteString("\n*Reasons:*\n")
		for i, r := range t.Reasons {
			if i == maxReasons {
				break
			}
			sb.WriteString("- " + Escape(r) + "\n")
		}
	}
	sb.WriteString(fmt.Sprintf("\n*Address:* `%s`", shortAddress(address)))
	return sb.String()
}

// NewTokenAlert formats a newly evaluated token with its AI and risk results.
func NewTokenAlert(token *domain.TokenSnapshot, ai domain.AIEvaluation, risk *domain.RiskAssessment) string {
	var sb strings.Builder

	name, symbol, address := tokenIdentity(token)
	sb.WriteString("🔎 *New Token Detected*\n\n")
	sb.WriteString(fmt.Sprintf("*Token:* %s (%s)\n", Escape(name), Escape(symbol)))
	if token != nil {
		sb.WriteString(fmt.Sprintf("*Price:* $%.8f\n", token.PriceUSD))
		sb.WriteString(fmt.Sprintf("*Liquidity:* $%s\n", formatUSD(token.LiquidityUSD)))
		sb.WriteString(fmt.Sprintf("*24h Volume:* $%s\n", formatUSD(token.Volume24hUSD)))
	}

	sb.WriteString("\n*AI Evaluation:*\n")
	if ai.Default {
		sb.WriteString("_unavailable, default used_\n")
	}
	sb.WriteString(fmt.Sprintf("Confidence: %.1f/10\n", ai.AIConfidence))
	sb.WriteString(fmt.Sprintf("Risk Score: %.1f/10\n", ai.RiskScore))
	sb.WriteString(fmt.Sprintf("Recommendation: %s %s\n", recommendationEmoji(ai.Recommendation), ai.Recommendation))

	if risk != nil {
		passed := "No"
		if risk.Passes {
			passed = "Yes"
		}
		sb.WriteString("\n*Risk Assessment:*\n")
		sb.WriteString(fmt.Sprintf("Risk Level: %s (%d/100)\n", risk.RiskLevel, risk.RiskScore))
		sb.WriteString(fmt.Sprintf("Passed Filters: %s\n", passed))
		if !risk.Passes && risk.Reason != "" {
			sb.WriteString(fmt.Sprintf("Reason: %s\n", Escape(risk.Reason)))
		}
	}

	sb.WriteString(fmt.Sprintf("\n*Address:* `%s`", address))
	return sb.String()
}

// Status is the bot state summarised by StatusReport.
type Status struct {
	Mode           string // paper | live
	TradingEnabled bool
	Uptime         time.Duration
	BalanceSOL     float64
	OpenPositions  int
	InvestedSOL    float64
	TradesToday    int
	TokensAnalyzed int // today
	LastCycle      time.Time
	At             time.Time
}

// StatusReport formats the periodic status message.
func StatusReport(s Status) string {
	var sb strings.Builder

	trading := "disabled"
	if s.TradingEnabled {
		trading = "enabled"
	}
	sb.WriteString("🤖 *Bot Status*\n\n")
	sb.WriteString(fmt.Sprintf("*Mode:* %s, trading %s\n", s.Mode, trading))
	sb.WriteString(fmt.Sprintf("*Uptime:* %s\n", s.Uptime.Truncate(time.Minute)))
	sb.WriteString(fmt.Sprintf("*Balance:* %.4f SOL\n", s.BalanceSOL))
	sb.WriteString(fmt.Sprintf("*Open Positions:* %d (%.4f SOL)\n", s.OpenPositions, s.InvestedSOL))
	sb.WriteString(fmt.Sprintf("*Trades Today:* %d\n", s.TradesToday))
	sb.WriteString(fmt.Sprintf("*Tokens Analyzed Today:* %d\n", s.TokensAnalyzed))
	if !s.LastCycle.IsZero() {
		sb.WriteString(fmt.Sprintf("*Last Cycle:* %s\n", s.LastCycle.UTC().Format(timeLayout)))
	}
	sb.WriteString(fmt.Sprintf("*Time:* %s", s.At.UTC().Format(timeLayout)))
	return sb.String()
}

// PerformanceReport formats one section per window, shortest first, followed
// by the open-position summary and best performer of the longest window.
func PerformanceReport(windows []domain.PerformanceStats) string {
	var sb strings.Builder
	sb.WriteString("📊 *Performance Report*\n\n")

	if len(windows) == 0 {
		sb.WriteString("No trading data yet.")
		return sb.String()
	}

	for _, w := range windows {
		sb.WriteString(fmt.Sprintf("📅 *%s Performance:*\n", windowLabel(w.PeriodDays)))
		sb.WriteString(fmt.Sprintf("Trades: %d\n", w.TotalTrades))
		sb.WriteString(fmt.Sprintf("Profit/Loss: %.4f SOL\n", w.TotalProfitLoss))
		sb.WriteString(fmt.Sprintf("Win Rate: %.1f%%\n\n", w.WinRate))
	}

	last := windows[len(windows)-1]
	sb.WriteString("💼 *Current Status:*\n")
	sb.WriteString(fmt.Sprintf("Open Positions: %d\n", last.OpenPositions))
	sb.WriteString(fmt.Sprintf("Total Invested: %.4f SOL", last.TotalInvestedOpen))

	if last.BestTokenAddress != "" {
		symbol := last.BestTokenSymbol
		if symbol == "" {
			symbol = shortAddress(last.BestTokenAddress)
		}
		sb.WriteString("\n\n🏆 *Top Performer:* " + Escape(symbol) + "\n")
		sb.WriteString(fmt.Sprintf("Profit: %.4f SOL", last.BestTokenProfit))
	}
	return sb.String()
}

// MarketUpdate formats a refreshed market context.
func MarketUpdate(mc domain.MarketContext) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("🌍 *Market Update* %s\n\n", sentimentEmoji(mc.MarketSentiment)))
	sb.WriteString(fmt.Sprintf("*Market Sentiment:* %s\n", capitalize(string(mc.MarketSentiment))))
	sb.WriteString(fmt.Sprintf("*Risk Level:* %s %s\n", marketRiskEmoji(mc.RiskLevel), capitalize(string(mc.RiskLevel))))
	sb.WriteString(fmt.Sprintf("*Solana Outlook:* %s\n", capitalize(string(mc.SolanaOutlook))))
	if mc.Summary != "" {
		sb.WriteString("\n*Summary:*\n" + Escape(mc.Summary) + "\n")
	}
	sb.WriteString(fmt.Sprintf("\n*Time:* %s", mc.UpdatedAt.UTC().Format(timeLayout)))
	return sb.String()
}

// AlertLevel is the severity of a system alert.
type AlertLevel string

// Alert levels
const (
	AlertInfo     AlertLevel = "info"
	AlertWarning  AlertLevel = "warning"
	AlertError    AlertLevel = "error"
	AlertCritical AlertLevel = "critical"
)

// SystemAlert formats an operational message such as startup or shutdown.
func SystemAlert(level AlertLevel, title, details string, at time.Time) string {
	var emoji string
	switch level {
	case AlertWarning:
		emoji = "⚠️"
	case AlertError:
		emoji = "❌"
	case AlertCritical:
		emoji = "🚨"
	default:
		emoji = "ℹ️"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s *System Alert: %s*\n\n", emoji, Escape(title)))
	if details != "" {
		sb.WriteString(Escape(details) + "\n\n")
	}
	sb.WriteString(fmt.Sprintf("*Time:* %s", at.UTC().Format(timeLayout)))
	return sb.String()
}

func tokenIdentity(t *domain.TokenSnapshot) (name, symbol, address string) {
	name, symbol, address = "Unknown", "Unknown", "Unknown"
	if t == nil {
		return
	}
	if t.Name != "" {
		name = t.Name
	}
	if t.Symbol != "" {
		symbol = t.Symbol
	}
	if t.Address != "" {
		address = t.Address
	}
	return
}

func shortAddress(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:8] + "..." + address[len(address)-4:]
}

func actionEmoji(a domain.Action) string {
	switch a {
	case domain.ActionBuy:
		return "🟢"
	case domain.ActionSell:
		return "🔴"
	case domain.ActionTakeProfit:
		return "💰"
	case domain.ActionCutLoss:
		return "✂️"
	case domain.ActionHold:
		return "⏳"
	default:
		return "🔄"
	}
}

func recommendationEmoji(r domain.Recommendation) string {
	switch r {
	case domain.RecommendationBuy:
		return "🟢"
	case domain.RecommendationAvoid:
		return "🔴"
	default:
		return "🟡"
	}
}

func sentimentEmoji(s domain.MarketSentiment) string {
	switch s {
	case domain.MarketBullish:
		return "📈"
	case domain.MarketBearish:
		return "📉"
	default:
		return "➡️"
	}
}

func marketRiskEmoji(r domain.MarketRisk) string {
	switch r {
	case domain.MarketRiskLow:
		return "🟢"
	case domain.MarketRiskHigh:
		return "🟠"
	case domain.MarketRiskExtreme:
		return "🔴"
	default:
		return "🟡"
	}
}

func windowLabel(days int) string {
	switch days {
	case 1:
		return "24-Hour"
	case 0:
		return "All-Time"
	default:
		return fmt.Sprintf("%d-Day", days)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatUSD renders v with thousands separators and no decimals.
func formatUSD(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.4f", v)
}
