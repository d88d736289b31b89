package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"solana-token-trader/internal/config"
	"solana-token-trader/internal/decision"
	"solana-token-trader/internal/logging"
	"solana-token-trader/internal/orchestrator"
	"solana-token-trader/internal/solana"
)

var assessCmd = &cobra.Command{
	Use:   "assess <mint address>",
	Short: "Assess one token without trading",
	Long: `Assess fetches the token, runs the risk gates and, when they pass, the AI,
sentiment and decision steps. Nothing is persisted or executed.

Examples:
  trader assess So11111111111111111111111111111111111111112
  trader assess <mint> --market --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runAssess,
}

var (
	assessFormat  string
	assessMarket  bool
	assessTimeout time.Duration
)

func init() {
	assessCmd.Flags().StringVar(&assessFormat, "format", "markdown", "output format (markdown, json)")
	assessCmd.Flags().BoolVar(&assessMarket, "market", false, "refresh the market context first")
	assessCmd.Flags().DurationVar(&assessTimeout, "timeout", 2*time.Minute, "overall timeout")
}

func runAssess(cmd *cobra.Command, args []string) error {
	address := strings.TrimSpace(args[0])
	if err := solana.ValidateAddress(address); err != nil {
		return err
	}
	if assessFormat != "markdown" && assessFormat != "json" {
		return fmt.Errorf("unknown format %q", assessFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Logs go to stderr so stdout carries only the report.
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithTimeout(cmd.Context(), assessTimeout)
	defer cancel()

	a, err := buildApp(ctx, config.NewHolder(cfg), logger, buildOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if assessMarket {
		a.bot.RefreshMarket(ctx)
	}
	eval, err := a.bot.Evaluate(ctx, address)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if assessFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(eval)
	}
	writeAssessment(out, eval)
	return nil
}

// writeAssessment prints the risk report followed by the decision.
func writeAssessment(w io.Writer, e *orchestrator.Evaluation) {
	t, r := e.Token, e.Risk
	label := t.Address
	if t.Symbol != "" {
		label = fmt.Sprintf("%s (%s)", t.Symbol, t.Address)
	}
	fmt.Fprintf(w, "# Risk Assessment: %s\n\n", label)
	fmt.Fprintf(w, "| Field | Value |\n|-------|-------|\n")
	fmt.Fprintf(w, "| Passes | %t |\n", r.Passes)
	fmt.Fprintf(w, "| Reason | %s |\n", r.Reason)
	fmt.Fprintf(w, "| Risk Score | %d (%s) |\n", r.RiskScore, r.RiskLevel)
	fmt.Fprintf(w, "| Liquidity | $%.0f |\n", r.LiquidityUSD)
	fmt.Fprintf(w, "| Holders | %d |\n", r.HoldersCount)
	fmt.Fprintf(w, "| Top 10 Concentration | %.1f%% |\n", r.TopHoldersConcentration)
	fmt.Fprintf(w, "| Max Tax | %.1f%% |\n", r.MaxTax)
	if r.AgeKnown {
		fmt.Fprintf(w, "| Age | %.1fh |\n", r.AgeHours)
	}
	if r.SafetySource != "" {
		fmt.Fprintf(w, "| Safety Source | %s |\n", r.SafetySource)
	}
	fmt.Fprintln(w)

	names := make([]string, 0, len(r.Checks))
	for name := range r.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(w, "## Checks\n\n")
	for _, name := range names {
		c := r.Checks[name]
		fmt.Fprintf(w, "- %s: %s (%s)\n", name, c.Status, c.Details)
	}
	fmt.Fprintln(w)

	if e.Decision == nil {
		fmt.Fprintln(w, "Token rejected, no decision made.")
		return
	}
	signals := e.Signals
	fmt.Fprint(w, decision.RenderMarkdown(e.Decision, &signals))
}
