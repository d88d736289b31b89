package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-trader/internal/config"
	"solana-token-trader/internal/decision"
	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/execution"
	"solana-token-trader/internal/orchestrator"
	"solana-token-trader/internal/solana/stub"
)

// useFlags points the global flags at a temp config for one test.
func useFlags(t *testing.T, yaml string) {
	t.Helper()
	dir := t.TempDir()
	path := ""
	if yaml != "" {
		path = filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	}
	old := flags
	flags = globalFlags{configPath: path, envFile: filepath.Join(dir, "missing.env")}
	t.Cleanup(func() { flags = old })
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	useFlags(t, "logging:\n  level: debug\n")
	flags.logFormat = "console"

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)

	flags.storage = config.StoragePostgres
	_, err = loadConfig()
	assert.ErrorIs(t, err, config.ErrInvalid, "postgres without a DSN")
}

func TestConfigCommand_MasksSecrets(t *testing.T) {
	useFlags(t, "api_keys:\n  openai: sk-verysecretkey\n")

	var out bytes.Buffer
	configCmd.SetOut(&out)
	t.Cleanup(func() { configCmd.SetOut(nil) })
	require.NoError(t, configCmd.RunE(configCmd, nil))

	assert.Contains(t, out.String(), "paper mode: true")
	assert.Contains(t, out.String(), "sk-v****")
	assert.NotContains(t, out.String(), "verysecretkey")
}

func TestBuildApp_MemoryPaper(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.Safety = config.SafetySimulated
	cfg.Trading.PaperBalanceSOL = 3

	a, err := buildApp(context.Background(), config.NewHolder(cfg), zerolog.Nop(), buildOptions{})
	require.NoError(t, err)
	defer a.Close()

	assert.True(t, a.paper)
	assert.Nil(t, a.rpc, "paper mode has no chain client")
	assert.NotNil(t, a.bot)
	assert.NotNil(t, a.stores.Snapshots)

	st, err := a.bot.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, execution.ModePaper, st.Mode)
	assert.Equal(t, 3.0, st.BalanceSOL)
	assert.False(t, st.TradingEnabled)
}

func TestBuildApp_RejectsBadWalletKey(t *testing.T) {
	cfg := config.Default()
	cfg.Trading.PaperTrading = false
	cfg.Trading.WalletPrivateKey = "not-base58-0OIl"

	_, err := buildApp(context.Background(), config.NewHolder(cfg), zerolog.Nop(), buildOptions{})
	assert.ErrorIs(t, err, execution.ErrInvalidKey)
}

func TestCheckRPC(t *testing.T) {
	rpc := &stub.RPCClient{Slot: 312_000_000}
	slot, err := checkRPC(context.Background(), rpc, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, int64(312_000_000), slot)
}

func TestRetryPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Network.MaxRetries = 5
	cfg.Network.RetryDelay = 500 * time.Millisecond

	p := retryPolicy(cfg)
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, p.InitialDelay)

	cfg.Network.MaxRetries = 0
	assert.Equal(t, 3, retryPolicy(cfg).MaxAttempts)
}

func TestLayered_LocalWithoutRedis(t *testing.T) {
	c := layered[int](nil, "trader", "test", zerolog.Nop())
	c.Put(context.Background(), "k", 7, time.Minute)

	v, ok := c.Get(context.Background(), "k")
	assert.True(t, ok)
	assert.Equal(t, 7, v)
	assert.Equal(t, "test", c.Name())
}

func TestWriteAssessment(t *testing.T) {
	eval := &orchestrator.Evaluation{
		Token: &domain.TokenSnapshot{Address: "Mint111", Symbol: "ABC"},
		Risk: &domain.RiskAssessment{
			Passes:    true,
			Reason:    "all checks passed",
			RiskScore: 25,
			RiskLevel: domain.RiskLevelLow,
			AgeKnown:  true,
			AgeHours:  3,
			Checks: map[string]domain.CheckResult{
				"liquidity": {Status: domain.CheckPassed, Details: "$5000"},
				"blacklist": {Status: domain.CheckPassed, Details: "not listed"},
			},
		},
		Decision: &domain.TradingDecision{TokenAddress: "Mint111", TokenSymbol: "ABC", Action: domain.ActionBuy, Confidence: 0.8},
		Signals:  decision.Signals{Consensus: 0.6},
	}

	var out bytes.Buffer
	writeAssessment(&out, eval)
	s := out.String()

	assert.Contains(t, s, "# Risk Assessment: ABC (Mint111)")
	assert.Contains(t, s, "| Risk Score | 25 (low) |")
	assert.Contains(t, s, "| Age | 3.0h |")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("- blacklist")), bytes.Index(out.Bytes(), []byte("- liquidity")))
	assert.Contains(t, s, "## Action: BUY")

	eval.Decision = nil
	out.Reset()
	writeAssessment(&out, eval)
	assert.Contains(t, out.String(), "Token rejected")
}
