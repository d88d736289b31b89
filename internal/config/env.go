package config

import (
	"fmt"
	"strconv"
	"strings"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// applyEnv overrides cfg from environment variables. Unparseable values are errors.
func applyEnv(cfg *Config, lookup LookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("ENVIRONMENT", &cfg.Environment)

	e.float("LIQUIDITY_THRESHOLD", &cfg.Trading.LiquidityThreshold)
	e.float("TRADE_SIZE", &cfg.Trading.TradeSizeSOL)
	e.int("MAX_DAILY_TRADES", &cfg.Trading.MaxDailyTrades)
	e.int("MAX_SLIPPAGE_BPS", &cfg.Trading.MaxSlippageBps)
	e.bool("ENABLE_AUTO_TRADING", &cfg.Trading.AutoTrading)
	e.bool("FORCE_TRADING", &cfg.Trading.ForceTrading)
	e.float("MAX_PORTFOLIO_RISK", &cfg.Trading.MaxPortfolioRiskPct)
	e.float("MAX_POSITION_SIZE", &cfg.Trading.MaxPositionSOL)
	e.str("WALLET_PRIVATE_KEY", &cfg.Trading.WalletPrivateKey)
	e.bool("PAPER_TRADING", &cfg.Trading.PaperTrading)
	e.float("PAPER_BALANCE", &cfg.Trading.PaperBalanceSOL)

	e.str("SOLANA_RPC_URL", &cfg.Network.RPCURL)
	e.list("SOLANA_FALLBACK_RPC_URLS", &cfg.Network.FallbackRPCURLs)

	e.str("LOGGING_LEVEL", &cfg.Logging.Level)
	e.str("LOGGING_FORMAT", &cfg.Logging.Format)

	e.str("OPENAI_API_KEY", &cfg.APIKeys.OpenAI)
	e.str("RUGCHECK_API_KEY", &cfg.APIKeys.RugCheck)
	e.str("BIRDEYE_API_KEY", &cfg.APIKeys.Birdeye)
	e.str("JUPITER_API_KEY", &cfg.APIKeys.Jupiter)
	e.str("TWITTER_BEARER_TOKEN", &cfg.Social.TwitterBearerToken)
	e.str("TELEGRAM_BOT_TOKEN", &cfg.Social.TelegramBotToken)
	e.str("TELEGRAM_CHAT_ID", &cfg.Social.TelegramChatID)

	e.str("STORAGE_MODE", &cfg.Storage.Mode)
	e.str("POSTGRES_DSN", &cfg.Storage.PostgresDSN)
	e.str("CLICKHOUSE_DSN", &cfg.Storage.ClickHouseDSN)
	e.str("REDIS_ADDR", &cfg.Storage.RedisAddr)

	e.str("SAFETY_PROVIDER", &cfg.Providers.Safety)
	e.str("HTTP_ADDR", &cfg.HTTP.Addr)

	return e.err
}

// envReader records the first parse error and skips unset or empty variables.
type envReader struct {
	lookup LookupFunc
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) fail(key, value string, err error) {
	e.err = fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, value, err)
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) float(key string, dst *float64) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = f
}

func (e *envReader) int(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = n
}

// bool accepts true/false/1/0 and yes/no.
func (e *envReader) bool(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	switch strings.ToLower(v) {
	case "yes", "y", "on":
		*dst = true
		return
	case "no", "n", "off":
		*dst = false
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = b
}

func (e *envReader) list(key string, dst *[]string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}
