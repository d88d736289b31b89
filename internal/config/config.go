// Package config loads the typed bot configuration.
//
// Values are resolved in order: defaults, YAML file, .env file, environment.
// Components never read Config directly during a decision; they receive
// settings values derived from it at call time.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"solana-token-trader/internal/decision"
	"solana-token-trader/internal/orchestrator"
	"solana-token-trader/internal/risk"
	"solana-token-trader/internal/strategy"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Storage modes
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Safety provider names accepted in providers.safety.
const (
	SafetyRugCheck  = "rugcheck"
	SafetySimulated = "simulated"
)

// EnvironmentProduction is the only environment where auto trading runs without FORCE_TRADING.
const EnvironmentProduction = "production"

// Config is the complete bot configuration.
type Config struct {
	Environment string          `yaml:"environment"`
	Trading     TradingConfig   `yaml:"trading"`
	Risk        RiskConfig      `yaml:"risk"`
	Network     NetworkConfig   `yaml:"network"`
	APIKeys     APIKeys         `yaml:"api_keys"`
	Social      SocialConfig    `yaml:"social"`
	Storage     StorageConfig   `yaml:"storage"`
	Cache       CacheConfig     `yaml:"cache"`
	Schedule    ScheduleConfig  `yaml:"schedule"`
	HTTP        HTTPConfig      `yaml:"http"`
	Logging     LoggingConfig   `yaml:"logging"`
	Providers   ProvidersConfig `yaml:"providers"`
}

// TradingConfig holds position sizing and execution parameters.
type TradingConfig struct {
	LiquidityThreshold  float64       `yaml:"liquidity_threshold"`     // USD
	MaxSlippageBps      int           `yaml:"max_slippage_bps"`        // 50 = 0.5%
	TradeSizeSOL        float64       `yaml:"trade_size"`              // default position size
	MaxDailyTrades      int           `yaml:"max_daily_trades"`        // new entries per UTC day
	TakeProfitPct       float64       `yaml:"take_profit_pct"`         // entry take-profit level
	StopLossPct         float64       `yaml:"emergency_stop_loss_pct"` // entry stop-loss level
	HoldingPeriod       time.Duration `yaml:"holding_period"`          // target holding period for new positions
	AutoTrading         bool          `yaml:"enable_auto_trading"`
	ForceTrading        bool          `yaml:"force_trading"`          // allow auto trading outside production
	MaxPortfolioRiskPct float64       `yaml:"max_portfolio_risk_pct"` // max position as % of portfolio
	MaxPositionSOL      float64       `yaml:"max_position_size"`
	WalletPrivateKey    string        `yaml:"wallet_private_key"` // base58 64-byte secret key
	PaperTrading        bool          `yaml:"paper_trading"`      // simulate fills instead of swapping
	PaperBalanceSOL     float64       `yaml:"paper_balance"`      // starting balance of the paper wallet
}

// RiskConfig holds the risk gate thresholds.
type RiskConfig struct {
	RequireSafetyCheck       bool          `yaml:"require_safety_check"`
	MaxConcentrationPct      float64       `yaml:"max_supply_concentration_pct"`
	MinHolders               int           `yaml:"min_holders"`
	MaxRiskScore             int           `yaml:"max_risk_score"`
	MaxTaxPct                float64       `yaml:"max_tax_pct"`
	YoungTokenAge            time.Duration `yaml:"young_token_age"`
	YoungLiquidityMultiplier float64       `yaml:"young_liquidity_multiplier"`
	Blacklist                []string      `yaml:"blacklisted_tokens"`
	AllowSimulatedFallback   bool          `yaml:"allow_simulated_fallback"`
}

// NetworkConfig holds Solana RPC settings.
type NetworkConfig struct {
	RPCURL          string        `yaml:"rpc_url"`
	FallbackRPCURLs []string      `yaml:"fallback_rpc_urls"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	PriorityFee     int64         `yaml:"priority_fee"` // micro-lamports
	RateLimitRPS    float64       `yaml:"rate_limit_rps"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
}

// APIKeys holds third-party credentials.
type APIKeys struct {
	OpenAI   string `yaml:"openai"`
	RugCheck string `yaml:"rugcheck"`
	Birdeye  string `yaml:"birdeye"`
	Jupiter  string `yaml:"jupiter"`
}

// SocialConfig holds notification and social data settings.
type SocialConfig struct {
	TwitterBearerToken string `yaml:"twitter_bearer_token"`
	TelegramBotToken   string `yaml:"telegram_bot_token"`
	TelegramChatID     string `yaml:"telegram_chat_id"`
	NotifyQueueSize    int    `yaml:"notify_queue_size"`
	MaxTweets          int    `yaml:"max_tweets"`
	OpenAIModel        string `yaml:"openai_model"`
}

// StorageConfig selects the persistence backends.
type StorageConfig struct {
	Mode          string `yaml:"mode"` // memory | postgres
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"` // optional analytics store
	RedisAddr     string `yaml:"redis_addr"`     // optional cache mirror
	RedisPrefix   string `yaml:"redis_prefix"`
}

// CacheConfig holds cache lifetimes and bounds.
type CacheConfig struct {
	RiskTTL      time.Duration `yaml:"risk_ttl"`
	RiskYoungTTL time.Duration `yaml:"risk_young_ttl"`
	AITTL        time.Duration `yaml:"ai_ttl"`
	SentimentTTL time.Duration `yaml:"sentiment_ttl"`
	MarketTTL    time.Duration `yaml:"market_ttl"`
	SafetyTTL    time.Duration `yaml:"safety_ttl"`
	MaxEntries   int           `yaml:"max_entries"`  // prune threshold per cache
	KeepEntries  int           `yaml:"keep_entries"` // entries kept by a prune
}

// ScheduleConfig holds loop intervals.
type ScheduleConfig struct {
	PollInterval          time.Duration `yaml:"poll_interval"`
	MarketContextInterval time.Duration `yaml:"market_context_interval"`
	StatusInterval        time.Duration `yaml:"status_interval"`
	PerformanceInterval   time.Duration `yaml:"performance_interval"`
	MaintenanceInterval   time.Duration `yaml:"maintenance_interval"`
	ListingLookback       time.Duration `yaml:"listing_lookback"`
	MaxTokensPerCycle     int           `yaml:"max_tokens_per_cycle"`
}

// HTTPConfig holds the status API settings.
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

// ProvidersConfig holds provider selection and endpoints.
type ProvidersConfig struct {
	Safety       string `yaml:"safety"` // rugcheck | simulated
	RugCheckURL  string `yaml:"rugcheck_url"`
	BirdeyeURL   string `yaml:"birdeye_url"`
	BirdeyeWSURL string `yaml:"birdeye_ws_url"` // empty disables the listing feed
	JupiterURL   string `yaml:"jupiter_url"`
	TwitterURL   string `yaml:"twitter_url"`
	TelegramURL  string `yaml:"telegram_url"`
	OpenAIURL    string `yaml:"openai_url"` // empty uses the library default
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: EnvironmentProduction,
		Trading: TradingConfig{
			LiquidityThreshold:  1000,
			MaxSlippageBps:      50,
			TradeSizeSOL:        0.1,
			MaxDailyTrades:      10,
			TakeProfitPct:       30,
			StopLossPct:         15,
			HoldingPeriod:       168 * time.Hour,
			MaxPortfolioRiskPct: 5,
			MaxPositionSOL:      1,
			PaperTrading:        true,
			PaperBalanceSOL:     10,
		},
		Risk: RiskConfig{
			RequireSafetyCheck:       true,
			MaxConcentrationPct:      70,
			MinHolders:               25,
			MaxRiskScore:             70,
			MaxTaxPct:                20,
			YoungTokenAge:            6 * time.Hour,
			YoungLiquidityMultiplier: 2,
		},
		Network: NetworkConfig{
			RPCURL:         "https://api.mainnet-beta.solana.com",
			Timeout:        10 * time.Second,
			MaxRetries:     3,
			RetryDelay:     2 * time.Second,
			PriorityFee:    100,
			RateLimitRPS:   10,
			RateLimitBurst: 20,
		},
		Social: SocialConfig{
			NotifyQueueSize: 100,
			MaxTweets:       50,
			OpenAIModel:     "gpt-4o-mini",
		},
		Storage: StorageConfig{
			Mode:        StorageMemory,
			RedisPrefix: "trader",
		},
		Cache: CacheConfig{
			RiskTTL:      30 * time.Minute,
			RiskYoungTTL: 10 * time.Minute,
			AITTL:        15 * time.Minute,
			SentimentTTL: 30 * time.Minute,
			MarketTTL:    60 * time.Second,
			SafetyTTL:    30 * time.Minute,
			MaxEntries:   1000,
			KeepEntries:  500,
		},
		Schedule: ScheduleConfig{
			PollInterval:          time.Minute,
			MarketContextInterval: 8 * time.Hour,
			StatusInterval:        30 * time.Minute,
			PerformanceInterval:   24 * time.Hour,
			MaintenanceInterval:   time.Hour,
			ListingLookback:       24 * time.Hour,
			MaxTokensPerCycle:     20,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Addr:    ":8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Providers: ProvidersConfig{
			Safety:      SafetyRugCheck,
			RugCheckURL: "https://api.rugcheck.xyz/v1",
			BirdeyeURL:  "https://public-api.birdeye.so",
			JupiterURL:  "https://quote-api.jup.ag/v6",
			TwitterURL:  "https://api.twitter.com",
			TelegramURL: "https://api.telegram.org",
		},
	}
}

// Load reads path (optional) and envFile (optional), applies environment
// overrides and validates the result.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if envFile != "" {
		// Existing environment variables win over the file.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalid}, args...)...))
	}

	t := c.Trading
	if t.LiquidityThreshold < 0 {
		invalid("trading.liquidity_threshold must be >= 0")
	}
	if t.TradeSizeSOL <= 0 {
		invalid("trading.trade_size must be > 0")
	}
	if t.MaxPositionSOL <= 0 {
		invalid("trading.max_position_size must be > 0")
	}
	if t.TradeSizeSOL > t.MaxPositionSOL {
		invalid("trading.trade_size (%v) exceeds max_position_size (%v)", t.TradeSizeSOL, t.MaxPositionSOL)
	}
	if t.MaxDailyTrades < 0 {
		invalid("trading.max_daily_trades must be >= 0")
	}
	if t.MaxSlippageBps < 0 || t.MaxSlippageBps > 10000 {
		invalid("trading.max_slippage_bps must be in [0,10000]")
	}
	for _, pct := range []struct {
		name  string
		value float64
	}{
		{"trading.max_portfolio_risk_pct", t.MaxPortfolioRiskPct},
		{"trading.take_profit_pct", t.TakeProfitPct},
		{"trading.emergency_stop_loss_pct", t.StopLossPct},
		{"risk.max_supply_concentration_pct", c.Risk.MaxConcentrationPct},
		{"risk.max_tax_pct", c.Risk.MaxTaxPct},
	} {
		if pct.value < 0 || pct.value > 100 {
			invalid("%s must be in [0,100]", pct.name)
		}
	}
	if c.Risk.MaxRiskScore < 0 || c.Risk.MaxRiskScore > 100 {
		invalid("risk.max_risk_score must be in [0,100]")
	}
	if c.Risk.MinHolders < 0 {
		invalid("risk.min_holders must be >= 0")
	}
	if c.Risk.YoungLiquidityMultiplier < 1 {
		invalid("risk.young_liquidity_multiplier must be >= 1")
	}

	switch c.Providers.Safety {
	case SafetyRugCheck, SafetySimulated:
	default:
		invalid("unknown safety provider %q", c.Providers.Safety)
	}
	switch c.Storage.Mode {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			invalid("storage.postgres_dsn is required in postgres mode")
		}
	default:
		invalid("unknown storage mode %q", c.Storage.Mode)
	}

	if c.TradingEnabled() && !t.PaperTrading && t.WalletPrivateKey == "" {
		invalid("live trading requires trading.wallet_private_key")
	}
	if t.PaperTrading && t.PaperBalanceSOL < 0 {
		invalid("trading.paper_balance must be >= 0")
	}
	if c.Schedule.PollInterval <= 0 {
		invalid("schedule.poll_interval must be > 0")
	}
	if c.Cache.KeepEntries > c.Cache.MaxEntries {
		invalid("cache.keep_entries exceeds cache.max_entries")
	}

	return errors.Join(errs...)
}

// PaperMode reports whether fills are simulated. Without a wallet key
// nothing can be signed, so the bot always runs on paper.
func (c *Config) PaperMode() bool {
	return c.Trading.PaperTrading || c.Trading.WalletPrivateKey == ""
}

// TradingEnabled reports whether orders may be executed.
// Outside production auto trading additionally requires force_trading.
func (c *Config) TradingEnabled() bool {
	if !c.Trading.AutoTrading {
		return false
	}
	return strings.EqualFold(c.Environment, EnvironmentProduction) || c.Trading.ForceTrading
}

// Redacted returns a copy with secrets masked, safe to print or log.
func (c *Config) Redacted() *Config {
	out := *c
	out.Trading.WalletPrivateKey = mask(c.Trading.WalletPrivateKey)
	out.APIKeys = APIKeys{
		OpenAI:   mask(c.APIKeys.OpenAI),
		RugCheck: mask(c.APIKeys.RugCheck),
		Birdeye:  mask(c.APIKeys.Birdeye),
		Jupiter:  mask(c.APIKeys.Jupiter),
	}
	out.Social.TwitterBearerToken = mask(c.Social.TwitterBearerToken)
	out.Social.TelegramBotToken = mask(c.Social.TelegramBotToken)
	out.Storage.PostgresDSN = mask(c.Storage.PostgresDSN)
	out.Storage.ClickHouseDSN = mask(c.Storage.ClickHouseDSN)
	out.Risk.Blacklist = append([]string(nil), c.Risk.Blacklist...)
	out.Network.FallbackRPCURLs = append([]string(nil), c.Network.FallbackRPCURLs...)
	return &out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****"
}

// RiskSettings derives the risk gate thresholds.
func (c *Config) RiskSettings() risk.Settings {
	return risk.Settings{
		LiquidityThreshold:       c.Trading.LiquidityThreshold,
		RequireSafetyCheck:       c.Risk.RequireSafetyCheck,
		MaxRiskScore:             c.Risk.MaxRiskScore,
		MaxConcentrationPct:      c.Risk.MaxConcentrationPct,
		MinHolders:               c.Risk.MinHolders,
		MaxTaxPct:                c.Risk.MaxTaxPct,
		YoungTokenAge:            c.Risk.YoungTokenAge,
		YoungLiquidityMultiplier: c.Risk.YoungLiquidityMultiplier,
		Blacklist:                append([]string(nil), c.Risk.Blacklist...),
	}
}

// DecisionSettings derives the position sizing limits.
func (c *Config) DecisionSettings() decision.Settings {
	return decision.Settings{
		DefaultPositionSOL:  c.Trading.TradeSizeSOL,
		MaxPositionSOL:      c.Trading.MaxPositionSOL,
		MaxDailyTrades:      c.Trading.MaxDailyTrades,
		MaxPortfolioRiskPct: c.Trading.MaxPortfolioRiskPct,
	}
}

// ExitSettings derives the exit thresholds. They are not configurable yet.
func (c *Config) ExitSettings() strategy.ExitSettings {
	return strategy.DefaultExitSettings()
}

// Holder shares the current config between goroutines and supports reloads.
type Holder struct {
	current atomic.Pointer[Config]
}

// NewHolder creates a holder for cfg.
func NewHolder(cfg *Config) *Holder {
	h := &Holder{}
	h.current.Store(cfg)
	return h
}

// Get returns the current config. Callers must not modify it.
func (h *Holder) Get() *Config {
	return h.current.Load()
}

// Set replaces the current config.
func (h *Holder) Set(cfg *Config) {
	h.current.Store(cfg)
}

// Reload loads path and envFile and swaps them in if they validate.
func (h *Holder) Reload(path, envFile string) error {
	cfg, err := Load(path, envFile)
	if err != nil {
		return err
	}
	h.Set(cfg)
	return nil
}

// LoopSettings derives the trading loop schedule and entry parameters.
func (c *Config) LoopSettings() orchestrator.Settings {
	return orchestrator.Settings{
		PollInterval:          c.Schedule.PollInterval,
		MarketContextInterval: c.Schedule.MarketContextInterval,
		StatusInterval:        c.Schedule.StatusInterval,
		PerformanceInterval:   c.Schedule.PerformanceInterval,
		MaintenanceInterval:   c.Schedule.MaintenanceInterval,
		ListingLookback:       c.Schedule.ListingLookback,
		MaxTokensPerCycle:     c.Schedule.MaxTokensPerCycle,
		TakeProfitPct:         c.Trading.TakeProfitPct,
		StopLossPct:           c.Trading.StopLossPct,
		HoldingPeriod:         c.Trading.HoldingPeriod,
		CacheMaxEntries:       c.Cache.MaxEntries,
		CacheKeepEntries:      c.Cache.KeepEntries,
		TradingEnabled:        c.TradingEnabled(),
	}
}
