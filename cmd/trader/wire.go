package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"solana-token-trader/internal/ai"
	"solana-token-trader/internal/breaker"
	"solana-token-trader/internal/config"
	"solana-token-trader/internal/decision"
	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/execution"
	"solana-token-trader/internal/httpjson"
	"solana-token-trader/internal/marketdata"
	"solana-token-trader/internal/notify"
	"solana-token-trader/internal/observability"
	"solana-token-trader/internal/orchestrator"
	"solana-token-trader/internal/ratelimit"
	"solana-token-trader/internal/retry"
	"solana-token-trader/internal/risk"
	"solana-token-trader/internal/safety"
	"solana-token-trader/internal/sentiment"
	"solana-token-trader/internal/solana"
	"solana-token-trader/internal/storage"
	"solana-token-trader/internal/storage/clickhouse"
	"solana-token-trader/internal/storage/memory"
	"solana-token-trader/internal/storage/postgres"
	"solana-token-trader/internal/strategy"
	"solana-token-trader/internal/ttlcache"
)

const redisPingTimeout = 3 * time.Second

// buildOptions selects the long-lived parts of the app.
type buildOptions struct {
	feed     bool // subscribe to the websocket listing feed
	notifier bool // deliver Telegram messages
}

// app holds the wired components and their cleanup.
type app struct {
	holder   *config.Holder
	log      zerolog.Logger
	stores   storage.Stores
	bot      *orchestrator.Orchestrator
	notifier *notify.Notifier
	rpc      solana.RPCClient // nil in paper mode
	paper    bool

	closers []func()
}

// Close releases connections in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp wires every component from the current config.
func buildApp(ctx context.Context, holder *config.Holder, logger zerolog.Logger, opts buildOptions) (_ *app, err error) {
	cfg := holder.Get()
	a := &app{holder: holder, log: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.stores, err = openStores(ctx, cfg, logger, a); err != nil {
		return nil, err
	}
	rdb := openRedis(ctx, cfg, logger, a)

	breakers := breaker.NewManager(breaker.DefaultSettings(), logger, func(provider string, state gobreaker.State) {
		observability.SetBreakerState(provider, int(state))
	})
	policy := retryPolicy(cfg)
	httpOpts := func() []httpjson.Option {
		return []httpjson.Option{
			httpjson.WithTimeout(cfg.Network.Timeout),
			httpjson.WithRetryPolicy(policy),
			httpjson.WithBreakers(breakers),
			httpjson.WithLimiter(ratelimit.New(cfg.Network.RateLimitRPS, cfg.Network.RateLimitBurst)),
		}
	}
	prefix := cfg.Storage.RedisPrefix

	// Market data
	birdeye := marketdata.NewBirdeyeClient(marketdata.NewBirdeyeHTTP(cfg.Providers.BirdeyeURL, cfg.APIKeys.Birdeye, httpOpts()...), nil)
	marketCache := layered[domain.TokenSnapshot](rdb, prefix, "market", logger)
	market := marketdata.NewCachedClient(birdeye, marketCache, cfg.Cache.MarketTTL)

	// Risk
	safetyCache := layered[domain.SafetyReport](rdb, prefix, "safety", logger)
	provider, fallback := safetyProviders(cfg, logger, httpOpts())
	riskSvc := risk.NewService(risk.Options{
		Safety:        safety.NewCached(provider, safetyCache, cfg.Cache.SafetyTTL),
		Fallback:      fallback,
		AllowFallback: cfg.Risk.AllowSimulatedFallback,
		Cache:         layered[domain.RiskAssessment](rdb, prefix, "risk", logger),
		Settings:      func() risk.Settings { return holder.Get().RiskSettings() },
		TTL:           cfg.Cache.RiskTTL,
		YoungTTL:      cfg.Cache.RiskYoungTTL,
		Logger:        logger,
	})

	// AI and sentiment share one completer
	var completer *ai.Completer
	if cfg.APIKeys.OpenAI != "" {
		client := ai.NewOpenAIClient(cfg.APIKeys.OpenAI, cfg.Providers.OpenAIURL, &http.Client{Timeout: 3 * cfg.Network.Timeout})
		completer = ai.NewCompleter(client, cfg.Social.OpenAIModel, policy, breakers, logger)
	} else {
		logger.Warn().Msg("no OpenAI key, AI evaluations use the conservative default")
	}
	evaluator := ai.NewEvaluator(ai.Options{
		Completer: completer,
		Cache:     layered[domain.AIEvaluation](rdb, prefix, "ai", logger),
		TTL:       cfg.Cache.AITTL,
		Logger:    logger,
	})

	sentimentOpts := sentiment.Options{
		Completer: completer,
		Cache:     layered[domain.SentimentResult](rdb, prefix, "sentiment", logger),
		TTL:       cfg.Cache.SentimentTTL,
		MaxTweets: cfg.Social.MaxTweets,
		Logger:    logger,
	}
	if cfg.Social.TwitterBearerToken != "" {
		sentimentOpts.Search = sentiment.NewTwitterClient(sentiment.NewTwitterHTTP(cfg.Providers.TwitterURL, cfg.Social.TwitterBearerToken, httpOpts()...))
	}
	analyzer := sentiment.NewAnalyzer(sentimentOpts)

	// Decisions
	engine := decision.NewEngine(func() decision.Settings { return holder.Get().DecisionSettings() }, nil)
	exits, err := strategy.NewExitMachine(cfg.ExitSettings(), nil)
	if err != nil {
		return nil, fmt.Errorf("exit machine: %w", err)
	}

	// Execution
	solPrice := &marketdata.SOLPrice{}
	executor, balance, rpc, err := buildExecution(cfg, holder, logger, breakers, httpOpts(), solPrice)
	if err != nil {
		return nil, err
	}
	a.rpc = rpc
	a.paper = executor.Mode() == execution.ModePaper
	gate := execution.NewGate(executor, func() bool { return holder.Get().TradingEnabled() })

	// Notifications
	var sender notify.Sender
	if opts.notifier && cfg.Social.TelegramBotToken != "" && cfg.Social.TelegramChatID != "" {
		sender = notify.NewTelegramClient(notify.NewTelegramHTTP(cfg.Providers.TelegramURL, cfg.Social.TelegramBotToken, httpOpts()...), cfg.Social.TelegramChatID)
	}
	a.notifier = notify.NewNotifier(notify.Options{
		Sender:    sender,
		QueueSize: cfg.Social.NotifyQueueSize,
		Logger:    logger,
	})

	bopts := orchestrator.Options{
		Stores:    a.stores,
		Market:    market,
		Risk:      riskSvc,
		Decisions: engine,
		Exits:     exits,
		Executor:  gate,
		Balance:   balance,
		AI:        evaluator,
		Sentiment: analyzer,
		Notifier:  a.notifier,
		Caches: []ttlcache.Maintainable{
			riskSvc.Cache(), evaluator.Cache(), analyzer.Cache(), market.Cache(), safetyCache,
		},
		SOLPrice: solPrice,
		Settings: func() orchestrator.Settings { return holder.Get().LoopSettings() },
		Logger:   logger,
	}
	if opts.feed && cfg.Providers.BirdeyeWSURL != "" {
		feed, ferr := marketdata.NewListingFeed(ctx, marketdata.FeedURL(cfg.Providers.BirdeyeWSURL, cfg.APIKeys.Birdeye), nil, logger)
		if ferr != nil {
			// Polling still finds every listing, only later.
			logger.Warn().Err(ferr).Msg("listing feed unavailable, polling only")
		} else {
			a.closers = append(a.closers, func() { _ = feed.Close() })
			bopts.Feed = feed
		}
	}

	if a.bot, err = orchestrator.New(bopts); err != nil {
		return nil, err
	}
	return a, nil
}

// openStores selects memory or Postgres for operational data and adds the
// ClickHouse analytics stores when a DSN is configured.
func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger, a *app) (storage.Stores, error) {
	var stores storage.Stores
	switch cfg.Storage.Mode {
	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return stores, err
		}
		a.closers = append(a.closers, pool.Close)
		stores = postgres.NewStores(pool)
		// Price history lives in ClickHouse only; keep it in memory otherwise.
		stores.Prices = memory.NewPriceHistoryStore()
		logger.Info().Msg("using postgres storage")
	default:
		stores = memory.NewStores()
		logger.Info().Msg("using in-memory storage, state is lost on exit")
	}

	if cfg.Storage.ClickHouseDSN != "" {
		conn, err := clickhouse.NewConn(ctx, cfg.Storage.ClickHouseDSN)
		if err != nil {
			return stores, err
		}
		a.closers = append(a.closers, func() { _ = conn.Close() })
		stores.Prices = clickhouse.NewPriceHistoryStore(conn)
		stores.Snapshots = clickhouse.NewStatisticsSnapshotStore(conn)
		logger.Info().Msg("using clickhouse for price history and statistics snapshots")
	}
	return stores, nil
}

// openRedis connects the cache mirror. An unreachable Redis leaves caches process-local.
func openRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger, a *app) *redis.Client {
	if cfg.Storage.RedisAddr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Storage.RedisAddr).Msg("redis unreachable, caches stay local")
		_ = rdb.Close()
		return nil
	}
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	return rdb
}

// layered builds a named cache, mirrored to Redis when rdb is set.
func layered[V any](rdb *redis.Client, prefix, name string, logger zerolog.Logger) *ttlcache.Layered[V] {
	local := ttlcache.New[string, V](ttlcache.WithName(name))
	var mirror *ttlcache.RedisMirror[V]
	if rdb != nil {
		mirror = ttlcache.NewRedisMirror[V](rdb, prefix+":"+name, nil)
	}
	return ttlcache.NewLayered(local, mirror, logger)
}

func retryPolicy(cfg *config.Config) retry.Policy {
	p := retry.DefaultPolicy()
	if cfg.Network.MaxRetries > 0 {
		p.MaxAttempts = cfg.Network.MaxRetries
	}
	if cfg.Network.RetryDelay > 0 {
		p.InitialDelay = cfg.Network.RetryDelay
	}
	return p
}

// safetyProviders returns the configured provider and, when the fallback is
// allowed and the primary is real, the simulated fallback.
func safetyProviders(cfg *config.Config, logger zerolog.Logger, opts []httpjson.Option) (primary, fallback safety.Provider) {
	if cfg.Providers.Safety == config.SafetySimulated {
		logger.Warn().Msg("safety data is simulated")
		return safety.NewSimulated(nil), nil
	}
	if cfg.APIKeys.RugCheck != "" {
		opts = append(opts, httpjson.WithHeader("X-API-KEY", cfg.APIKeys.RugCheck))
	}
	primary = safety.NewRugCheckClient(httpjson.New(safety.ProviderRugCheck, cfg.Providers.RugCheckURL, opts...), logger)
	if cfg.Risk.AllowSimulatedFallback {
		fallback = safety.NewSimulated(nil)
	}
	return primary, fallback
}

// buildExecution returns the paper or live executor, its balance source and,
// in live mode, the RPC client it submits through.
func buildExecution(cfg *config.Config, holder *config.Holder, logger zerolog.Logger, breakers *breaker.Manager,
	opts []httpjson.Option, solPrice *marketdata.SOLPrice) (execution.Executor, execution.BalanceSource, solana.RPCClient, error) {
	slippage := func() int { return holder.Get().Trading.MaxSlippageBps }

	if cfg.PaperMode() {
		logger.Info().Float64("balance_sol", cfg.Trading.PaperBalanceSOL).Msg("paper trading")
		return execution.NewPaperExecutor(slippage, solPrice.Get, nil), execution.NewPaperBalance(cfg.Trading.PaperBalanceSOL), nil, nil
	}

	signer, err := execution.NewKeypairSigner(cfg.Trading.WalletPrivateKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("wallet key: %w", err)
	}
	rpc := solana.NewHTTPClient(cfg.Network.RPCURL,
		solana.WithTimeout(cfg.Network.Timeout),
		solana.WithMaxRetries(cfg.Network.MaxRetries),
		solana.WithRetryDelay(cfg.Network.RetryDelay),
		solana.WithFallbackEndpoints(cfg.Network.FallbackRPCURLs...),
		solana.WithBreakers(breakers),
		solana.WithLogger(logger),
	)
	live := execution.NewLiveExecutor(execution.LiveOptions{
		Jupiter:     execution.NewJupiterClient(execution.NewJupiterHTTP(cfg.Providers.JupiterURL, cfg.APIKeys.Jupiter, opts...)),
		RPC:         rpc,
		Signer:      signer,
		SlippageBps: slippage,
		PriorityFee: uint64(max(cfg.Network.PriorityFee, 0)),
		Logger:      logger,
	})
	logger.Info().Str("wallet", signer.PublicKey()).Msg("live trading wallet loaded")
	return live, execution.NewWallet(rpc, signer.PublicKey()), rpc, nil
}
