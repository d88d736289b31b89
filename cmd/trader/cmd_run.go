package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"solana-token-trader/internal/api"
	"solana-token-trader/internal/config"
	"solana-token-trader/internal/solana"
)

const shutdownGrace = 15 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop and the HTTP API",
	Long: `Run polls for new listings, evaluates them and manages open positions
until SIGINT or SIGTERM. SIGHUP reloads the config file; thresholds and
sizing apply from the next cycle, intervals need a restart.

Examples:
  trader run
  trader run --config config.yaml --log-format console`,
	Args: cobra.NoArgs,
	RunE: runTrader,
}

var runNoFeed bool

func init() {
	runCmd.Flags().BoolVar(&runNoFeed, "no-feed", false, "poll only, skip the websocket listing feed")
}

func runTrader(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	holder := config.NewHolder(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, holder, logger, buildOptions{feed: !runNoFeed, notifier: true})
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info().
		Bool("paper", a.paper).
		Bool("trading_enabled", cfg.TradingEnabled()).
		Str("storage", cfg.Storage.Mode).
		Msg("trader starting")

	if a.rpc != nil {
		_, _ = checkRPC(ctx, a.rpc, logger)
	}
	a.notifier.Start(ctx)
	go watchReload(ctx, a)

	var server *api.Server
	if cfg.HTTP.Enabled {
		server, err = api.NewServer(api.Options{
			Addr:      cfg.HTTP.Addr,
			Bot:       a.bot,
			Positions: a.stores.Positions,
			Decisions: a.stores.Decisions,
			Trades:    a.stores.Trades,
			Chain:     a.rpc,
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		go func() {
			if err := server.Start(); err != nil {
				logger.Error().Err(err).Msg("http api stopped")
			}
		}()
	}

	runErr := a.bot.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("http api shutdown")
		}
	}
	a.notifier.Close(shutdownCtx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

// checkRPC logs the current slot. An unreachable RPC is only a warning; the
// fallback endpoints may still serve.
func checkRPC(ctx context.Context, rpc solana.RPCClient, logger zerolog.Logger) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	slot, err := rpc.GetSlot(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("solana rpc unreachable at startup")
		return 0, err
	}
	logger.Info().Int64("slot", slot).Msg("solana rpc reachable")
	return slot, nil
}

// watchReload swaps in a fresh config on SIGHUP. An invalid file keeps the
// running config.
func watchReload(ctx context.Context, a *app) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := a.holder.Reload(flags.configPath, flags.envFile); err != nil {
				a.log.Error().Err(err).Msg("config reload rejected")
				continue
			}
			a.log.Info().Bool("trading_enabled", a.holder.Get().TradingEnabled()).Msg("config reloaded")
		}
	}
}
