package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/notify"
	"solana-token-trader/internal/observability"
	"solana-token-trader/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// Run drives cycles until ctx is cancelled. Maintenance, status and
// performance reports run on their own tickers. Intervals are read once;
// changing them requires a restart.
func (o *Orchestrator) Run(ctx context.Context) error {
	settings := o.opts.Settings()
	if settings.PollInterval <= 0 {
		return fmt.Errorf("orchestrator: poll interval must be positive, got %s", settings.PollInterval)
	}

	start := o.opts.Now()
	o.mu.Lock()
	o.startedAt = start
	o.runtimeMark = start
	o.mu.Unlock()

	o.log.Info().
		Str("mode", o.opts.Executor.Mode()).
		Bool("trading_enabled", settings.TradingEnabled).
		Dur("poll_interval", settings.PollInterval).
		Msg("trading loop started")
	o.notify(notify.SystemAlert(notify.AlertInfo, "Bot started",
		fmt.Sprintf("Mode: %s, auto trading: %t", o.opts.Executor.Mode(), settings.TradingEnabled), start))

	poll := time.NewTicker(settings.PollInterval)
	defer poll.Stop()
	maintenance := newTicker(settings.MaintenanceInterval)
	defer maintenance.Stop()
	status := newTicker(settings.StatusInterval)
	defer status.Stop()
	performance := newTicker(settings.PerformanceInterval)
	defer performance.Stop()

	o.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			o.shutdown(ctx)
			return nil
		case <-poll.C:
			o.cycle(ctx)
		case <-maintenance.C:
			o.Maintain(ctx)
		case <-status.C:
			o.SendStatus(ctx)
		case <-performance.C:
			o.SendPerformance(ctx)
		}
	}
}

// newTicker returns a stopped-forever ticker for non-positive intervals.
func newTicker(d time.Duration) *time.Ticker {
	if d <= 0 {
		t := time.NewTicker(time.Hour)
		t.Stop()
		return t
	}
	return time.NewTicker(d)
}

func (o *Orchestrator) cycle(ctx context.Context) {
	res, err := o.RunCycle(ctx)
	if err != nil {
		return
	}
	for _, e := range res.Errors {
		o.log.Warn().Str("error", e).Msg("cycle error")
	}
}

// shutdown sends the final performance report and the stop alert on a
// context detached from the cancelled one.
func (o *Orchestrator) shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	o.log.Info().Msg("trading loop stopping")
	o.SendPerformance(ctx)

	o.recordRuntime(ctx)

	o.mu.Lock()
	uptime := o.opts.Now().Sub(o.startedAt)
	o.mu.Unlock()
	o.notify(notify.SystemAlert(notify.AlertInfo, "Bot stopped",
		fmt.Sprintf("Uptime: %s", uptime.Truncate(time.Minute)), o.opts.Now()))
}

// Maintain sweeps expired cache entries, prunes oversized caches, exports
// cache statistics, forgets listings older than a day and adds the time
// since the previous call to today's runtime hours.
func (o *Orchestrator) Maintain(ctx context.Context) {
	settings := o.opts.Settings()
	now := o.opts.Now()

	for _, c := range o.opts.Caches {
		expired := c.Sweep()
		pruned := 0
		if settings.CacheMaxEntries > 0 {
			pruned = c.Prune(settings.CacheMaxEntries, settings.CacheKeepEntries)
		}
		st := c.Stats()
		observability.UpdateCacheStats(c.Name(), st.Hits, st.Misses, st.Size)
		o.log.Debug().
			Str("cache", c.Name()).
			Int("expired", expired).
			Int("pruned", pruned).
			Int("size", st.Size).
			Msg("cache maintained")
	}

	o.mu.Lock()
	for addr, at := range o.seen {
		if now.Sub(at) >= listingMemory {
			delete(o.seen, addr)
		}
	}
	o.mu.Unlock()

	o.recordRuntime(ctx)
}

func (o *Orchestrator) recordRuntime(ctx context.Context) {
	now := o.opts.Now()
	o.mu.Lock()
	elapsed := now.Sub(o.runtimeMark)
	o.runtimeMark = now
	o.mu.Unlock()

	if elapsed <= 0 {
		return
	}
	if _, err := o.opts.Stores.Stats.Increment(ctx, now, domain.StatsDelta{RuntimeHours: elapsed.Hours()}); err != nil {
		o.log.Warn().Err(err).Msg("record runtime failed")
	}
}

// Status summarises the bot state.
func (o *Orchestrator) Status(ctx context.Context) (notify.Status, error) {
	now := o.opts.Now()

	o.mu.Lock()
	s := notify.Status{
		Mode:           o.opts.Executor.Mode(),
		TradingEnabled: o.opts.Settings().TradingEnabled,
		Uptime:         now.Sub(o.startedAt),
		LastCycle:      o.lastCycle,
		At:             now,
	}
	o.mu.Unlock()

	balance, err := o.opts.Balance.BalanceSOL(ctx)
	if err != nil {
		return s, fmt.Errorf("status balance: %w", err)
	}
	s.BalanceSOL = balance.InexactFloat64()

	open, err := o.opts.Stores.Positions.GetOpen(ctx)
	if err != nil {
		return s, fmt.Errorf("status positions: %w", err)
	}
	s.OpenPositions = len(open)
	for _, p := range open {
		s.InvestedSOL += p.AmountIn
	}

	if s.TradesToday, err = o.opts.Stores.Trades.CountSince(ctx, domain.DirectionBuy, storage.DayStart(now)); err != nil {
		return s, fmt.Errorf("status trades: %w", err)
	}

	day, err := o.opts.Stores.Stats.Get(ctx, now)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return s, fmt.Errorf("status statistics: %w", err)
	default:
		s.TokensAnalyzed = day.TokensAnalyzed
	}
	return s, nil
}

// SendStatus enqueues the status report.
func (o *Orchestrator) SendStatus(ctx context.Context) {
	s, err := o.Status(ctx)
	if err != nil {
		o.log.Warn().Err(err).Msg("status report incomplete")
	}
	o.notify(notify.StatusReport(s))
}

// Performance computes the 1, 7 and 30 day performance windows.
func (o *Orchestrator) Performance(ctx context.Context) ([]domain.PerformanceStats, error) {
	return o.perf.Report(ctx, nil)
}

// SendPerformance enqueues the performance report.
func (o *Orchestrator) SendPerformance(ctx context.Context) {
	windows, err := o.Performance(ctx)
	if err != nil {
		o.log.Warn().Err(err).Msg("performance report failed")
		return
	}
	for _, w := range windows {
		o.log.Info().
			Int("days", w.PeriodDays).
			Int("trades", w.TotalTrades).
			Float64("win_rate", w.WinRate).
			Float64("pnl_sol", w.TotalProfitLoss).
			Msg("performance")
	}
	o.notify(notify.PerformanceReport(windows))
}

// RefreshMarket forces a market context refresh.
func (o *Orchestrator) RefreshMarket(ctx context.Context) *domain.MarketContext {
	return o.refreshMarket(ctx, o.opts.Settings(), true)
}
