// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Evaluation metrics
	TokensEvaluated prometheus.Counter
	RiskRejections  *prometheus.CounterVec
	RiskScores      prometheus.Histogram
	Decisions       *prometheus.CounterVec
	Exits           *prometheus.CounterVec

	// Provider metrics
	ProviderLatency *prometheus.HistogramVec
	ProviderErrors  *prometheus.CounterVec
	ProviderDefault *prometheus.CounterVec
	BreakerState    *prometheus.GaugeVec

	// Cache metrics
	CacheHits   *prometheus.GaugeVec
	CacheMisses *prometheus.GaugeVec
	CacheSize   *prometheus.GaugeVec

	// Trading metrics
	TradesExecuted *prometheus.CounterVec
	TradesFailed   *prometheus.CounterVec
	OpenPositions  prometheus.Gauge

	// Cycle metrics
	CyclesTotal   *prometheus.CounterVec
	CycleDuration prometheus.Histogram

	// Notification metrics
	NotificationsSent    prometheus.Counter
	NotificationsDropped prometheus.Counter
	NotificationsFailed  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_token_trader"
	}

	return &Metrics{
		TokensEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "tokens_evaluated_total",
			Help:      "Total number of tokens run through risk assessment",
		}),
		RiskRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "risk_rejections_total",
			Help:      "Risk assessments that failed, by gate",
		}, []string{"gate"}),
		RiskScores: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "risk_score",
			Help:      "Distribution of composite risk scores",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "decisions_total",
			Help:      "Trading decisions produced, by action",
		}, []string{"action"}),
		Exits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "exit_signals_total",
			Help:      "Exit rule matches for open positions, by reason",
		}, []string{"reason"}),

		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "External provider call latency",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"provider", "operation"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "errors_total",
			Help:      "External provider calls that failed after retries",
		}, []string{"provider", "operation"}),
		ProviderDefault: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "default_results_total",
			Help:      "Provider results replaced by a default or fallback value",
		}, []string{"provider"}),
		BreakerState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"provider"}),

		CacheHits: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits",
			Help:      "Cumulative cache hits",
		}, []string{"cache"}),
		CacheMisses: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses",
			Help:      "Cumulative cache misses",
		}, []string{"cache"}),
		CacheSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Number of entries held per cache",
		}, []string{"cache"}),

		TradesExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "trades_executed_total",
			Help:      "Trades filled, by direction and mode",
		}, []string{"direction", "mode"}),
		TradesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "trades_failed_total",
			Help:      "Trade submissions that failed, by direction",
		}, []string{"direction"}),
		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "open_positions",
			Help:      "Number of open positions",
		}),

		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "cycles_total",
			Help:      "Evaluation cycles run, by status",
		}, []string{"status"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of evaluation cycles",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),

		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Notifications delivered",
		}),
		NotificationsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "dropped_total",
			Help:      "Notifications dropped because the queue was full",
		}),
		NotificationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "failed_total",
			Help:      "Notifications that could not be delivered",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of last successful evaluation cycle",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTokenEvaluated increments the evaluated tokens counter and records the score.
func RecordTokenEvaluated(riskScore int) {
	DefaultMetrics.TokensEvaluated.Inc()
	DefaultMetrics.RiskScores.Observe(float64(riskScore))
}

// RecordRiskRejection records a failed risk gate.
func RecordRiskRejection(gate string) {
	DefaultMetrics.RiskRejections.WithLabelValues(gate).Inc()
}

// RecordDecision records a trading decision by action.
func RecordDecision(action string) {
	DefaultMetrics.Decisions.WithLabelValues(action).Inc()
}

// RecordExit records an exit rule match.
func RecordExit(reason string) {
	DefaultMetrics.Exits.WithLabelValues(reason).Inc()
}

// RecordProviderCall records latency and failure of an external call.
func RecordProviderCall(provider, operation string, seconds float64, err error) {
	DefaultMetrics.ProviderLatency.WithLabelValues(provider, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.ProviderErrors.WithLabelValues(provider, operation).Inc()
	}
}

// RecordProviderDefault records a result substituted by a default or fallback.
func RecordProviderDefault(provider string) {
	DefaultMetrics.ProviderDefault.WithLabelValues(provider).Inc()
}

// SetBreakerState sets the breaker state gauge (0 closed, 1 half-open, 2 open).
func SetBreakerState(provider string, state int) {
	DefaultMetrics.BreakerState.WithLabelValues(provider).Set(float64(state))
}

// UpdateCacheStats exports the counters of a named cache.
func UpdateCacheStats(cache string, hits, misses uint64, size int) {
	DefaultMetrics.CacheHits.WithLabelValues(cache).Set(float64(hits))
	DefaultMetrics.CacheMisses.WithLabelValues(cache).Set(float64(misses))
	DefaultMetrics.CacheSize.WithLabelValues(cache).Set(float64(size))
}

// RecordTrade records a filled or failed trade.
func RecordTrade(direction, mode string, err error) {
	if err != nil {
		DefaultMetrics.TradesFailed.WithLabelValues(direction).Inc()
		return
	}
	DefaultMetrics.TradesExecuted.WithLabelValues(direction, mode).Inc()
}

// SetOpenPositions sets the open positions gauge.
func SetOpenPositions(n int) {
	DefaultMetrics.OpenPositions.Set(float64(n))
}

// RecordCycle records an evaluation cycle.
func RecordCycle(status string, durationSeconds float64, finishedUnix int64) {
	DefaultMetrics.CyclesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.CycleDuration.Observe(durationSeconds)
	if status == "success" {
		DefaultMetrics.LastSuccessfulCycle.Set(float64(finishedUnix))
	}
}

// RecordNotification records the outcome of a notification.
func RecordNotification(sent, dropped bool) {
	switch {
	case dropped:
		DefaultMetrics.NotificationsDropped.Inc()
	case sent:
		DefaultMetrics.NotificationsSent.Inc()
	default:
		DefaultMetrics.NotificationsFailed.Inc()
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
