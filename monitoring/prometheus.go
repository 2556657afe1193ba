package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AccountsInCache mirrors the core's native accounts_in_cache gauge.
	AccountsInCache = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cross_margin_accounts_in_cache",
			Help: "Number of accounts currently held in the accounts cache",
		},
	)

	// CachePositionsAmount mirrors the core's native cache_positions_amount{ident} gauge.
	CachePositionsAmount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cross_margin_cache_positions_amount",
			Help: "Number of positions currently held in a positions cache",
		},
		[]string{"ident"},
	)

	tickLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cross_margin_tick_duration_milliseconds",
			Help:    "handle_bid_ask tick processing latency in milliseconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 25, 50, 100},
		},
	)

	tickClosures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cross_margin_tick_closures_total",
			Help: "Total positions closed by the tick pipeline, by reason",
		},
		[]string{"reason"},
	)

	tickPendingOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cross_margin_tick_pending_outcomes_total",
			Help: "Total pending-order outcomes produced by the tick pipeline",
		},
		[]string{"outcome"},
	)

	orchestratorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cross_margin_orchestrator_errors_total",
			Help: "Total errors surfaced by orchestrator commands, by kind",
		},
		[]string{"kind"},
	)
)

// MetricsCollector exposes the registered collectors over an HTTP handler.
type MetricsCollector struct{}

// NewMetricsCollector creates a metrics collector bound to the default registry.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.Handler()
}

// SetAccountsInCache sets the accounts_in_cache gauge to an absolute value.
func SetAccountsInCache(count int) {
	AccountsInCache.Set(float64(count))
}

// SetCachePositionsAmount sets the cache_positions_amount gauge for one cache identity.
func SetCachePositionsAmount(ident string, count int) {
	CachePositionsAmount.WithLabelValues(ident).Set(float64(count))
}

// RecordTick records the latency and outcome counts of one handle_bid_ask call.
func RecordTick(latencyMs float64, closedReasons []string, pendingOutcomes []string) {
	tickLatency.Observe(latencyMs)
	for _, reason := range closedReasons {
		tickClosures.WithLabelValues(reason).Inc()
	}
	for _, outcome := range pendingOutcomes {
		tickPendingOutcomes.WithLabelValues(outcome).Inc()
	}
}

// RecordOrchestratorError records an orchestrator-surfaced error by kind.
func RecordOrchestratorError(kind string) {
	orchestratorErrors.WithLabelValues(kind).Inc()
}
