// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hybrid-mm-engine/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Feed metrics
	BarsProcessed  *prometheus.CounterVec
	BarsRejected   *prometheus.CounterVec
	FeedReconnects prometheus.Counter
	LastBarAge     *prometheus.GaugeVec

	// Engine metrics
	GateState      *prometheus.GaugeVec
	HardStops      *prometheus.CounterVec
	Resumes        *prometheus.CounterVec
	SpreadPct      *prometheus.GaugeVec
	PlanIntents    *prometheus.CounterVec
	BarLatency     prometheus.Histogram

	// Order metrics
	OrdersPlaced   *prometheus.CounterVec
	OrdersFilled   *prometheus.CounterVec
	OrdersCanceled *prometheus.CounterVec
	OrdersSkipped  *prometheus.CounterVec
	LiveOrders     *prometheus.GaugeVec

	// Portfolio metrics
	Equity      *prometheus.GaugeVec
	PositionQty *prometheus.GaugeVec
	RealizedPnL *prometheus.GaugeVec
	FeesPaid    *prometheus.GaugeVec

	// Exchange metrics
	RESTCallLatency *prometheus.HistogramVec
	RESTCallErrors  *prometheus.CounterVec

	// Health metrics
	LastBarTimestamp prometheus.Gauge
	UptimeSeconds    prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "hybrid_mm_engine"
	}

	return &Metrics{
		// Feed metrics
		BarsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "bars_processed_total",
			Help:      "Total number of closed bars processed",
		}, []string{"symbol"}),
		BarsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "bars_rejected_total",
			Help:      "Total number of bars rejected by reason",
		}, []string{"symbol", "reason"}),
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of websocket reconnects",
		}),
		LastBarAge: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "last_bar_age_seconds",
			Help:      "Seconds since the last accepted bar",
		}, []string{"symbol"}),

		// Engine metrics
		GateState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "gate_state",
			Help:      "Current gate state (0=RUN, 1=DEGRADED, 2=PAUSED)",
		}, []string{"symbol"}),
		HardStops: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "hard_stops_total",
			Help:      "Total number of hard-stop triggers",
		}, []string{"symbol"}),
		Resumes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "resumes_total",
			Help:      "Total number of auto-resumes after a hard stop",
		}, []string{"symbol"}),
		SpreadPct: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "spread_pct",
			Help:      "Resolved quoting spread in percent",
		}, []string{"symbol"}),
		PlanIntents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "plan_intents_total",
			Help:      "Total number of planned order intents by kind",
		}, []string{"symbol", "kind"}),
		BarLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "bar_processing_latency_seconds",
			Help:      "Per-bar processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Order metrics
		OrdersPlaced: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Total number of orders placed by kind",
		}, []string{"symbol", "kind"}),
		OrdersFilled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "filled_total",
			Help:      "Total number of orders filled by kind",
		}, []string{"symbol", "kind"}),
		OrdersCanceled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "canceled_total",
			Help:      "Total number of orders canceled by reason",
		}, []string{"symbol", "reason"}),
		OrdersSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "skipped_total",
			Help:      "Total number of order intents skipped by note",
		}, []string{"symbol", "note"}),
		LiveOrders: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "live",
			Help:      "Current number of resting orders",
		}, []string{"symbol"}),

		// Portfolio metrics
		Equity: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "equity",
			Help:      "Portfolio equity in quote currency at the last close",
		}, []string{"symbol"}),
		PositionQty: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "position_qty",
			Help:      "Base asset position quantity",
		}, []string{"symbol"}),
		RealizedPnL: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "realized_pnl",
			Help:      "Cumulative realized PnL net of fees",
		}, []string{"symbol"}),
		FeesPaid: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "fees_paid",
			Help:      "Cumulative fees paid in quote currency",
		}, []string{"symbol"}),

		// Exchange metrics
		RESTCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "rest_call_latency_seconds",
			Help:      "Exchange REST call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		RESTCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "rest_call_errors_total",
			Help:      "Total number of exchange REST call errors",
		}, []string{"endpoint"}),

		// Health metrics
		LastBarTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_bar_timestamp",
			Help:      "Unix timestamp of the last processed bar",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// gateStateValue maps the gate state to the exported gauge value.
func gateStateValue(gate domain.GateState) float64 {
	switch gate {
	case domain.GateRun:
		return 0
	case domain.GateDegraded:
		return 1
	case domain.GatePaused:
		return 2
	}
	return -1
}

// RecordBar records one processed bar and the gate it resolved to.
func (m *Metrics) RecordBar(symbol string, gate domain.GateState, timestampMs int64) {
	m.BarsProcessed.WithLabelValues(symbol).Inc()
	m.GateState.WithLabelValues(symbol).Set(gateStateValue(gate))
	m.LastBarTimestamp.Set(float64(timestampMs) / 1000)
}

// RecordBarRejected records a rejected bar by reason.
func (m *Metrics) RecordBarRejected(symbol, reason string) {
	m.BarsRejected.WithLabelValues(symbol, reason).Inc()
}

// RecordFill records a settled fill.
func (m *Metrics) RecordFill(symbol string, kind domain.OrderKind) {
	m.OrdersFilled.WithLabelValues(symbol, string(kind)).Inc()
}

// RecordCancel records a canceled order.
func (m *Metrics) RecordCancel(symbol string, reason domain.CancelReason) {
	m.OrdersCanceled.WithLabelValues(symbol, string(reason)).Inc()
}

// RecordPlacement records a placed order.
func (m *Metrics) RecordPlacement(symbol string, kind domain.OrderKind) {
	m.OrdersPlaced.WithLabelValues(symbol, string(kind)).Inc()
}

// RecordSkip records a skipped order intent.
func (m *Metrics) RecordSkip(symbol, note string) {
	m.OrdersSkipped.WithLabelValues(symbol, note).Inc()
}

// RecordPortfolio updates the portfolio gauges.
func (m *Metrics) RecordPortfolio(symbol string, equity, positionQty, realizedPnL, feesPaid float64) {
	m.Equity.WithLabelValues(symbol).Set(equity)
	m.PositionQty.WithLabelValues(symbol).Set(positionQty)
	m.RealizedPnL.WithLabelValues(symbol).Set(realizedPnL)
	m.FeesPaid.WithLabelValues(symbol).Set(feesPaid)
}

// RecordRESTCall records an exchange REST call outcome.
func (m *Metrics) RecordRESTCall(endpoint string, seconds float64, err error) {
	m.RESTCallLatency.WithLabelValues(endpoint).Observe(seconds)
	if err != nil {
		m.RESTCallErrors.WithLabelValues(endpoint).Inc()
	}
}
