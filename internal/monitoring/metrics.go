package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the Prometheus series of the signal bot. Each instance owns
// its registry so several bots or tests never collide.
type Metrics struct {
	registry *prometheus.Registry

	decisionsTotal   *prometheus.CounterVec
	notifyTotal      *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	currentPrice     *prometheus.GaugeVec
	signalConfidence *prometheus.GaugeVec
	stateRecords     *prometheus.GaugeVec
	roundDuration    prometheus.Histogram
}

// NewMetrics creates and registers the series
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_bot_decisions_total",
				Help: "Gate decisions per detected signal",
			},
			[]string{"detector", "symbol", "timeframe", "decision"},
		),
		notifyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_bot_notifications_total",
				Help: "Notification attempts by channel and result",
			},
			[]string{"channel", "result"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_bot_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type"},
		),
		currentPrice: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signal_bot_last_price",
				Help: "Last close seen per symbol and timeframe",
			},
			[]string{"symbol", "timeframe"},
		),
		signalConfidence: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signal_bot_signal_confidence",
				Help: "Confidence of the latest signal",
			},
			[]string{"detector", "symbol"},
		),
		stateRecords: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signal_bot_state_records",
				Help: "Records held by the dedup state",
			},
			[]string{"kind"},
		),
		roundDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "signal_bot_round_duration_seconds",
				Help:    "Duration of one polling round",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	m.registry.MustRegister(
		m.decisionsTotal,
		m.notifyTotal,
		m.errorsTotal,
		m.currentPrice,
		m.signalConfidence,
		m.stateRecords,
		m.roundDuration,
	)
	return m
}

// Registry exposes the registry for tests and custom collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordDecision counts one gate decision
func (m *Metrics) RecordDecision(detector, symbol, timeframe, decision string) {
	m.decisionsTotal.WithLabelValues(detector, symbol, timeframe, decision).Inc()
}

// RecordNotification counts a delivery attempt
func (m *Metrics) RecordNotification(channel string, delivered bool) {
	result := "delivered"
	if !delivered {
		result = "failed"
	}
	m.notifyTotal.WithLabelValues(channel, result).Inc()
}

// RecordError records an error metric
func (m *Metrics) RecordError(errorType string) {
	m.errorsTotal.WithLabelValues(errorType).Inc()
}

// UpdatePrice updates the last price metric
func (m *Metrics) UpdatePrice(symbol, timeframe string, price float64) {
	m.currentPrice.WithLabelValues(symbol, timeframe).Set(price)
}

// UpdateConfidence updates the signal confidence metric
func (m *Metrics) UpdateConfidence(detector, symbol string, confidence float64) {
	m.signalConfidence.WithLabelValues(detector, symbol).Set(confidence)
}

// UpdateStateRecords sets the cooldown and key-level record counts
func (m *Metrics) UpdateStateRecords(cooldowns, keyLevels int) {
	m.stateRecords.WithLabelValues("cooldown").Set(float64(cooldowns))
	m.stateRecords.WithLabelValues("key_level").Set(float64(keyLevels))
}

// ObserveRound records how long a polling round took
func (m *Metrics) ObserveRound(d time.Duration) {
	m.roundDuration.Observe(d.Seconds())
}
