package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vibetrading/sim-backend/pkg/types"
)

// Metrics holds the server's Prometheus instruments on a private registry
// so multiple servers can coexist in tests.
type Metrics struct {
	registry     *prometheus.Registry
	runsCreated  prometheus.Counter
	runsFinished *prometheus.CounterVec
	runsInFlight prometheus.Gauge
	runDuration  prometheus.Histogram
}

// NewMetrics creates and registers the instruments.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vibetrading",
			Name:      "runs_created_total",
			Help:      "Backtest runs accepted by the registry.",
		}),
		runsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vibetrading",
			Name:      "runs_finished_total",
			Help:      "Backtest runs that reached a terminal state.",
		}, []string{"state"}),
		runsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vibetrading",
			Name:      "runs_in_flight",
			Help:      "Runs currently executing.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vibetrading",
			Name:      "run_duration_seconds",
			Help:      "Total pipeline execution time per finished run.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
	m.registry.MustRegister(m.runsCreated, m.runsFinished, m.runsInFlight, m.runDuration)
	return m
}

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RunCreated records an accepted run.
func (m *Metrics) RunCreated() {
	m.runsCreated.Inc()
	m.runsInFlight.Inc()
}

// RunFinished records a terminal transition and the pipeline's total
// execution time.
func (m *Metrics) RunFinished(state types.RunState, duration time.Duration) {
	m.runsFinished.WithLabelValues(string(state)).Inc()
	m.runsInFlight.Dec()
	m.runDuration.Observe(duration.Seconds())
}
