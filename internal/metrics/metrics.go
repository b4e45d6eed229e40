package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Record outcomes
const (
	OutcomeImported  = "imported"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// Metrics holds the engine collectors
type Metrics struct {
	runs        *prometheus.CounterVec
	records     *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	decisions   *prometheus.CounterVec
	running     prometheus.Gauge
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_runs_total",
			Help: "Finished source runs by terminal status.",
		}, []string{"source", "status"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_records_total",
			Help: "Processed raw events by outcome.",
		}, []string{"source", "outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ingest_run_duration_seconds",
			Help:    "Wall time of source runs.",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"source"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_publish_decisions_total",
			Help: "Publish decisions by resulting status.",
		}, []string{"decision"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ingest_running_runs",
			Help: "Runs currently owned by this process.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.runs, m.records, m.runDuration, m.decisions, m.running)
	}
	return m
}

// RunStarted increments the running gauge
func (m *Metrics) RunStarted() {
	m.running.Inc()
}

// RunFinished records a terminal run
func (m *Metrics) RunFinished(source, status string, took time.Duration) {
	m.running.Dec()
	m.runs.WithLabelValues(source, status).Inc()
	m.runDuration.WithLabelValues(source).Observe(took.Seconds())
}

// Record counts one processed raw event
func (m *Metrics) Record(source, outcome string) {
	m.records.WithLabelValues(source, outcome).Inc()
}

// Decision counts one publish decision
func (m *Metrics) Decision(decision string) {
	m.decisions.WithLabelValues(decision).Inc()
}
