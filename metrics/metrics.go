package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	ExecutionsTotal    *prometheus.CounterVec
	ExecutionDuration  *prometheus.HistogramVec
	ExecutionsInFlight *prometheus.GaugeVec
	ProcessKillsTotal  *prometheus.CounterVec
}

// New creates and registers all collectors on registry, together with the Go
// runtime and process collectors.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		ExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coderunner_executions_total",
				Help: "Total number of execution requests by language and outcome",
			},
			[]string{"language", "outcome"},
		),
		ExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coderunner_execution_duration_seconds",
				Help:    "Wall-clock duration of execution requests",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15},
			},
			[]string{"language", "outcome"},
		),
		ExecutionsInFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coderunner_executions_in_flight",
				Help: "Executions currently holding a workspace",
			},
			[]string{"language"},
		),
		ProcessKillsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coderunner_process_kills_total",
				Help: "Process trees terminated before exiting on their own",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(
		m.ExecutionsTotal,
		m.ExecutionDuration,
		m.ExecutionsInFlight,
		m.ProcessKillsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ExecutionStarted marks an execution as in flight.
func (m *Metrics) ExecutionStarted(language string) {
	m.ExecutionsInFlight.WithLabelValues(language).Inc()
}

// ExecutionFinished records the outcome. Validation failures never started,
// so they do not touch the in-flight gauge.
func (m *Metrics) ExecutionFinished(language, outcome string, duration time.Duration) {
	m.ExecutionsTotal.WithLabelValues(language, outcome).Inc()
	m.ExecutionDuration.WithLabelValues(language, outcome).Observe(duration.Seconds())
	if outcome != "validation_failure" {
		m.ExecutionsInFlight.WithLabelValues(language).Dec()
	}
}

// ProcessKilled counts a forced termination.
func (m *Metrics) ProcessKilled(reason string) {
	m.ProcessKillsTotal.WithLabelValues(reason).Inc()
}
