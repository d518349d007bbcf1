package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Execution outcomes recorded by Metrics.
const (
	outcomeOK      = "ok"
	outcomeEmpty   = "empty"
	outcomeBackend = "backend_error"
)

// Metrics instruments executions. A nil *Metrics records nothing.
type Metrics struct {
	executions   *prometheus.CounterVec
	queries      prometheus.Counter
	frames       prometheus.Counter
	queryErrors  prometheus.Counter
	entityLookup prometheus.Counter
	latency      prometheus.Histogram
}

// NewMetrics creates the engine collectors and registers them with reg
// when it is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chronoquery_executions_total",
			Help: "Query executions by outcome.",
		}, []string{"outcome"}),
		queries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronoquery_expanded_queries_total",
			Help: "Expanded queries sent to the backend.",
		}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronoquery_frames_total",
			Help: "Frames materialized from backend results.",
		}),
		queryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronoquery_query_errors_total",
			Help: "Per-refId errors reported by the backend.",
		}),
		entityLookup: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronoquery_entity_lookups_total",
			Help: "Picker entity resolutions.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chronoquery_execution_duration_seconds",
			Help:    "Wall time of Execute including the backend round trip.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.executions, m.queries, m.frames, m.queryErrors, m.entityLookup, m.latency)
	}
	return m
}

func (m *Metrics) observeExecution(outcome string, queries, frames, failures int, d time.Duration) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(outcome).Inc()
	m.queries.Add(float64(queries))
	m.frames.Add(float64(frames))
	m.queryErrors.Add(float64(failures))
	if outcome != outcomeEmpty {
		m.latency.Observe(d.Seconds())
	}
}

func (m *Metrics) observeEntityLookup() {
	if m == nil {
		return
	}
	m.entityLookup.Inc()
}
