package database

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts executed statements and observes their duration, labelled
// by dialect and statement verb.
type Metrics struct {
	queries  *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "database",
			Name:      "queries_total",
			Help:      "Statements executed by the driver.",
		}, []string{"dialect", "verb"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "database",
			Name:      "query_errors_total",
			Help:      "Statements rejected by the engine.",
		}, []string{"dialect", "verb"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "database",
			Name:      "query_duration_seconds",
			Help:      "Time spent executing statements.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"dialect", "verb"}),
	}
	for _, c := range []prometheus.Collector{m.queries, m.errors, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(dialect, verb string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(dialect, verb).Inc()
	if err != nil {
		m.errors.WithLabelValues(dialect, verb).Inc()
	}
	m.duration.WithLabelValues(dialect, verb).Observe(time.Since(start).Seconds())
}
