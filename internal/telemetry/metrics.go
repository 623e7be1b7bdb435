package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exports engine counters to Prometheus.
type Metrics struct {
	registry    *prometheus.Registry
	sessions    *prometheus.CounterVec
	answers     *prometheus.CounterVec
	persistence *prometheus.CounterVec
}

// NewMetrics registers the counters on a fresh registry together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "iqplay",
			Name:      "sessions_total",
			Help:      "Quiz rounds by lifecycle event.",
		}, []string{"event"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "iqplay",
			Name:      "answers_total",
			Help:      "Recorded answers by outcome.",
		}, []string{"outcome"}),
		persistence: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "iqplay",
			Name:      "persistence_failures_total",
			Help:      "Failed writes while finalizing a round.",
		}, []string{"op"}),
	}
	reg.MustRegister(
		m.sessions,
		m.answers,
		m.persistence,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) SessionStarted()   { m.sessions.WithLabelValues("started").Inc() }
func (m *Metrics) SessionCompleted() { m.sessions.WithLabelValues("completed").Inc() }
func (m *Metrics) SessionAbandoned() { m.sessions.WithLabelValues("abandoned").Inc() }

func (m *Metrics) AnswerRecorded(outcome string) {
	m.answers.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PersistenceFailed(op string) {
	m.persistence.WithLabelValues(op).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
