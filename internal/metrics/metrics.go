// Package metrics exposes engine counters to Prometheus.
//
// A nil *Metrics is valid and records nothing, so components can take an
// optional collector without guarding every call site.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "echokey"

// Expansion sources.
const (
	SourceTrigger    = "trigger"
	SourceSuggestion = "suggestion"
)

// Flush results.
const (
	FlushOK      = "ok"
	FlushFailed  = "failed"
	FlushSkipped = "skipped"
)

// Metrics holds the collectors for one process.
type Metrics struct {
	expansions  *prometheus.CounterVec
	suggestions prometheus.Counter
	flushes     *prometheus.CounterVec
	recovered   prometheus.Counter
	mappingSize prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg skips
// registration, which keeps tests from colliding on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		expansions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expansions_total",
			Help:      "Snippet expansions performed, by how they were triggered.",
		}, []string{"source"}),
		suggestions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_shown_total",
			Help:      "Times the suggestion overlay was opened or refreshed.",
		}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stats_flushes_total",
			Help:      "Stats flush attempts, by result.",
		}, []string{"result"}),
		recovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stats_pending_recovered_total",
			Help:      "Expansions recovered from a pending stats record left by teardown.",
		}),
		mappingSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mapping_snippets",
			Help:      "Entries in the effective snippet mapping after the last reload.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.expansions, m.suggestions, m.flushes, m.recovered, m.mappingSize)
	}
	return m
}

// Expansion counts one expansion from source.
func (m *Metrics) Expansion(source string) {
	if m == nil {
		return
	}
	m.expansions.WithLabelValues(source).Inc()
}

// SuggestionsShown counts one overlay render.
func (m *Metrics) SuggestionsShown() {
	if m == nil {
		return
	}
	m.suggestions.Inc()
}

// Flush counts one flush attempt with result.
func (m *Metrics) Flush(result string) {
	if m == nil {
		return
	}
	m.flushes.WithLabelValues(result).Inc()
}

// PendingRecovered adds n recovered expansions.
func (m *Metrics) PendingRecovered(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recovered.Add(float64(n))
}

// MappingSize records the size of the effective mapping.
func (m *Metrics) MappingSize(n int) {
	if m == nil {
		return
	}
	m.mappingSize.Set(float64(n))
}
