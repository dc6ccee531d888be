package http

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var eventBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics counts handled WebSocket events.
type Metrics struct {
	events   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg. Collectors that are already
// registered (e.g. a second handler in tests) are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studysphere",
			Subsystem: "ws",
			Name:      "events_total",
			Help:      "Count of handled WebSocket events",
		}, []string{"type", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "studysphere",
			Subsystem: "ws",
			Name:      "event_duration_seconds",
			Help:      "Latency distribution of WebSocket event handling",
			Buckets:   eventBuckets,
		}, []string{"type"}),
	}
	if err := reg.Register(m.events); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			m.events = are.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	if err := reg.Register(m.duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			m.duration = are.ExistingCollector.(*prometheus.HistogramVec)
		}
	}
	return m
}

func (m *Metrics) observe(eventType, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.events.With(prometheus.Labels{"type": eventType, "outcome": outcome}).Inc()
	m.duration.With(prometheus.Labels{"type": eventType}).Observe(elapsed.Seconds())
}
