package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "remindme"

// Metrics exposes Prometheus collectors for skill dispatch and reminder delivery.
type Metrics struct {
	dispatches      *prometheus.CounterVec
	dispatchLatency *prometheus.HistogramVec
	deliveries      *prometheus.CounterVec
}

// MustNewMetrics registers the collectors with reg and panics on a
// registration conflict. Tests should pass a fresh registry.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "skill",
				Name:      "dispatches_total",
				Help:      "Skill requests dispatched, by request type, intent and outcome.",
			},
			[]string{"type", "intent", "outcome"},
		),
		dispatchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "skill",
				Name:      "dispatch_duration_seconds",
				Help:      "Time spent handling a skill request.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "deliveries_total",
				Help:      "Due reminders handed to the notifier, by outcome.",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(m.dispatches, m.dispatchLatency, m.deliveries)
	return m
}

// ObserveDispatch records one handled request. intent is empty for
// non-intent requests.
func (m *Metrics) ObserveDispatch(requestType, intent string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	if intent == "" {
		intent = "none"
	}
	m.dispatches.WithLabelValues(requestType, intent, outcome(err)).Inc()
	m.dispatchLatency.WithLabelValues(requestType).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveDelivery(err error) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
