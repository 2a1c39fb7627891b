// Package metrics exposes prometheus counters for the change propagation engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reactive"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	// published counts publishes per stream.
	// Labels: stream
	published *prometheus.CounterVec

	// failed counts subscribers detached after panicking.
	// Labels: stream
	failed *prometheus.CounterVec

	// scheduled counts work handed to a scheduler.
	// Labels: scheduler, status (accepted, rejected)
	scheduled *prometheus.CounterVec

	// slow measures scheduled actions that ran over their budget.
	// Labels: scheduler
	slow *prometheus.HistogramVec

	// fieldLookups counts backing field resolutions.
	// Labels: result (hit, miss)
	fieldLookups *prometheus.CounterVec
}

// New registers the engine's collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		published: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "published_total",
			Help:      "Change notifications published",
		}, []string{"stream"}),
		failed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "subscriber_failures_total",
			Help:      "Subscribers detached after failing during a publish",
		}, []string{"stream"}),
		scheduled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "actions_total",
			Help:      "Actions handed to a scheduler by status",
		}, []string{"scheduler", "status"}),
		slow: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "slow_action_seconds",
			Help:      "Duration of scheduled actions that exceeded their budget",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"scheduler"}),
		fieldLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fieldcache",
			Name:      "lookups_total",
			Help:      "Backing field lookups by cache result",
		}, []string{"result"}),
	}
}

func (m *Metrics) Published(stream string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(stream).Inc()
}

func (m *Metrics) Failed(stream string) {
	if m == nil {
		return
	}
	m.failed.WithLabelValues(stream).Inc()
}

// Scheduled records whether a scheduler accepted a piece of work.
func (m *Metrics) Scheduled(scheduler string, err error) {
	if m == nil {
		return
	}

	status := "accepted"
	if err != nil {
		status = "rejected"
	}
	m.scheduled.WithLabelValues(scheduler, status).Inc()
}

func (m *Metrics) Slow(scheduler string, d time.Duration) {
	if m == nil {
		return
	}
	m.slow.WithLabelValues(scheduler).Observe(d.Seconds())
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.fieldLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.fieldLookups.WithLabelValues("miss").Inc()
}
