// Package metrics instruments the ban workflow. All methods are safe on a
// nil receiver so wiring metrics stays optional in tests and tooling.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	bansCreated    prometheus.Counter
	bansUpdated    prometheus.Counter
	bansDeleted    prometheus.Counter
	approvals      *prometheus.CounterVec
	violations     prometheus.Counter
	createDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		bansCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "venue",
			Subsystem: "bans",
			Name:      "created_total",
			Help:      "Bans created.",
		}),
		bansUpdated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "venue",
			Subsystem: "bans",
			Name:      "updated_total",
			Help:      "Bans updated.",
		}),
		bansDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "venue",
			Subsystem: "bans",
			Name:      "deleted_total",
			Help:      "Bans deleted.",
		}),
		approvals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue",
			Subsystem: "bans",
			Name:      "approvals_total",
			Help:      "Per-place approval decisions by outcome.",
		}, []string{"outcome"}),
		violations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "venue",
			Subsystem: "bans",
			Name:      "violations_total",
			Help:      "Violations recorded against existing bans.",
		}),
		createDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "venue",
			Subsystem: "bans",
			Name:      "create_duration_seconds",
			Help:      "Latency of ban creation including the conflict checks.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) BanCreated() {
	if m == nil {
		return
	}
	m.bansCreated.Inc()
}

func (m *Metrics) BanUpdated() {
	if m == nil {
		return
	}
	m.bansUpdated.Inc()
}

func (m *Metrics) BanDeleted() {
	if m == nil {
		return
	}
	m.bansDeleted.Inc()
}

func (m *Metrics) ApprovalDecided(outcome string) {
	if m == nil {
		return
	}
	m.approvals.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ViolationRecorded() {
	if m == nil {
		return
	}
	m.violations.Inc()
}

func (m *Metrics) ObserveCreateDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.createDuration.Observe(d.Seconds())
}
