// Package metrics exposes Prometheus instrumentation for workflow dispatches.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	global *Metrics
	once   sync.Once
)

// Metrics holds the dispatcher collectors.
//
//   - hedger_dispatch_total{action,outcome} - dispatches by result
//   - hedger_dispatch_duration_seconds{action} - end-to-end dispatch latency
//   - hedger_guard_violations_total{action} - violations returned to users
//   - hedger_dispatch_inflight - transitions awaiting the backend
type Metrics struct {
	DispatchTotal    *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
	Violations       *prometheus.CounterVec
	InFlight         prometheus.Gauge
}

// New registers the collectors with the default registry once per process.
func New() *Metrics {
	once.Do(func() {
		global = &Metrics{
			DispatchTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hedger_dispatch_total",
					Help: "Workflow dispatches by action and outcome",
				},
				[]string{"action", "outcome"},
			),
			DispatchDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "hedger_dispatch_duration_seconds",
					Help:    "Time from dispatch to commit or failure",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"action"},
			),
			Violations: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hedger_guard_violations_total",
					Help: "Guard violations reported to users",
				},
				[]string{"action"},
			),
			InFlight: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "hedger_dispatch_inflight",
					Help: "Transitions currently awaiting the backend",
				},
			),
		}
	})
	return global
}

// Observe records one finished dispatch. A nil receiver is a no-op so
// callers need not check whether metrics are enabled.
func (m *Metrics) Observe(action, outcome string, violations int, d time.Duration) {
	if m == nil {
		return
	}
	m.DispatchTotal.WithLabelValues(action, outcome).Inc()
	m.DispatchDuration.WithLabelValues(action).Observe(d.Seconds())
	if violations > 0 {
		m.Violations.WithLabelValues(action).Add(float64(violations))
	}
}

func (m *Metrics) Begin() {
	if m != nil {
		m.InFlight.Inc()
	}
}

func (m *Metrics) End() {
	if m != nil {
		m.InFlight.Dec()
	}
}
