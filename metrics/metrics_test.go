package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewIsSingleton(t *testing.T) {
	assert.Same(t, New(), New())
}

func TestObserve(t *testing.T) {
	m := New()

	before := testutil.ToFloat64(m.DispatchTotal.WithLabelValues("Designate", "ok"))
	m.Observe("Designate", "ok", 0, 10*time.Millisecond)
	m.Observe("Designate", "invalid", 3, time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(m.DispatchTotal.WithLabelValues("Designate", "ok")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.Violations.WithLabelValues("Designate")), 3.0)

	m.Begin()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InFlight))
	m.End()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Observe("Save", "ok", 0, time.Second)
	m.Begin()
	m.End()
}
