package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	t.Run("counts per label", func(t *testing.T) {
		m := New(prometheus.NewRegistry())

		m.Published("Changed")
		m.Published("Changed")
		m.Published("ItemsAdded")
		m.Failed("Changed")

		assert.Equal(t, 2.0, testutil.ToFloat64(m.published.WithLabelValues("Changed")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.published.WithLabelValues("ItemsAdded")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.failed.WithLabelValues("Changed")))
	})

	t.Run("splits accepted and rejected work", func(t *testing.T) {
		m := New(prometheus.NewRegistry())

		m.Scheduled("dispatcher", nil)
		m.Scheduled("dispatcher", errors.New("full"))

		assert.Equal(t, 1.0, testutil.ToFloat64(m.scheduled.WithLabelValues("dispatcher", "accepted")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.scheduled.WithLabelValues("dispatcher", "rejected")))
	})

	t.Run("records cache results and slow actions", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		m := New(reg)

		m.CacheHit()
		m.CacheMiss()
		m.CacheMiss()
		m.Slow("dispatcher", 300*time.Millisecond)

		assert.Equal(t, 1.0, testutil.ToFloat64(m.fieldLookups.WithLabelValues("hit")))
		assert.Equal(t, 2.0, testutil.ToFloat64(m.fieldLookups.WithLabelValues("miss")))

		count, err := testutil.GatherAndCount(reg, "reactive_scheduler_slow_action_seconds")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("separate registries do not collide", func(t *testing.T) {
		assert.NotPanics(t, func() {
			New(prometheus.NewRegistry())
			New(prometheus.NewRegistry())
		})
	})

	t.Run("nil metrics are a no-op", func(t *testing.T) {
		var m *Metrics

		assert.NotPanics(t, func() {
			m.Published("x")
			m.Failed("x")
			m.Scheduled("x", nil)
			m.Slow("x", time.Second)
			m.CacheHit()
			m.CacheMiss()
		})
	})
}
