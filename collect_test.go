package reactive

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectFrom(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	t.Run("on a timer", func(t *testing.T) {
		sched := NewTestScheduler()

		var c *Collection[int]
		WithScheduler(sched, func() {
			c = CollectFrom(items, 500*time.Millisecond, nil)
		})
		assert.Zero(t, c.Len())

		require.NoError(t, sched.AdvanceTo(1005*time.Millisecond))
		assert.Equal(t, []int{1, 2}, c.Items())

		require.NoError(t, sched.AdvanceTo(1505*time.Millisecond))
		assert.Equal(t, []int{1, 2, 3}, c.Items())

		require.NoError(t, sched.AdvanceTo(10*time.Second))
		assert.Equal(t, items, c.Items())
		assert.Zero(t, sched.Pending())
	})

	t.Run("without a timer", func(t *testing.T) {
		sched := NewTestScheduler()

		var c *Collection[int]
		WithScheduler(sched, func() {
			c = CollectFrom(items, 0, nil)
		})
		assert.Zero(t, c.Len())

		require.NoError(t, sched.AdvanceBy(time.Millisecond))
		assert.Equal(t, items, c.Items())
	})

	t.Run("runs inline under the test runner", func(t *testing.T) {
		c := CollectFrom(items, 0, nil)
		assert.Equal(t, items, c.Items())
	})

	t.Run("on an explicit scheduler", func(t *testing.T) {
		sched := NewTestScheduler()
		c := CollectFrom(items, time.Second, sched)

		added := []int{}
		c.ItemsAdded().Subscribe(func(v int) { added = append(added, v) })

		require.NoError(t, sched.Run())
		assert.Equal(t, items, added)
		assert.Equal(t, 5*time.Second, sched.Clock())
	})

	t.Run("counts and logs rejected work", func(t *testing.T) {
		buf := &bytes.Buffer{}
		app := newTestApp(t, buf)

		c := CollectFrom(items, 0, rejecting{}, WithApp(app))

		assert.Zero(t, c.Len())
		assert.Contains(t, buf.String(), "could not schedule collected item")
		series, err := testutil.GatherAndCount(app.Gatherer(), "reactive_scheduler_actions_total")
		require.NoError(t, err)
		assert.Equal(t, 1, series)
	})
}

type rejecting struct{}

func (rejecting) Now() time.Time { return time.Time{} }

func (rejecting) Schedule(func()) error { return ErrSchedulerFull }

func (rejecting) ScheduleAfter(time.Duration, func()) error { return ErrSchedulerFull }
