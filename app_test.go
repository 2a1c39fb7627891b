package reactive

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulers(t *testing.T) {
	t.Run("the test runner is detected", func(t *testing.T) {
		assert.True(t, InUnitTestRunner())
		assert.True(t, DefaultApp().InTestMode())
	})

	t.Run("overrides are scoped to the goroutine", func(t *testing.T) {
		sched := NewTestScheduler()
		before := DeferredScheduler()

		WithScheduler(sched, func() {
			assert.Same(t, sched, DeferredScheduler())
			assert.Same(t, sched, TaskpoolScheduler())

			var other Scheduler
			var wg sync.WaitGroup
			wg.Go(func() { other = DeferredScheduler() })
			wg.Wait()

			assert.NotEqual(t, Scheduler(sched), other)
		})

		assert.Equal(t, before, DeferredScheduler())
	})

	t.Run("objects keep the app they were created under", func(t *testing.T) {
		sched := NewTestScheduler()

		var c *Collection[int]
		WithScheduler(sched, func() {
			c = NewCollection([]int{})
		})

		assert.Same(t, sched, c.App().DeferredScheduler())
	})

	t.Run("observe on a test scheduler", func(t *testing.T) {
		sched := NewTestScheduler()
		c := NewCollection([]int{})

		added := []int{}
		ObserveOn(c.ItemsAdded(), sched).Subscribe(func(v int) { added = append(added, v) })

		c.Add(1)
		c.Add(2)
		assert.Empty(t, added)
		assert.Equal(t, 2, sched.Pending())

		require.NoError(t, sched.AdvanceBy(time.Millisecond))
		assert.Equal(t, []int{1, 2}, added)
	})

	t.Run("observe on reports rejected work", func(t *testing.T) {
		c := NewCollection([]int{})

		var failure error
		ObserveOn(c.ItemsAdded(), rejecting{}).Observe(Observer[int]{
			Next:  func(int) {},
			Error: func(err error) { failure = err },
		})
		c.Add(1)

		assert.ErrorIs(t, failure, ErrSchedulerFull)
	})

	t.Run("load config from a file", func(t *testing.T) {
		_, err := LoadConfig(t.TempDir() + "/missing.yaml")
		require.NoError(t, err)
	})
}
