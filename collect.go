package reactive

import (
	"slices"
	"time"
)

// CollectFrom returns an empty collection that items are added to one by one on sched.
// With a positive interval each item waits that long after the previous one, the first included;
// otherwise they are all handed to sched at once, in order.
// A nil sched means the collection app's deferred scheduler.
func CollectFrom[T any](items []T, interval time.Duration, sched Scheduler, opts ...Option) *Collection[T] {
	c := NewCollection[T](nil, opts...)

	app := c.App()
	if sched == nil {
		sched = app.DeferredScheduler()
	}
	s := metered(app, "collect", sched)

	fail := func(err error, pending int) {
		app.Logger().With("err", err, "pending", pending).Error("could not schedule collected item")
	}

	if interval <= 0 {
		for i, item := range items {
			if err := s.Schedule(func() { c.Add(item) }); err != nil {
				fail(err, len(items)-i)
				return c
			}
		}

		return c
	}

	var step func(rest []T)
	step = func(rest []T) {
		if len(rest) == 0 {
			return
		}

		err := s.ScheduleAfter(interval, func() {
			c.Add(rest[0])
			step(rest[1:])
		})
		if err != nil {
			fail(err, len(rest))
		}
	}
	step(slices.Clone(items))

	return c
}
