package scheduler

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"pkt.systems/pslog"
)

// Taskpool runs work concurrently on a bounded set of goroutines, in no particular order.
type Taskpool struct {
	group errgroup.Group
	log   pslog.Logger
}

// NewTaskpool creates a pool running at most workers actions at once.
// workers <= 0 means no limit.
func NewTaskpool(workers int, log pslog.Logger) *Taskpool {
	if log == nil {
		log = pslog.Ctx(context.Background())
	}

	t := &Taskpool{log: log}
	if workers > 0 {
		t.group.SetLimit(workers)
	} else {
		t.group.SetLimit(-1)
	}

	return t
}

func (t *Taskpool) Now() time.Time {
	return time.Now()
}

func (t *Taskpool) Schedule(action func()) error {
	if action == nil {
		return ErrNilAction
	}

	ok := t.group.TryGo(func() error {
		t.run(action)
		return nil
	})
	if !ok {
		return ErrSchedulerFull
	}

	return nil
}

func (t *Taskpool) ScheduleAfter(delay time.Duration, action func()) error {
	if delay <= 0 {
		return t.Schedule(action)
	}
	if action == nil {
		return ErrNilAction
	}

	time.AfterFunc(delay, func() {
		if err := t.Schedule(action); err != nil {
			t.log.With("err", err, "delay", delay).Warn("dropped delayed taskpool action")
		}
	})

	return nil
}

// Wait blocks until every action handed to the pool so far has finished.
func (t *Taskpool) Wait() {
	_ = t.group.Wait()
}

func (t *Taskpool) run(action func()) {
	defer func() {
		if r := recover(); r != nil {
			t.log.With("err", panicError(r)).Error("taskpool action panicked")
		}
	}()

	action()
}
