package scheduler

import (
	"context"
	"time"

	"pkt.systems/pslog"
)

// Stopwatch wraps a scheduler and reports actions that run longer than a limit.
// On a UI dispatcher such an action is one that kept the screen from redrawing.
type Stopwatch struct {
	inner Scheduler
	limit time.Duration
	log   pslog.Logger

	// called with the measured duration of every slow action
	onSlow func(time.Duration)
}

func NewStopwatch(inner Scheduler, limit time.Duration, log pslog.Logger, onSlow func(time.Duration)) *Stopwatch {
	if log == nil {
		log = pslog.Ctx(context.Background())
	}

	return &Stopwatch{
		inner:  inner,
		limit:  limit,
		log:    log,
		onSlow: onSlow,
	}
}

// Inner returns the wrapped scheduler.
func (s *Stopwatch) Inner() Scheduler {
	return s.inner
}

func (s *Stopwatch) Now() time.Time {
	return s.inner.Now()
}

func (s *Stopwatch) Schedule(action func()) error {
	if action == nil {
		return ErrNilAction
	}

	return s.inner.Schedule(s.wrap(action))
}

func (s *Stopwatch) ScheduleAfter(delay time.Duration, action func()) error {
	if action == nil {
		return ErrNilAction
	}

	return s.inner.ScheduleAfter(delay, s.wrap(action))
}

func (s *Stopwatch) wrap(action func()) func() {
	return func() {
		start := time.Now()
		defer func() {
			elapsed := time.Since(start)
			if elapsed <= s.limit {
				return
			}

			s.log.With("elapsed", elapsed, "limit", s.limit).Warn("scheduled action exceeded its time budget")
			if s.onSlow != nil {
				s.onSlow(elapsed)
			}
		}()

		action()
	}
}
