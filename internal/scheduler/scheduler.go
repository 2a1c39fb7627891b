// Package scheduler decides when and where a unit of work runs.
package scheduler

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNilAction        = errors.New("scheduler: nil action")
	ErrSchedulerFull    = errors.New("scheduler: no capacity for more work")
	ErrSchedulerClosed  = errors.New("scheduler: closed")
	ErrReentrantAdvance = errors.New("scheduler: virtual clock is already advancing")
)

// Scheduler runs work now or after a delay on some execution context.
// Scheduling never blocks; a scheduler that cannot take the work says so through the returned error.
type Scheduler interface {
	Now() time.Time
	Schedule(action func()) error
	ScheduleAfter(delay time.Duration, action func()) error
}

// Immediate runs work synchronously on the calling goroutine.
// Delayed work is handed to a runtime timer.
type Immediate struct{}

func NewImmediate() Immediate {
	return Immediate{}
}

func (Immediate) Now() time.Time {
	return time.Now()
}

func (Immediate) Schedule(action func()) error {
	if action == nil {
		return ErrNilAction
	}

	action()
	return nil
}

func (i Immediate) ScheduleAfter(delay time.Duration, action func()) error {
	if delay <= 0 {
		return i.Schedule(action)
	}
	if action == nil {
		return ErrNilAction
	}

	time.AfterFunc(delay, action)
	return nil
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}

	return fmt.Errorf("%v", r)
}
