package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"
	"pkt.systems/pslog"
)

// Dispatcher serializes all of its work onto a single goroutine, the way a UI loop does.
type Dispatcher struct {
	mu     sync.RWMutex
	closed bool

	queue chan func()
	done  chan struct{}

	// id of the goroutine draining the queue
	gid atomic.Int64

	log pslog.Logger
}

// NewDispatcher starts a dispatcher accepting up to depth pending actions.
func NewDispatcher(depth int, log pslog.Logger) *Dispatcher {
	if depth <= 0 {
		depth = 1
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}

	d := &Dispatcher{
		queue: make(chan func(), depth),
		done:  make(chan struct{}),
		log:   log,
	}

	started := make(chan struct{})
	go d.loop(started)
	<-started

	return d
}

func (d *Dispatcher) loop(started chan<- struct{}) {
	d.gid.Store(goid.Get())
	close(started)

	for {
		select {
		case action := <-d.queue:
			d.run(action)
		case <-d.done:
			return
		}
	}
}

func (d *Dispatcher) run(action func()) {
	defer func() {
		if r := recover(); r != nil {
			d.log.With("err", panicError(r)).Error("dispatcher action panicked")
		}
	}()

	action()
}

func (d *Dispatcher) Now() time.Time {
	return time.Now()
}

func (d *Dispatcher) Schedule(action func()) error {
	if action == nil {
		return ErrNilAction
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrSchedulerClosed
	}

	select {
	case d.queue <- action:
		return nil
	default:
		return ErrSchedulerFull
	}
}

func (d *Dispatcher) ScheduleAfter(delay time.Duration, action func()) error {
	if delay <= 0 {
		return d.Schedule(action)
	}
	if action == nil {
		return ErrNilAction
	}
	if d.isClosed() {
		return ErrSchedulerClosed
	}

	time.AfterFunc(delay, func() {
		if err := d.Schedule(action); err != nil {
			d.log.With("err", err, "delay", delay).Warn("dropped delayed dispatcher action")
		}
	})

	return nil
}

// CheckAccess reports whether the caller is running on the dispatcher goroutine.
func (d *Dispatcher) CheckAccess() bool {
	return goid.Get() == d.gid.Load()
}

// Close stops the dispatcher. Pending actions are dropped.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}

	d.closed = true
	close(d.done)

	return nil
}

func (d *Dispatcher) isClosed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.closed
}
