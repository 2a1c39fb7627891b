package stream

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"pkt.systems/pslog"
)

// ErrSubscriberPanic wraps whatever a subscriber panicked with during a publish.
var ErrSubscriberPanic = errors.New("stream: subscriber panicked")

// Disposable releases a resource. Calling Dispose more than once is a no-op.
type Disposable interface {
	Dispose()
}

type disposable struct {
	once sync.Once
	fn   func()
}

func (d *disposable) Dispose() {
	d.once.Do(d.fn)
}

// NewDisposable returns a Disposable running fn exactly once.
func NewDisposable(fn func()) Disposable {
	return &disposable{fn: fn}
}

// Composite disposes every child in order.
func Composite(children ...Disposable) Disposable {
	return NewDisposable(func() {
		for _, child := range children {
			if child != nil {
				child.Dispose()
			}
		}
	})
}

// Observer receives the values of an Observable.
// Error is called at most once, after which no more values arrive.
type Observer[T any] struct {
	Next  func(T)
	Error func(error)
}

// Observable is anything that can be subscribed to.
type Observable[T any] interface {
	Subscribe(next func(T)) Disposable
	Observe(o Observer[T]) Disposable
}

// Monitor is told about every publish and every subscriber failure.
type Monitor interface {
	Published(stream string)
	Failed(stream string)
}

type settings struct {
	log     pslog.Logger
	monitor Monitor
}

// Option configures a Subject.
type Option func(*settings)

// WithLogger sets the logger used to report subscriber failures.
func WithLogger(log pslog.Logger) Option {
	return func(s *settings) {
		s.log = log
	}
}

// WithMonitor sets the publish/failure monitor.
func WithMonitor(m Monitor) Option {
	return func(s *settings) {
		s.monitor = m
	}
}

type subscription[T any] struct {
	observer Observer[T]
	closed   atomic.Bool
}

// Subject is a hot, synchronous change stream.
// Publish delivers to every current subscriber on the calling goroutine, in subscription order.
type Subject[T any] struct {
	mu   sync.Mutex
	name string
	subs []*subscription[T]

	log     pslog.Logger
	monitor Monitor
}

func NewSubject[T any](name string, opts ...Option) *Subject[T] {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}

	if s.log == nil {
		s.log = pslog.Ctx(context.Background())
	}

	return &Subject[T]{
		name:    name,
		log:     s.log,
		monitor: s.monitor,
	}
}

func (s *Subject[T]) Name() string {
	return s.name
}

// Len returns the number of live subscriptions.
func (s *Subject[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.subs)
}

func (s *Subject[T]) Subscribe(next func(T)) Disposable {
	return s.Observe(Observer[T]{Next: next})
}

func (s *Subject[T]) Observe(o Observer[T]) Disposable {
	sub := &subscription[T]{observer: o}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	return NewDisposable(func() { s.remove(sub) })
}

// Publish sends v to every subscriber.
// A subscriber that panics is detached and told through its Error callback;
// the panic never reaches the caller.
func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	// clonning to avoid mutation during iteration
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		if sub.closed.Load() {
			continue
		}

		s.deliver(sub, v)
	}

	if s.monitor != nil {
		s.monitor.Published(s.name)
	}
}

func (s *Subject[T]) deliver(sub *subscription[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			s.fail(sub, asError(r))
		}
	}()

	if sub.observer.Next != nil {
		sub.observer.Next(v)
	}
}

func (s *Subject[T]) fail(sub *subscription[T], err error) {
	s.remove(sub)

	s.log.With("stream", s.name, "err", err).Error("subscriber failed, detaching it")
	if s.monitor != nil {
		s.monitor.Failed(s.name)
	}

	if sub.observer.Error == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.With("stream", s.name, "err", asError(r)).Error("error handler failed")
		}
	}()
	sub.observer.Error(err)
}

func (s *Subject[T]) remove(sub *subscription[T]) {
	sub.closed.Store(true)

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := slices.Index(s.subs, sub); i != -1 {
		s.subs = slices.Delete(s.subs, i, i+1)
	}
}

func asError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", ErrSubscriberPanic, err)
	}

	return fmt.Errorf("%w: %v", ErrSubscriberPanic, r)
}
