// Package reactive propagates changes made to objects and collections to whoever subscribed to them.
//
// Notifications are published synchronously on the goroutine doing the mutation.
// Subscribers that want them elsewhere move them with ObserveOn.
package reactive

import (
	"errors"
	"fmt"

	"github.com/AnatoleLucet/reactive/internal/fieldcache"
	"github.com/AnatoleLucet/reactive/internal/scheduler"
	"github.com/AnatoleLucet/reactive/internal/stream"
)

var (
	ErrInvalidPropertyName = errors.New("reactive: invalid property name")
	ErrIndexOutOfRange     = errors.New("reactive: index out of range")
	ErrNotSerializable     = errors.New("reactive: item is not serializable")
	ErrNotBound            = errors.New("reactive: object is not bound to its outer struct")
	ErrReadOnly            = fmt.Errorf("reactive: derived collections are read-only: %w", errors.ErrUnsupported)

	ErrMissingBackingField = fieldcache.ErrMissingBackingField
	ErrSubscriberPanic     = stream.ErrSubscriberPanic

	ErrSchedulerFull    = scheduler.ErrSchedulerFull
	ErrSchedulerClosed  = scheduler.ErrSchedulerClosed
	ErrReentrantAdvance = scheduler.ErrReentrantAdvance
)

// Disposable ends a subscription or a scope. Dispose is idempotent.
type Disposable = stream.Disposable

type Observable[T any] = stream.Observable[T]

// Observer receives values and, at most once, the error that ended its subscription.
type Observer[T any] = stream.Observer[T]

// Filter forwards only the values keep accepts.
func Filter[T any](src Observable[T], keep func(T) bool) Observable[T] {
	return stream.Filter(src, keep)
}

// Map forwards fn applied to every value.
func Map[T, U any](src Observable[T], fn func(T) U) Observable[U] {
	return stream.Map(src, fn)
}

// NewDisposable returns a Disposable running fn once.
func NewDisposable(fn func()) Disposable {
	return stream.NewDisposable(fn)
}
