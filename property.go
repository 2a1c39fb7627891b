package reactive

import (
	"fmt"
	"reflect"
)

// SetAndNotify commits next through write between a Changing and a Changed notification for name.
// Writing a value equal to current publishes nothing and does not call write.
func SetAndNotify[T comparable](r Reactor, current, next T, name string, write func(T)) T {
	if current == next {
		return next
	}

	o := r.Reactive()
	o.bind(r)

	o.NotifyChanging(name)
	write(next)
	o.NotifyChanged(name)

	return next
}

// RaiseAndSetIfChanged stores next in *field, notifying about name when the value differs.
//
//	func (p *Person) SetName(v string) { reactive.RaiseAndSetIfChanged(p, &p.name, v, "Name") }
func RaiseAndSetIfChanged[T comparable](r Reactor, field *T, next T, name string) T {
	return SetAndNotify(r, *field, next, name, func(v T) { *field = v })
}

// SetProperty stores next in the field backing name, found by the app's naming convention.
// r must be a pointer to a struct.
func SetProperty[T comparable](r Reactor, name string, next T) (T, error) {
	ptr := reflect.ValueOf(r)
	if ptr.Kind() != reflect.Pointer || ptr.Elem().Kind() != reflect.Struct {
		return next, fmt.Errorf("%w: %T is not a pointer to a struct", ErrMissingBackingField, r)
	}

	f, err := r.Reactive().App().FieldCache().Resolve(ptr.Type(), name)
	if err != nil {
		return next, err
	}

	want := reflect.TypeFor[T]()
	if f.Type != want {
		return next, fmt.Errorf("%w: %s.%s holds %s, not %s", ErrMissingBackingField, ptr.Elem().Type(), f.Name, f.Type, want)
	}

	field := f.Settable(ptr).Addr().Interface().(*T)
	return RaiseAndSetIfChanged(r, field, next, name), nil
}

// MustSetProperty is SetProperty for properties known to be declared; a missing field panics.
func MustSetProperty[T comparable](r Reactor, name string, next T) T {
	v, err := SetProperty(r, name, next)
	if err != nil {
		panic(err)
	}

	return v
}

// ObservedChange carries the value a property changed to.
type ObservedChange[S any, V any] struct {
	Sender       S
	PropertyName string
	Value        V
}

// WhenChanged publishes the new value of one property of s every time it changes.
func WhenChanged[S ReactiveObject, V any](s S, name string, get func(S) V) Observable[ObservedChange[S, V]] {
	changes := Filter(s.Changed(), func(c Change) bool {
		return c.PropertyName == name && (c.Sender == nil || c.Sender == any(s) || isSelf(s, c.Sender))
	})

	return Map(changes, func(c Change) ObservedChange[S, V] {
		return ObservedChange[S, V]{
			Sender:       s,
			PropertyName: name,
			Value:        get(s),
		}
	})
}

// isSelf matches senders reported before the outer struct was bound.
func isSelf(s any, sender any) bool {
	r, ok := s.(Reactor)
	return ok && sender == any(r.Reactive())
}
