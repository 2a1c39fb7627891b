package stream

// Func adapts a subscribe function into an Observable.
type Func[T any] func(o Observer[T]) Disposable

func (f Func[T]) Subscribe(next func(T)) Disposable {
	return f(Observer[T]{Next: next})
}

func (f Func[T]) Observe(o Observer[T]) Disposable {
	return f(o)
}

// Filter forwards only the values for which keep returns true.
func Filter[T any](src Observable[T], keep func(T) bool) Observable[T] {
	return Func[T](func(o Observer[T]) Disposable {
		return src.Observe(Observer[T]{
			Next: func(v T) {
				if keep(v) && o.Next != nil {
					o.Next(v)
				}
			},
			Error: o.Error,
		})
	})
}

// Map forwards fn(v) for every value v.
func Map[T, U any](src Observable[T], fn func(T) U) Observable[U] {
	return Func[U](func(o Observer[U]) Disposable {
		return src.Observe(Observer[T]{
			Next: func(v T) {
				if o.Next != nil {
					o.Next(fn(v))
				}
			},
			Error: o.Error,
		})
	})
}

// Scheduler is the part of a scheduler ObserveOn needs.
type Scheduler interface {
	Schedule(action func()) error
}

// ObserveOn moves delivery of every value onto sched.
// The publisher still returns as soon as the work is handed off.
// A scheduler that refuses the work reports it through the observer's Error.
func ObserveOn[T any](src Observable[T], sched Scheduler) Observable[T] {
	return Func[T](func(o Observer[T]) Disposable {
		return src.Observe(Observer[T]{
			Next: func(v T) {
				err := sched.Schedule(func() {
					if o.Next != nil {
						o.Next(v)
					}
				})
				if err != nil && o.Error != nil {
					o.Error(err)
				}
			},
			Error: o.Error,
		})
	})
}
