package reactive

import (
	"fmt"
	"iter"
	"slices"
	"weak"

	"github.com/AnatoleLucet/reactive/internal/stream"
)

// DerivedCollection is a read-only projection of a Collection through a transform.
// It is updated before any of its own streams fire.
//
// It only holds a weak reference to its source: following a collection does not keep it alive.
type DerivedCollection[T, U any] struct {
	source    weak.Pointer[Collection[T]]
	transform func(T) U

	items []U
	sub   Disposable

	countChanged      *stream.Subject[int]
	itemsAdded        *stream.Subject[U]
	itemsRemoved      *stream.Subject[U]
	collectionChanged *stream.Subject[CollectionChange[U]]
}

// Derive projects source through transform and keeps following it until Dispose.
func Derive[T, U any](source *Collection[T], transform func(T) U) *DerivedCollection[T, U] {
	source.init()

	opts := source.App().StreamOptions()
	d := &DerivedCollection[T, U]{
		source:            weak.Make(source),
		transform:         transform,
		countChanged:      stream.NewSubject[int]("CountChanged", opts...),
		itemsAdded:        stream.NewSubject[U]("ItemsAdded", opts...),
		itemsRemoved:      stream.NewSubject[U]("ItemsRemoved", opts...),
		collectionChanged: stream.NewSubject[CollectionChange[U]]("CollectionChanged", opts...),
	}

	d.items = d.project(source.items)
	d.sub = source.collectionChanged.Subscribe(d.apply)

	return d
}

// Source returns the followed collection, or nil once it has been collected.
func (d *DerivedCollection[T, U]) Source() *Collection[T] {
	return d.source.Value()
}

// Dispose stops following the source. The projection keeps its last contents.
func (d *DerivedCollection[T, U]) Dispose() {
	d.sub.Dispose()
}

func (d *DerivedCollection[T, U]) project(items []T) []U {
	out := make([]U, len(items))
	for i, item := range items {
		out[i] = d.transform(item)
	}

	return out
}

func (d *DerivedCollection[T, U]) apply(change CollectionChange[T]) {
	switch change.Action {
	case ActionAdd:
		item := d.transform(change.Item)
		d.items = slices.Insert(d.items, change.Index, item)

		d.itemsAdded.Publish(item)
		d.countChanged.Publish(len(d.items))
		d.collectionChanged.Publish(CollectionChange[U]{Action: ActionAdd, Index: change.Index, Item: item})

	case ActionRemove:
		old := d.items[change.Index]
		d.items = slices.Delete(d.items, change.Index, change.Index+1)

		d.itemsRemoved.Publish(old)
		d.countChanged.Publish(len(d.items))
		d.collectionChanged.Publish(CollectionChange[U]{Action: ActionRemove, Index: change.Index, OldItem: old})

	case ActionReplace:
		// only the replaced index is transformed again
		old := d.items[change.Index]
		item := d.transform(change.Item)
		d.items[change.Index] = item

		d.itemsRemoved.Publish(old)
		d.itemsAdded.Publish(item)
		d.collectionChanged.Publish(CollectionChange[U]{Action: ActionReplace, Index: change.Index, Item: item, OldItem: old})

	case ActionReset:
		removed := d.items
		d.items = nil
		if source := d.source.Value(); source != nil {
			d.items = d.project(source.items)
		}

		for _, old := range removed {
			d.itemsRemoved.Publish(old)
		}
		for _, item := range d.items {
			d.itemsAdded.Publish(item)
		}
		d.countChanged.Publish(len(d.items))
		d.collectionChanged.Publish(CollectionChange[U]{Action: ActionReset, Index: -1})
	}
}

func (d *DerivedCollection[T, U]) CountChanged() Observable[int] {
	return d.countChanged
}

func (d *DerivedCollection[T, U]) ItemsAdded() Observable[U] {
	return d.itemsAdded
}

func (d *DerivedCollection[T, U]) ItemsRemoved() Observable[U] {
	return d.itemsRemoved
}

func (d *DerivedCollection[T, U]) CollectionChanged() Observable[CollectionChange[U]] {
	return d.collectionChanged
}

func (d *DerivedCollection[T, U]) Len() int {
	return len(d.items)
}

func (d *DerivedCollection[T, U]) Get(index int) U {
	if index < 0 || index >= len(d.items) {
		panic(fmt.Errorf("%w: %d with length %d", ErrIndexOutOfRange, index, len(d.items)))
	}

	return d.items[index]
}

// Items returns a copy of the projected elements.
func (d *DerivedCollection[T, U]) Items() []U {
	return slices.Clone(d.items)
}

func (d *DerivedCollection[T, U]) All() iter.Seq2[int, U] {
	return func(yield func(int, U) bool) {
		for i, item := range d.items {
			if !yield(i, item) {
				return
			}
		}
	}
}

func (d *DerivedCollection[T, U]) Add(U) error { return ErrReadOnly }

func (d *DerivedCollection[T, U]) Insert(int, U) error { return ErrReadOnly }

func (d *DerivedCollection[T, U]) RemoveAt(int) error { return ErrReadOnly }

func (d *DerivedCollection[T, U]) Set(int, U) error { return ErrReadOnly }

func (d *DerivedCollection[T, U]) Clear() error { return ErrReadOnly }
