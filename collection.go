package reactive

import (
	"fmt"
	"iter"
	"reflect"
	"slices"
	"sync"

	"github.com/AnatoleLucet/reactive/internal/stream"
)

type CollectionAction int

const (
	ActionAdd CollectionAction = iota
	ActionRemove
	ActionReplace
	ActionReset
)

func (a CollectionAction) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionRemove:
		return "remove"
	case ActionReplace:
		return "replace"
	case ActionReset:
		return "reset"
	}

	return fmt.Sprintf("CollectionAction(%d)", int(a))
}

// CollectionChange describes one structural mutation.
// Item is the element added or put in place, OldItem the one removed or replaced.
// Index is -1 for resets.
type CollectionChange[T any] struct {
	Action  CollectionAction
	Index   int
	Item    T
	OldItem T
}

// memberChange is an element's own change, forwarded with the element it came from.
type memberChange struct {
	Item   ReactiveObject
	Change Change
}

type Option func(*settings)

type settings struct {
	tracking   bool
	app        *App
	serializer Serializer
}

// WithChangeTracking forwards the changes of reactive elements into the collection's item streams.
func WithChangeTracking() Option {
	return func(s *settings) {
		s.tracking = true
	}
}

// WithApp binds the collection to app instead of the current one.
func WithApp(app *App) Option {
	return func(s *settings) {
		s.app = app
	}
}

// WithSerializer sets how a SerializedCollection digests its elements.
func WithSerializer(serializer Serializer) Option {
	return func(s *settings) {
		s.serializer = serializer
	}
}

// tracker is the forwarding subscription of one element, shared by every position holding it.
type tracker struct {
	sub  Disposable
	refs int
}

// Collection is an ordered list publishing every structural change.
// Its Changing and Changed streams carry the changes of tracked elements.
//
// A Collection is not safe for concurrent mutation.
type Collection[T any] struct {
	Object

	once  sync.Once
	equal func(a, b T) bool

	items []T

	// one entry per distinct tracked element while tracking is on
	trackers map[ReactiveObject]*tracker
	tracking bool

	countChanging      *stream.Subject[int]
	countChanged       *stream.Subject[int]
	beforeItemsAdded   *stream.Subject[T]
	itemsAdded         *stream.Subject[T]
	beforeItemsRemoved *stream.Subject[T]
	itemsRemoved       *stream.Subject[T]
	collectionChanging *stream.Subject[CollectionChange[T]]
	collectionChanged  *stream.Subject[CollectionChange[T]]

	memberChanging *stream.Subject[memberChange]
	memberChanged  *stream.Subject[memberChange]
}

// NewCollection creates a collection holding a copy of items.
func NewCollection[T any](items []T, opts ...Option) *Collection[T] {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}

	c := &Collection[T]{}
	c.useApp(s.app)
	c.init()
	c.items = slices.Clone(items)
	c.SetChangeTracking(s.tracking)

	return c
}

func (c *Collection[T]) init() {
	c.once.Do(func() {
		c.bind(c)

		c.equal = equalFunc[T]()

		opts := c.App().StreamOptions()
		c.countChanging = stream.NewSubject[int]("CountChanging", opts...)
		c.countChanged = stream.NewSubject[int]("CountChanged", opts...)
		c.beforeItemsAdded = stream.NewSubject[T]("BeforeItemsAdded", opts...)
		c.itemsAdded = stream.NewSubject[T]("ItemsAdded", opts...)
		c.beforeItemsRemoved = stream.NewSubject[T]("BeforeItemsRemoved", opts...)
		c.itemsRemoved = stream.NewSubject[T]("ItemsRemoved", opts...)
		c.collectionChanging = stream.NewSubject[CollectionChange[T]]("CollectionChanging", opts...)
		c.collectionChanged = stream.NewSubject[CollectionChange[T]]("CollectionChanged", opts...)
		c.memberChanging = stream.NewSubject[memberChange]("MemberChanging", opts...)
		c.memberChanged = stream.NewSubject[memberChange]("MemberChanged", opts...)
	})
}

// CountChanging publishes the length before each add, remove or clear.
func (c *Collection[T]) CountChanging() Observable[int] {
	c.init()
	return c.countChanging
}

// CountChanged publishes the length after each add, remove or clear.
func (c *Collection[T]) CountChanged() Observable[int] {
	c.init()
	return c.countChanged
}

func (c *Collection[T]) BeforeItemsAdded() Observable[T] {
	c.init()
	return c.beforeItemsAdded
}

func (c *Collection[T]) ItemsAdded() Observable[T] {
	c.init()
	return c.itemsAdded
}

func (c *Collection[T]) BeforeItemsRemoved() Observable[T] {
	c.init()
	return c.beforeItemsRemoved
}

func (c *Collection[T]) ItemsRemoved() Observable[T] {
	c.init()
	return c.itemsRemoved
}

// ItemChanging is the Changing stream of whichever tracked element is about to change.
func (c *Collection[T]) ItemChanging() Observable[Change] {
	return c.Changing()
}

// ItemChanged is the Changed stream of whichever tracked element changed.
func (c *Collection[T]) ItemChanged() Observable[Change] {
	return c.Changed()
}

// CollectionChanging opens every mutation, before any other stream fires.
func (c *Collection[T]) CollectionChanging() Observable[CollectionChange[T]] {
	c.init()
	return c.collectionChanging
}

// CollectionChanged closes every mutation, after every other stream fired.
func (c *Collection[T]) CollectionChanged() Observable[CollectionChange[T]] {
	c.init()
	return c.collectionChanged
}

func (c *Collection[T]) Len() int {
	return len(c.items)
}

func (c *Collection[T]) Get(index int) T {
	c.checkIndex(index, len(c.items)-1)
	return c.items[index]
}

// Items returns a copy of the elements.
func (c *Collection[T]) Items() []T {
	return slices.Clone(c.items)
}

func (c *Collection[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, item := range c.items {
			if !yield(i, item) {
				return
			}
		}
	}
}

// IndexOf returns the position of the first element equal to item, or -1.
func (c *Collection[T]) IndexOf(item T) int {
	c.init()
	return slices.IndexFunc(c.items, func(v T) bool { return c.equal(v, item) })
}

func (c *Collection[T]) Contains(item T) bool {
	return c.IndexOf(item) != -1
}

func (c *Collection[T]) Add(item T) {
	c.Insert(len(c.items), item)
}

func (c *Collection[T]) Insert(index int, item T) {
	c.init()
	c.checkIndex(index, len(c.items))

	change := CollectionChange[T]{Action: ActionAdd, Index: index, Item: item}
	c.collectionChanging.Publish(change)
	c.countChanging.Publish(len(c.items))
	c.beforeItemsAdded.Publish(item)

	c.items = slices.Insert(c.items, index, item)
	c.attach(item)

	c.itemsAdded.Publish(item)
	c.countChanged.Publish(len(c.items))
	c.collectionChanged.Publish(change)
}

// RemoveAt removes and returns the element at index.
func (c *Collection[T]) RemoveAt(index int) T {
	c.init()
	c.checkIndex(index, len(c.items)-1)

	item := c.items[index]
	change := CollectionChange[T]{Action: ActionRemove, Index: index, OldItem: item}
	c.collectionChanging.Publish(change)
	c.countChanging.Publish(len(c.items))
	c.beforeItemsRemoved.Publish(item)

	c.items = slices.Delete(c.items, index, index+1)
	c.detach(item)

	c.itemsRemoved.Publish(item)
	c.countChanged.Publish(len(c.items))
	c.collectionChanged.Publish(change)

	return item
}

// Remove removes the first element equal to item and reports whether there was one.
func (c *Collection[T]) Remove(item T) bool {
	index := c.IndexOf(item)
	if index == -1 {
		return false
	}

	c.RemoveAt(index)
	return true
}

// Set replaces the element at index. The count does not change, so no count event fires.
func (c *Collection[T]) Set(index int, item T) {
	c.init()
	c.checkIndex(index, len(c.items)-1)

	old := c.items[index]
	change := CollectionChange[T]{Action: ActionReplace, Index: index, Item: item, OldItem: old}
	c.collectionChanging.Publish(change)
	c.beforeItemsRemoved.Publish(old)
	c.beforeItemsAdded.Publish(item)

	c.items[index] = item
	c.attach(item)
	c.detach(old)

	c.itemsRemoved.Publish(old)
	c.itemsAdded.Publish(item)
	c.collectionChanged.Publish(change)
}

// Clear removes every element, publishing a removal for each in order.
// Clearing an empty collection publishes nothing.
func (c *Collection[T]) Clear() {
	c.init()
	if len(c.items) == 0 {
		return
	}

	change := CollectionChange[T]{Action: ActionReset, Index: -1}
	c.collectionChanging.Publish(change)
	c.countChanging.Publish(len(c.items))

	removed := c.items
	for _, item := range removed {
		c.beforeItemsRemoved.Publish(item)
	}

	c.items = nil
	c.untrackAll()

	for _, item := range removed {
		c.itemsRemoved.Publish(item)
	}
	c.countChanged.Publish(0)
	c.collectionChanged.Publish(change)
}

// ChangeTrackingEnabled reports whether element changes are forwarded.
func (c *Collection[T]) ChangeTrackingEnabled() bool {
	return c.tracking
}

// SetChangeTracking starts or stops forwarding element changes, for current and future elements alike.
func (c *Collection[T]) SetChangeTracking(enabled bool) {
	c.init()
	if enabled == c.tracking {
		return
	}

	c.tracking = enabled
	if !enabled {
		c.untrackAll()
		return
	}

	for _, item := range c.items {
		c.attach(item)
	}
}

// replace swaps the contents without per-element events; only a reset goes out.
func (c *Collection[T]) replace(items []T) {
	c.init()

	change := CollectionChange[T]{Action: ActionReset, Index: -1}
	c.collectionChanging.Publish(change)

	c.untrackAll()
	c.items = items
	for _, item := range items {
		c.attach(item)
	}

	c.collectionChanged.Publish(change)
}

func (c *Collection[T]) untrackAll() {
	for _, t := range c.trackers {
		t.sub.Dispose()
	}
	c.trackers = nil
}

// attach starts forwarding the changes of item, unless another position already holds it.
func (c *Collection[T]) attach(item T) {
	if !c.tracking {
		return
	}

	obj, ok := reactiveElement(item)
	if !ok {
		return
	}

	if t, ok := c.trackers[obj]; ok {
		t.refs++
		return
	}

	if c.trackers == nil {
		c.trackers = map[ReactiveObject]*tracker{}
	}
	c.trackers[obj] = &tracker{
		refs: 1,
		sub: stream.Composite(
			obj.Changing().Subscribe(func(change Change) {
				c.raiseChanging(change)
				c.memberChanging.Publish(memberChange{Item: obj, Change: change})
			}),
			obj.Changed().Subscribe(func(change Change) {
				c.raiseChanged(change)
				c.memberChanged.Publish(memberChange{Item: obj, Change: change})
			}),
		),
	}
}

// detach stops forwarding once the last position holding item is gone.
func (c *Collection[T]) detach(item T) {
	if !c.tracking {
		return
	}

	obj, ok := reactiveElement(item)
	if !ok {
		return
	}

	t, ok := c.trackers[obj]
	if !ok {
		return
	}

	t.refs--
	if t.refs == 0 {
		t.sub.Dispose()
		delete(c.trackers, obj)
	}
}

// holds reports whether item is the tracked element obj.
func holds[T any](item T, obj ReactiveObject) bool {
	elem, ok := reactiveElement(item)
	return ok && elem == obj
}

// equalFunc compares with == where the values allow it and with reflect.DeepEqual otherwise.
func equalFunc[T any]() func(a, b T) bool {
	typ := reflect.TypeFor[T]()
	if typ.Comparable() && !holdsInterface(typ) {
		return func(a, b T) bool { return any(a) == any(b) }
	}

	return func(a, b T) bool { return looseEqual(any(a), any(b)) }
}

// holdsInterface reports whether values of typ can carry a dynamic value that == rejects.
func holdsInterface(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Interface:
		return true
	case reflect.Array:
		return holdsInterface(typ.Elem())
	case reflect.Struct:
		for i := range typ.NumField() {
			if holdsInterface(typ.Field(i).Type) {
				return true
			}
		}
	}

	return false
}

func looseEqual(a, b any) (equal bool) {
	defer func() {
		if recover() != nil {
			equal = reflect.DeepEqual(a, b)
		}
	}()

	return a == b
}

// reactiveElement returns item as a trackable element.
// Elements that cannot be map keys are never tracked.
func reactiveElement(item any) (ReactiveObject, bool) {
	obj, ok := item.(ReactiveObject)
	if !ok || isNil(item) || !reflect.TypeOf(item).Comparable() {
		return nil, false
	}

	return obj, true
}

func (c *Collection[T]) checkIndex(index, last int) {
	if index < 0 || index > last {
		panic(fmt.Errorf("%w: %d with length %d", ErrIndexOutOfRange, index, len(c.items)))
	}
}
