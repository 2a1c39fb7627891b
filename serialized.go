package reactive

import (
	"encoding/binary"
	"fmt"
	"iter"
	"reflect"
	"slices"
	"sync"

	"github.com/AnatoleLucet/reactive/internal/stream"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ContentHasher is anything summarizing its contents in a content hash.
type ContentHasher interface {
	ContentHash() uuid.UUID
}

// hash chain operations
const (
	opAdd byte = iota + 1
	opRemove
	opUpdate
	opClear
)

// itemsProperty names the structural changes of a SerializedCollection.
const itemsProperty = "Items"

// SerializedCollection is a change-tracking collection that keeps a content hash over its elements.
//
// Every accepted mutation, structural or inside an element, moves the hash forward and then fires
// ItemChanged exactly once. Elements that are themselves ContentHashers, such as nested
// SerializedCollections, contribute their own hash; the rest are digested through the Serializer.
type SerializedCollection[T any] struct {
	once sync.Once

	inner      *Collection[T]
	serializer Serializer

	mu   sync.RWMutex
	hash uuid.UUID

	itemChanging *stream.Subject[Change]
	itemChanged  *stream.Subject[Change]
}

// NewSerializedCollection creates a collection over a copy of items, digesting them with JSON
// unless WithSerializer says otherwise.
func NewSerializedCollection[T any](items []T, opts ...Option) *SerializedCollection[T] {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}

	c := &SerializedCollection[T]{
		inner:      NewCollection(items, append(slices.Clip(opts), WithChangeTracking())...),
		serializer: s.serializer,
	}
	c.init()

	return c
}

func (c *SerializedCollection[T]) init() {
	c.once.Do(func() {
		if c.inner == nil {
			c.inner = NewCollection[T](nil, WithChangeTracking())
		}
		if c.serializer == nil {
			c.serializer = JSONSerializer{}
		}

		opts := c.inner.App().StreamOptions()
		c.itemChanging = stream.NewSubject[Change]("ItemChanging", opts...)
		c.itemChanged = stream.NewSubject[Change]("ItemChanged", opts...)

		c.hash = c.fullHash()

		// the inner collection is owned, these live as long as it does
		c.inner.collectionChanging.Subscribe(func(CollectionChange[T]) {
			c.itemChanging.Publish(c.itemsChange())
		})
		c.inner.collectionChanged.Subscribe(c.structureChanged)
		c.inner.memberChanging.Subscribe(func(m memberChange) {
			c.itemChanging.Publish(m.Change)
		})
		c.inner.memberChanged.Subscribe(c.memberChanged)
	})
}

func (c *SerializedCollection[T]) itemsChange() Change {
	return Change{Sender: c, PropertyName: itemsProperty}
}

// ContentHash returns the current content hash.
func (c *SerializedCollection[T]) ContentHash() uuid.UUID {
	c.init()

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.hash
}

// Rehash recomputes the content hash over the current elements and returns it.
func (c *SerializedCollection[T]) Rehash() uuid.UUID {
	c.init()

	hash := c.fullHash()
	c.setHash(hash)

	return hash
}

func (c *SerializedCollection[T]) fullHash() uuid.UUID {
	hash := uuid.Nil
	for i, item := range c.inner.items {
		hash = combine(hash, opAdd, i, c.digest(item))
	}

	return hash
}

func (c *SerializedCollection[T]) setHash(hash uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hash = hash
}

func (c *SerializedCollection[T]) structureChanged(change CollectionChange[T]) {
	hash := c.ContentHash()

	switch change.Action {
	case ActionAdd:
		hash = combine(hash, opAdd, change.Index, c.digest(change.Item))
	case ActionRemove:
		hash = combine(hash, opRemove, change.Index, c.digest(change.OldItem))
	case ActionReplace:
		hash = combine(hash, opRemove, change.Index, c.digest(change.OldItem))
		hash = combine(hash, opAdd, change.Index, c.digest(change.Item))
	case ActionReset:
		if c.inner.Len() == 0 {
			hash = combine(hash, opClear, 0, nil)
		} else {
			hash = c.fullHash()
		}
	}

	c.setHash(hash)
	c.itemChanged.Publish(c.itemsChange())
}

// memberChanged moves the hash once for every position holding the changed element,
// then publishes the change once.
func (c *SerializedCollection[T]) memberChanged(m memberChange) {
	hash := c.ContentHash()
	for i, item := range c.inner.items {
		if holds(item, m.Item) {
			hash = combine(hash, opUpdate, i, c.digest(item))
		}
	}

	c.setHash(hash)
	c.itemChanged.Publish(m.Change)
}

// digest panics for elements the serializer cannot handle: such an element type is a declaration error.
func (c *SerializedCollection[T]) digest(item T) []byte {
	if h, ok := any(item).(ContentHasher); ok && !isNil(item) {
		id := h.ContentHash()
		return id[:]
	}

	text, err := c.serializer.Serialize(item)
	if err != nil {
		panic(fmt.Errorf("%w: %T: %w", ErrNotSerializable, item, err))
	}

	return []byte(text)
}

// combine folds one operation into the previous hash; the result depends on order.
func combine(prev uuid.UUID, op byte, index int, digest []byte) uuid.UUID {
	buf := make([]byte, 0, 9+len(digest))
	buf = append(buf, op)
	buf = binary.BigEndian.AppendUint64(buf, uint64(index))
	buf = append(buf, digest...)

	return uuid.NewSHA1(prev, buf)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}

	return false
}

// Changing is ItemChanging, so nested collections propagate like any reactive element.
func (c *SerializedCollection[T]) Changing() Observable[Change] {
	return c.ItemChanging()
}

func (c *SerializedCollection[T]) Changed() Observable[Change] {
	return c.ItemChanged()
}

// ItemChanging fires before every mutation, with the element's own change for in-place ones.
func (c *SerializedCollection[T]) ItemChanging() Observable[Change] {
	c.init()
	return c.itemChanging
}

// ItemChanged fires once per mutation, after ContentHash reflects it.
func (c *SerializedCollection[T]) ItemChanged() Observable[Change] {
	c.init()
	return c.itemChanged
}

func (c *SerializedCollection[T]) CountChanged() Observable[int] {
	c.init()
	return c.inner.CountChanged()
}

func (c *SerializedCollection[T]) ItemsAdded() Observable[T] {
	c.init()
	return c.inner.ItemsAdded()
}

func (c *SerializedCollection[T]) ItemsRemoved() Observable[T] {
	c.init()
	return c.inner.ItemsRemoved()
}

func (c *SerializedCollection[T]) CollectionChanged() Observable[CollectionChange[T]] {
	c.init()
	return c.inner.CollectionChanged()
}

func (c *SerializedCollection[T]) Len() int {
	c.init()
	return c.inner.Len()
}

func (c *SerializedCollection[T]) Get(index int) T {
	c.init()
	return c.inner.Get(index)
}

func (c *SerializedCollection[T]) Items() []T {
	c.init()
	return c.inner.Items()
}

func (c *SerializedCollection[T]) All() iter.Seq2[int, T] {
	c.init()
	return c.inner.All()
}

func (c *SerializedCollection[T]) IndexOf(item T) int {
	c.init()
	return c.inner.IndexOf(item)
}

func (c *SerializedCollection[T]) Contains(item T) bool {
	return c.IndexOf(item) != -1
}

func (c *SerializedCollection[T]) Add(item T) {
	c.init()
	c.inner.Add(item)
}

func (c *SerializedCollection[T]) Insert(index int, item T) {
	c.init()
	c.inner.Insert(index, item)
}

func (c *SerializedCollection[T]) RemoveAt(index int) T {
	c.init()
	return c.inner.RemoveAt(index)
}

func (c *SerializedCollection[T]) Remove(item T) bool {
	c.init()
	return c.inner.Remove(item)
}

func (c *SerializedCollection[T]) Set(index int, item T) {
	c.init()
	c.inner.Set(index, item)
}

func (c *SerializedCollection[T]) Clear() {
	c.init()
	c.inner.Clear()
}

func (c *SerializedCollection[T]) MarshalJSON() ([]byte, error) {
	c.init()
	return c.inner.MarshalJSON()
}

// UnmarshalJSON replaces the elements and rehashes them.
// As after Rehash, the hash then depends on the decoded contents only: decoding what the
// collection was built from brings back its construction hash.
func (c *SerializedCollection[T]) UnmarshalJSON(data []byte) error {
	c.init()
	return c.inner.UnmarshalJSON(data)
}

func (c *SerializedCollection[T]) MarshalYAML() (any, error) {
	c.init()
	return c.inner.MarshalYAML()
}

func (c *SerializedCollection[T]) UnmarshalYAML(node *yaml.Node) error {
	c.init()
	return c.inner.UnmarshalYAML(node)
}
