// Package fieldcache resolves the struct field backing a named property and remembers the answer.
package fieldcache

import (
	"container/list"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
	"unsafe"
)

var ErrMissingBackingField = errors.New("fieldcache: missing backing field")

const DefaultSize = 50

// Naming maps a property name to the name of the field that stores it.
type Naming func(property string) string

// Exact stores property Name in field Name.
func Exact(property string) string {
	return property
}

// Lower stores property Name in field name.
func Lower(property string) string {
	r, size := utf8.DecodeRuneInString(property)
	if r == utf8.RuneError {
		return property
	}

	return string(unicode.ToLower(r)) + property[size:]
}

// Underscore stores property Name in field _Name.
func Underscore(property string) string {
	return "_" + property
}

// NamingFor returns the convention registered under name, or nil.
func NamingFor(name string) Naming {
	switch strings.ToLower(name) {
	case "", "exact":
		return Exact
	case "lower":
		return Lower
	case "underscore":
		return Underscore
	}

	return nil
}

// Field is a resolved backing field.
type Field struct {
	Name  string
	Index []int
	Type  reflect.Type
}

// Settable returns the field inside the struct value ptr points to.
// Unexported fields are returned writable as well.
func (f Field) Settable(ptr reflect.Value) reflect.Value {
	v := ptr.Elem().FieldByIndex(f.Index)
	if v.CanSet() {
		return v
	}

	return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
}

// Stats is told about every lookup.
type Stats interface {
	CacheHit()
	CacheMiss()
}

type key struct {
	typ      reflect.Type
	property string
}

type entry struct {
	key   key
	field Field
	err   error
}

// Cache is a bounded least recently used map from (type, property) to its backing field.
// Failed lookups are remembered too: a missing field is a declaration error and looking again will not fix it.
type Cache struct {
	mu sync.Mutex

	size   int
	naming Naming
	stats  Stats

	order   *list.List
	entries map[key]*list.Element
}

func New(size int, naming Naming, stats Stats) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if naming == nil {
		naming = Exact
	}

	return &Cache{
		size:    size,
		naming:  naming,
		stats:   stats,
		order:   list.New(),
		entries: make(map[key]*list.Element, size),
	}
}

// Resolve finds the field backing property on typ, a struct or pointer to struct type.
func (c *Cache) Resolve(typ reflect.Type, property string) (Field, error) {
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	k := key{typ: typ, property: property}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[k]; ok {
		c.order.MoveToFront(el)
		if c.stats != nil {
			c.stats.CacheHit()
		}

		e := el.Value.(*entry)
		return e.field, e.err
	}

	if c.stats != nil {
		c.stats.CacheMiss()
	}

	e := &entry{key: k}
	e.field, e.err = c.lookup(typ, property)
	c.entries[k] = c.order.PushFront(e)

	if c.order.Len() > c.size {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}

	return e.field, e.err
}

// Len returns the number of cached lookups.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

func (c *Cache) lookup(typ reflect.Type, property string) (Field, error) {
	name := c.naming(property)

	if typ.Kind() != reflect.Struct {
		return Field{}, fmt.Errorf("%w: %s is not a struct, looking for %s", ErrMissingBackingField, typ, name)
	}

	sf, ok := typ.FieldByName(name)
	if !ok {
		return Field{}, fmt.Errorf("%w: declare a field named %s on %s for property %s", ErrMissingBackingField, name, typ, property)
	}

	return Field{
		Name:  sf.Name,
		Index: sf.Index,
		Type:  sf.Type,
	}, nil
}
