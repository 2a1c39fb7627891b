package reactive

import (
	"sync"
	"sync/atomic"

	"github.com/AnatoleLucet/reactive/internal/registry"
	"github.com/AnatoleLucet/reactive/internal/stream"
)

// Change names the property of Sender that is about to change or just changed.
// An empty PropertyName means every property changed.
type Change struct {
	Sender       any
	PropertyName string
}

// ReactiveObject is anything publishing property changes.
type ReactiveObject interface {
	Changing() Observable[Change]
	Changed() Observable[Change]
}

// Reactor is a ReactiveObject backed by an Object, usually through embedding.
type Reactor interface {
	ReactiveObject
	Reactive() *Object
}

// Object gives the struct embedding it a pair of change streams.
// The zero value is ready to use, so decoded instances raise events like constructed ones.
type Object struct {
	mu sync.Mutex

	// the outer struct, reported as the sender of every change
	self any
	app  *App

	changing *stream.Subject[Change]
	changed  *stream.Subject[Change]

	// each suppression scope increases the count by 1
	// notifications only go out while it is 0
	suppressed atomic.Int64
}

// Init binds the struct embedding o, so that it is reported as the sender of changes.
// The property helpers do this on first use.
func (o *Object) Init(self any) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.self = self
}

func (o *Object) Reactive() *Object {
	return o
}

// App returns the app o draws its logger and field cache from.
func (o *Object) App() *App {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.appLocked()
}

func (o *Object) appLocked() *App {
	if o.app == nil {
		o.app = registry.Current()
	}

	return o.app
}

func (o *Object) useApp(app *App) {
	if app == nil {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.app = app
}

func (o *Object) bind(self any) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.self == nil {
		o.self = self
	}
}

func (o *Object) sender() any {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.self != nil {
		return o.self
	}

	return o
}

func (o *Object) streams() (changing, changed *stream.Subject[Change]) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.changing == nil {
		opts := o.appLocked().StreamOptions()
		o.changing = stream.NewSubject[Change]("Changing", opts...)
		o.changed = stream.NewSubject[Change]("Changed", opts...)
	}

	return o.changing, o.changed
}

// Changing publishes a property's name before its value is written.
func (o *Object) Changing() Observable[Change] {
	changing, _ := o.streams()
	return changing
}

// Changed publishes a property's name after its value is written.
func (o *Object) Changed() Observable[Change] {
	_, changed := o.streams()
	return changed
}

func (o *Object) NotifyChanging(name string) {
	verifyPropertyName(o, name)
	o.raiseChanging(Change{Sender: o.sender(), PropertyName: name})
}

func (o *Object) NotifyChanged(name string) {
	verifyPropertyName(o, name)
	o.raiseChanged(Change{Sender: o.sender(), PropertyName: name})
}

func (o *Object) raiseChanging(c Change) {
	if !o.AreChangeNotificationsEnabled() {
		return
	}

	changing, _ := o.streams()
	changing.Publish(c)
}

func (o *Object) raiseChanged(c Change) {
	if !o.AreChangeNotificationsEnabled() {
		return
	}

	_, changed := o.streams()
	changed.Publish(c)
}

// SuppressChangeNotifications withholds notifications until the returned handle is disposed.
// Scopes nest; disposing a handle more than once releases it only once.
func (o *Object) SuppressChangeNotifications() Disposable {
	o.suppressed.Add(1)

	return stream.NewDisposable(func() {
		o.suppressed.Add(-1)
	})
}

// Suppress runs fn with notifications withheld, releasing the scope however fn exits.
func (o *Object) Suppress(fn func()) {
	defer o.SuppressChangeNotifications().Dispose()

	fn()
}

func (o *Object) AreChangeNotificationsEnabled() bool {
	return o.suppressed.Load() == 0
}
