package reactive

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObject(t *testing.T) {
	t.Run("notifies around the write", func(t *testing.T) {
		f := &testFixture{isNotNullString: "Foo"}
		log := []string{}
		f.Changing().Subscribe(func(c Change) {
			log = append(log, "changing "+c.PropertyName+" from "+f.IsNotNullString())
		})
		f.Changed().Subscribe(func(c Change) {
			log = append(log, "changed "+c.PropertyName+" to "+f.IsNotNullString())
		})

		f.SetIsNotNullString("Bar")

		assert.Equal(t, []string{
			"changing IsNotNullString from Foo",
			"changed IsNotNullString to Bar",
		}, log)
	})

	t.Run("reports the outer struct as sender", func(t *testing.T) {
		f := &testFixture{}
		var senders []any
		f.Changed().Subscribe(func(c Change) { senders = append(senders, c.Sender) })

		f.SetIsOnlyOneWord("Foo")

		require.Len(t, senders, 1)
		assert.Same(t, f, senders[0])
	})

	t.Run("equal values publish nothing", func(t *testing.T) {
		f := &testFixture{}
		changes := 0
		f.Changing().Subscribe(func(Change) { changes++ })
		f.Changed().Subscribe(func(Change) { changes++ })

		f.SetIsNotNullString("")
		f.SetNullableInt(nil)
		assert.Zero(t, changes)

		f.SetIsNotNullString("Foo")
		f.SetIsNotNullString("Foo")
		assert.Equal(t, 2, changes)
	})

	t.Run("properties notify independently", func(t *testing.T) {
		f := &testFixture{}
		names := []string{}
		f.Changed().Subscribe(func(c Change) { names = append(names, c.PropertyName) })

		n := 5
		f.SetIsNotNullString("Foo")
		f.SetIsOnlyOneWord("Bar")
		f.SetNullableInt(&n)
		f.SetIsNotNullString("Baz")

		assert.Equal(t, []string{"IsNotNullString", "IsOnlyOneWord", "NullableInt", "IsNotNullString"}, names)
	})

	t.Run("explicit notifications", func(t *testing.T) {
		f := &testFixture{}
		f.Init(f)
		names := []string{}
		f.Changed().Subscribe(func(c Change) { names = append(names, c.PropertyName) })

		f.NotifyChanged("PocoProperty")
		assert.Equal(t, []string{"PocoProperty"}, names)
	})

	t.Run("serializes only data", func(t *testing.T) {
		f := &testFixture{PocoProperty: "Foo"}
		f.SetIsNotNullString("Bar")
		f.Changed().Subscribe(func(Change) {})

		data, err := json.Marshal(f)
		require.NoError(t, err)
		assert.JSONEq(t, `{"PocoProperty":"Foo"}`, string(data))
	})

	t.Run("decoded objects notify", func(t *testing.T) {
		m := &modelFixture{}
		require.NoError(t, json.Unmarshal([]byte(`{"name":"Foo","age":3}`), m))

		changed := []string{}
		m.Changed().Subscribe(func(c Change) { changed = append(changed, c.PropertyName) })
		m.SetName("Bar")

		assert.Equal(t, "Bar", m.Name)
		assert.Equal(t, []string{"Name"}, changed)
	})

	t.Run("a failing subscriber is detached", func(t *testing.T) {
		f := &testFixture{}
		calls := 0
		f.Changed().Subscribe(func(Change) {
			calls++
			panic("boom")
		})

		assert.NotPanics(t, func() {
			f.SetIsNotNullString("Foo")
			f.SetIsNotNullString("Bar")
		})
		assert.Equal(t, "Bar", f.IsNotNullString())
		assert.Equal(t, 1, calls)
	})
}

func TestSuppression(t *testing.T) {
	t.Run("withholds notifications", func(t *testing.T) {
		f := &testFixture{}
		changes := 0
		f.Changed().Subscribe(func(Change) { changes++ })

		scope := f.SuppressChangeNotifications()
		f.SetIsNotNullString("Foo")
		assert.False(t, f.AreChangeNotificationsEnabled())
		assert.Zero(t, changes)
		assert.Equal(t, "Foo", f.IsNotNullString())

		scope.Dispose()
		assert.True(t, f.AreChangeNotificationsEnabled())
		f.SetIsNotNullString("Bar")
		assert.Equal(t, 1, changes)
	})

	t.Run("scopes nest", func(t *testing.T) {
		f := &testFixture{}

		outer := f.SuppressChangeNotifications()
		inner := f.SuppressChangeNotifications()

		inner.Dispose()
		assert.False(t, f.AreChangeNotificationsEnabled())

		outer.Dispose()
		assert.True(t, f.AreChangeNotificationsEnabled())
	})

	t.Run("disposing twice releases once", func(t *testing.T) {
		f := &testFixture{}

		outer := f.SuppressChangeNotifications()
		inner := f.SuppressChangeNotifications()
		inner.Dispose()
		inner.Dispose()

		assert.False(t, f.AreChangeNotificationsEnabled())
		outer.Dispose()
		assert.True(t, f.AreChangeNotificationsEnabled())
	})

	t.Run("released on panic", func(t *testing.T) {
		f := &testFixture{}

		assert.Panics(t, func() {
			f.Suppress(func() { panic("boom") })
		})
		assert.True(t, f.AreChangeNotificationsEnabled())
	})
}

func TestSetProperty(t *testing.T) {
	type account struct {
		Object

		Owner   string
		balance int
	}

	t.Run("writes the backing field", func(t *testing.T) {
		a := &account{}
		changed := []string{}
		a.Changed().Subscribe(func(c Change) { changed = append(changed, c.PropertyName) })

		v, err := SetProperty(a, "Owner", "Foo")
		require.NoError(t, err)

		assert.Equal(t, "Foo", v)
		assert.Equal(t, "Foo", a.Owner)
		assert.Equal(t, []string{"Owner"}, changed)
	})

	t.Run("follows the naming convention", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.FieldCache.Naming = "lower"
		app, err := NewApp(cfg)
		require.NoError(t, err)
		t.Cleanup(func() { _ = app.Close() })

		a := &account{}
		a.useApp(app)

		assert.Equal(t, 10, MustSetProperty(a, "Balance", 10))
		assert.Equal(t, 10, a.balance)
	})

	t.Run("missing backing field", func(t *testing.T) {
		a := &account{}

		_, err := SetProperty(a, "Nope", 1)
		assert.ErrorIs(t, err, ErrMissingBackingField)

		_, err = SetProperty(a, "Owner", 1)
		assert.ErrorIs(t, err, ErrMissingBackingField)

		assert.Panics(t, func() { MustSetProperty(a, "Nope", "x") })
	})
}

func TestWhenChanged(t *testing.T) {
	m := &modelFixture{}
	names := []string{}
	sub := WhenChanged(m, "Name", func(m *modelFixture) string { return m.Name }).
		Subscribe(func(c ObservedChange[*modelFixture, string]) {
			names = append(names, c.Value)
		})

	m.SetName("Foo")
	m.SetAge(4)
	m.SetName("Bar")
	sub.Dispose()
	m.SetName("Baz")

	assert.Equal(t, []string{"Foo", "Bar"}, names)
}
