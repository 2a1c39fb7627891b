package reactive

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"pkt.systems/pslog"
)

type testFixture struct {
	Object

	isNotNullString string
	isOnlyOneWord   string
	nullableInt     *int

	PocoProperty string
}

func (f *testFixture) IsNotNullString() string { return f.isNotNullString }

func (f *testFixture) SetIsNotNullString(v string) {
	RaiseAndSetIfChanged(f, &f.isNotNullString, v, "IsNotNullString")
}

func (f *testFixture) IsOnlyOneWord() string { return f.isOnlyOneWord }

func (f *testFixture) SetIsOnlyOneWord(v string) {
	RaiseAndSetIfChanged(f, &f.isOnlyOneWord, v, "IsOnlyOneWord")
}

func (f *testFixture) NullableInt() *int { return f.nullableInt }

func (f *testFixture) SetNullableInt(v *int) {
	RaiseAndSetIfChanged(f, &f.nullableInt, v, "NullableInt")
}

type modelFixture struct {
	Object

	Name string `json:"name"`
	Age  int    `json:"age"`
}

func (m *modelFixture) SetName(v string) { RaiseAndSetIfChanged(m, &m.Name, v, "Name") }

func (m *modelFixture) SetAge(v int) { RaiseAndSetIfChanged(m, &m.Age, v, "Age") }

// newTestApp returns an app logging into buf, scoped to nothing.
func newTestApp(t *testing.T, buf *bytes.Buffer, opts ...AppOption) *App {
	t.Helper()

	if buf != nil {
		log := pslog.NewWithOptions(buf, pslog.Options{
			Mode:     pslog.ModeStructured,
			NoColor:  true,
			MinLevel: pslog.DebugLevel,
		})
		opts = append([]AppOption{WithAppLogger(log)}, opts...)
	}

	app, err := NewApp(DefaultConfig(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	return app
}

// recovered runs fn and returns what it panicked with as an error, or nil.
func recovered(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(error)
		}
	}()

	fn()
	return nil
}
