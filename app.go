package reactive

import (
	"time"

	"github.com/AnatoleLucet/reactive/internal/config"
	"github.com/AnatoleLucet/reactive/internal/registry"
	"github.com/AnatoleLucet/reactive/internal/scheduler"
	"github.com/AnatoleLucet/reactive/internal/stream"
	"github.com/prometheus/client_golang/prometheus"
	"pkt.systems/pslog"
)

// App bundles the configuration, logger, metrics, field cache and default schedulers
// reactive objects use. Objects pick up the app current on the goroutine that first uses them.
type App = registry.App

type AppOption = registry.Option

type Config = config.Config

// Scheduler runs work now or later on some execution context.
type Scheduler = scheduler.Scheduler

// TestScheduler runs work on a virtual clock that only moves when told to.
type TestScheduler = scheduler.Virtual

func NewTestScheduler() *TestScheduler {
	return scheduler.NewVirtual()
}

// NewImmediateScheduler runs work inline.
func NewImmediateScheduler() Scheduler {
	return scheduler.NewImmediate()
}

func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads a yaml config file with REACTIVE_* environment overrides.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

func NewApp(cfg Config, opts ...AppOption) (*App, error) {
	return registry.New(cfg, opts...)
}

func WithAppLogger(log pslog.Logger) AppOption {
	return registry.WithLogger(log)
}

func WithAppRegistry(reg *prometheus.Registry) AppOption {
	return registry.WithRegistry(reg)
}

func WithAppDeferredScheduler(s Scheduler) AppOption {
	return registry.WithDeferredScheduler(s)
}

func WithAppTaskpoolScheduler(s Scheduler) AppOption {
	return registry.WithTaskpoolScheduler(s)
}

// DefaultApp returns the process-wide app, built from the environment on first use.
func DefaultApp() *App {
	return registry.Default()
}

// CurrentApp returns the app scoped to the calling goroutine, falling back to DefaultApp.
func CurrentApp() *App {
	return registry.Current()
}

// InUnitTestRunner reports whether the process is a test binary.
func InUnitTestRunner() bool {
	return registry.InUnitTestRunner()
}

// DeferredScheduler returns the current foreground scheduler.
func DeferredScheduler() Scheduler {
	return CurrentApp().DeferredScheduler()
}

// TaskpoolScheduler returns the current background scheduler.
func TaskpoolScheduler() Scheduler {
	return CurrentApp().TaskpoolScheduler()
}

// WithScheduler runs fn with s as both the deferred and the taskpool scheduler of the calling goroutine.
// Other goroutines keep seeing their own schedulers.
func WithScheduler(s Scheduler, fn func()) {
	CurrentApp().Derive(s, s).Run(fn)
}

// ObserveOn delivers the values of src on s.
func ObserveOn[T any](src Observable[T], s Scheduler) Observable[T] {
	return stream.ObserveOn(src, metered(CurrentApp(), "observe_on", s))
}

type meteredScheduler struct {
	app   *App
	name  string
	inner Scheduler
}

func metered(app *App, name string, s Scheduler) *meteredScheduler {
	return &meteredScheduler{app: app, name: name, inner: s}
}

func (m *meteredScheduler) Schedule(action func()) error {
	err := m.inner.Schedule(action)
	m.app.Metrics().Scheduled(m.name, err)
	return err
}

func (m *meteredScheduler) ScheduleAfter(d time.Duration, action func()) error {
	err := m.inner.ScheduleAfter(d, action)
	m.app.Metrics().Scheduled(m.name, err)
	return err
}
