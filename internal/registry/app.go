// Package registry holds the App bundles that reactive objects draw their collaborators from,
// and which one is current for the calling goroutine.
package registry

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/AnatoleLucet/reactive/internal/config"
	"github.com/AnatoleLucet/reactive/internal/fieldcache"
	"github.com/AnatoleLucet/reactive/internal/metrics"
	"github.com/AnatoleLucet/reactive/internal/scheduler"
	"github.com/AnatoleLucet/reactive/internal/stream"
	"github.com/prometheus/client_golang/prometheus"
	"pkt.systems/pslog"
)

// App is an immutable bundle of configuration and the collaborators built from it.
type App struct {
	cfg config.Config
	log pslog.Logger

	registry *prometheus.Registry
	metrics  *metrics.Metrics
	fields   *fieldcache.Cache

	deferred scheduler.Scheduler
	taskpool scheduler.Scheduler

	testMode bool

	// set on derived apps, which share everything with their parent
	parent  *App
	closers []io.Closer
}

type Option func(*options)

type options struct {
	log      pslog.Logger
	registry *prometheus.Registry
	deferred scheduler.Scheduler
	taskpool scheduler.Scheduler
}

func WithLogger(log pslog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithRegistry collects the app's metrics in reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

func WithDeferredScheduler(s scheduler.Scheduler) Option {
	return func(o *options) {
		o.deferred = s
	}
}

func WithTaskpoolScheduler(s scheduler.Scheduler) Option {
	return func(o *options) {
		o.taskpool = s
	}
}

// New builds an App from cfg.
func New(cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.log == nil {
		o.log = newLogger(os.Stderr, cfg.Logging.Level)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	a := &App{
		cfg:      cfg,
		log:      o.log,
		registry: o.registry,
		metrics:  metrics.New(o.registry),
		testMode: resolveTestMode(cfg.TestMode),
	}
	a.fields = fieldcache.New(cfg.FieldCache.Size, fieldcache.NamingFor(cfg.FieldCache.Naming), a.metrics)

	a.deferred = o.deferred
	if a.deferred == nil {
		a.deferred = a.defaultDeferred()
	}

	a.taskpool = o.taskpool
	if a.taskpool == nil {
		a.taskpool = scheduler.NewTaskpool(cfg.Scheduler.TaskpoolWorkers, a.log.With("scheduler", "taskpool"))
	}

	if limit := cfg.SlowActionThreshold(); limit > 0 {
		a.deferred = a.stopwatch("deferred", a.deferred)
		a.taskpool = a.stopwatch("taskpool", a.taskpool)
	}

	a.log.With("test_mode", a.testMode, "deferred", cfg.Scheduler.Deferred).Debug("app ready")

	return a, nil
}

func (a *App) defaultDeferred() scheduler.Scheduler {
	mode := a.cfg.Scheduler.Deferred
	if mode == config.DeferredAuto {
		mode = config.DeferredDispatcher
		if a.testMode {
			mode = config.DeferredImmediate
		}
	}

	if mode == config.DeferredImmediate {
		return scheduler.NewImmediate()
	}

	d := scheduler.NewDispatcher(a.cfg.Scheduler.DispatcherQueueDepth, a.log.With("scheduler", "dispatcher"))
	a.closers = append(a.closers, d)
	return d
}

func (a *App) stopwatch(name string, s scheduler.Scheduler) scheduler.Scheduler {
	return scheduler.NewStopwatch(s, a.cfg.SlowActionThreshold(), a.log.With("scheduler", name), func(d time.Duration) {
		a.metrics.Slow(name, d)
	})
}

func (a *App) Config() config.Config {
	return a.cfg
}

func (a *App) Logger() pslog.Logger {
	return a.log
}

func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Gatherer exposes the app's collectors, for a /metrics handler or a test.
func (a *App) Gatherer() prometheus.Gatherer {
	return a.registry
}

func (a *App) FieldCache() *fieldcache.Cache {
	return a.fields
}

// DeferredScheduler is where foreground work goes: the dispatcher, or Immediate under test.
func (a *App) DeferredScheduler() scheduler.Scheduler {
	return a.deferred
}

// TaskpoolScheduler is where background work goes.
func (a *App) TaskpoolScheduler() scheduler.Scheduler {
	return a.taskpool
}

// InTestMode reports whether the app picked test defaults.
func (a *App) InTestMode() bool {
	return a.testMode
}

// StreamOptions configures a change stream to log and count through this app.
func (a *App) StreamOptions() []stream.Option {
	return []stream.Option{
		stream.WithLogger(a.log),
		stream.WithMonitor(a.metrics),
	}
}

// Derive returns a copy of the app with other schedulers. Nil keeps the current one.
// The copy shares everything else with a and is closed with it.
func (a *App) Derive(deferred, taskpool scheduler.Scheduler) *App {
	child := *a
	child.closers = nil
	child.parent = a

	if deferred != nil {
		child.deferred = deferred
	}
	if taskpool != nil {
		child.taskpool = taskpool
	}

	return &child
}

// Run makes a the current app of the calling goroutine until fn returns.
func (a *App) Run(fn func()) {
	push(a)
	defer pop()

	fn()
}

// Close stops the schedulers the app started.
func (a *App) Close() error {
	if a.parent != nil {
		return nil
	}

	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}

	pool := a.taskpool
	if sw, ok := pool.(*scheduler.Stopwatch); ok {
		pool = sw.Inner()
	}
	if t, ok := pool.(interface{ Wait() }); ok {
		t.Wait()
	}

	return errors.Join(errs...)
}

var (
	defaultOnce sync.Once
	defaultApp  *App
)

// Default returns the process-wide app, built on first use from the environment.
func Default() *App {
	defaultOnce.Do(func() {
		cfg, err := config.FromEnv()
		if err != nil {
			pslog.Ctx(context.Background()).With("err", err).Warn("invalid reactive configuration, using defaults")
			cfg = config.Default()
		}

		defaultApp, err = New(cfg)
		if err != nil {
			panic(err)
		}
	})

	return defaultApp
}

// Current returns the app scoped to the calling goroutine, or Default.
func Current() *App {
	if a := top(); a != nil {
		return a
	}

	return Default()
}

// InUnitTestRunner reports whether the process is a go test binary.
func InUnitTestRunner() bool {
	return testing.Testing()
}

func resolveTestMode(mode string) bool {
	switch mode {
	case config.TestModeOn:
		return true
	case config.TestModeOff:
		return false
	}

	return InUnitTestRunner()
}

func newLogger(w io.Writer, level string) pslog.Logger {
	opts := pslog.Options{
		Mode:    pslog.ModeStructured,
		NoColor: true,
	}

	switch level {
	case "trace":
		opts.MinLevel = pslog.TraceLevel
	case "debug":
		opts.MinLevel = pslog.DebugLevel
	case "warn":
		opts.MinLevel = pslog.WarnLevel
	case "error":
		opts.MinLevel = pslog.ErrorLevel
	default:
		opts.MinLevel = pslog.InfoLevel
	}

	return pslog.NewWithOptions(w, opts)
}
