// Package config holds the settings an App is built from.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// CurrentConfigVersion marks the supported config file version.
const CurrentConfigVersion = 1

var ErrInvalidConfig = errors.New("config: invalid")

// Deferred scheduler choices.
const (
	DeferredAuto       = "auto"
	DeferredImmediate  = "immediate"
	DeferredDispatcher = "dispatcher"
)

// Test mode choices. auto asks the testing package.
const (
	TestModeAuto = "auto"
	TestModeOn   = "on"
	TestModeOff  = "off"
)

// Backing field naming conventions.
const (
	NamingExact      = "exact"
	NamingLower      = "lower"
	NamingUnderscore = "underscore"
)

// Config is the immutable configuration of an App.
type Config struct {
	ConfigVersion int              `mapstructure:"config_version" yaml:"config_version"`
	TestMode      string           `mapstructure:"test_mode" yaml:"test_mode"`
	Scheduler     SchedulerConfig  `mapstructure:"scheduler" yaml:"scheduler"`
	FieldCache    FieldCacheConfig `mapstructure:"fieldcache" yaml:"fieldcache"`
	Logging       LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// SchedulerConfig selects and sizes the default schedulers.
// A SlowActionMillis of 0 disables slow action reporting.
type SchedulerConfig struct {
	Deferred             string `mapstructure:"deferred" yaml:"deferred"`
	TaskpoolWorkers      int    `mapstructure:"taskpool_workers" yaml:"taskpool_workers"`
	DispatcherQueueDepth int    `mapstructure:"dispatcher_queue_depth" yaml:"dispatcher_queue_depth"`
	SlowActionMillis     int    `mapstructure:"slow_action_ms" yaml:"slow_action_ms"`
}

// FieldCacheConfig controls backing field resolution.
type FieldCacheConfig struct {
	Size   int    `mapstructure:"size" yaml:"size"`
	Naming string `mapstructure:"naming" yaml:"naming"`
}

// LoggingConfig controls the default logger.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

func Default() Config {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		TestMode:      TestModeAuto,
		Scheduler: SchedulerConfig{
			Deferred:             DeferredAuto,
			TaskpoolWorkers:      4 * runtime.GOMAXPROCS(0),
			DispatcherQueueDepth: 1024,
			SlowActionMillis:     0,
		},
		FieldCache: FieldCacheConfig{
			Size:   50,
			Naming: NamingExact,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SlowActionThreshold returns the configured slow action limit, 0 when disabled.
func (c Config) SlowActionThreshold() time.Duration {
	return time.Duration(c.Scheduler.SlowActionMillis) * time.Millisecond
}

func (c Config) Validate() error {
	if c.ConfigVersion != CurrentConfigVersion {
		return fmt.Errorf("%w: unsupported config_version %d; expected %d", ErrInvalidConfig, c.ConfigVersion, CurrentConfigVersion)
	}

	switch c.TestMode {
	case TestModeAuto, TestModeOn, TestModeOff:
	default:
		return fmt.Errorf("%w: unsupported test_mode %q", ErrInvalidConfig, c.TestMode)
	}

	switch c.Scheduler.Deferred {
	case DeferredAuto, DeferredImmediate, DeferredDispatcher:
	default:
		return fmt.Errorf("%w: unsupported scheduler.deferred %q", ErrInvalidConfig, c.Scheduler.Deferred)
	}

	if c.Scheduler.DispatcherQueueDepth <= 0 {
		return fmt.Errorf("%w: scheduler.dispatcher_queue_depth must be positive", ErrInvalidConfig)
	}
	if c.Scheduler.SlowActionMillis < 0 {
		return fmt.Errorf("%w: scheduler.slow_action_ms must not be negative", ErrInvalidConfig)
	}
	if c.FieldCache.Size <= 0 {
		return fmt.Errorf("%w: fieldcache.size must be positive", ErrInvalidConfig)
	}

	switch c.FieldCache.Naming {
	case NamingExact, NamingLower, NamingUnderscore:
	default:
		return fmt.Errorf("%w: unsupported fieldcache.naming %q", ErrInvalidConfig, c.FieldCache.Naming)
	}

	return nil
}
