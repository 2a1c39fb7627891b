package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "reactive.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestDefault(t *testing.T) {
	t.Run("is valid", func(t *testing.T) {
		cfg := Default()

		require.NoError(t, cfg.Validate())
		assert.Equal(t, 50, cfg.FieldCache.Size)
		assert.Equal(t, DeferredAuto, cfg.Scheduler.Deferred)
		assert.Equal(t, time.Duration(0), cfg.SlowActionThreshold())
	})
}

func TestLoad(t *testing.T) {
	t.Run("reads a yaml file over the defaults", func(t *testing.T) {
		path := writeConfig(t, `
config_version: 1
scheduler:
  deferred: dispatcher
  slow_action_ms: 250
fieldcache:
  naming: lower
`)

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, DeferredDispatcher, cfg.Scheduler.Deferred)
		assert.Equal(t, 250*time.Millisecond, cfg.SlowActionThreshold())
		assert.Equal(t, NamingLower, cfg.FieldCache.Naming)
		assert.Equal(t, 50, cfg.FieldCache.Size)
		assert.Equal(t, Default().Scheduler.DispatcherQueueDepth, cfg.Scheduler.DispatcherQueueDepth)
	})

	t.Run("falls back to defaults when the file is missing", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)

		assert.Equal(t, Default(), cfg)
	})

	t.Run("requires a config version in files", func(t *testing.T) {
		path := writeConfig(t, `
fieldcache:
  size: 10
`)

		_, err := Load(path)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects unknown choices", func(t *testing.T) {
		path := writeConfig(t, `
config_version: 1
scheduler:
  deferred: sometimes
`)

		_, err := Load(path)
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.ErrorContains(t, err, "scheduler.deferred")
	})

	t.Run("applies environment overrides", func(t *testing.T) {
		t.Setenv("REACTIVE_FIELDCACHE_SIZE", "7")
		t.Setenv("REACTIVE_TEST_MODE", "off")
		t.Setenv("REACTIVE_LOGGING_LEVEL", " DEBUG ")

		cfg, err := FromEnv()
		require.NoError(t, err)

		assert.Equal(t, 7, cfg.FieldCache.Size)
		assert.Equal(t, TestModeOff, cfg.TestMode)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})
}

func TestWrite(t *testing.T) {
	t.Run("round trips through load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "reactive.yaml")

		cfg := Default()
		cfg.FieldCache.Naming = NamingUnderscore
		require.NoError(t, Write(path, cfg, false))

		loaded, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, cfg, loaded)
	})

	t.Run("refuses to overwrite unless asked", func(t *testing.T) {
		path := writeConfig(t, "config_version: 1\n")

		assert.Error(t, Write(path, Default(), false))
		assert.NoError(t, Write(path, Default(), true))
	})
}
