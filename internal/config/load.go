package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. REACTIVE_SCHEDULER_DEFERRED.
const EnvPrefix = "REACTIVE"

// Load reads configuration from the yaml file at path, then applies environment overrides.
// A missing file is not an error; the defaults are used instead.
func Load(path string) (Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("%w: config_version is required; expected %d", ErrInvalidConfig, CurrentConfigVersion)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// FromEnv returns the defaults with environment overrides applied.
func FromEnv() (Config, error) {
	return Load("")
}

// Write stores cfg as yaml at path.
func Write(path string, cfg Config, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

func newViper() *viper.Viper {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("test_mode", cfg.TestMode)
	v.SetDefault("scheduler.deferred", cfg.Scheduler.Deferred)
	v.SetDefault("scheduler.taskpool_workers", cfg.Scheduler.TaskpoolWorkers)
	v.SetDefault("scheduler.dispatcher_queue_depth", cfg.Scheduler.DispatcherQueueDepth)
	v.SetDefault("scheduler.slow_action_ms", cfg.Scheduler.SlowActionMillis)
	v.SetDefault("fieldcache.size", cfg.FieldCache.Size)
	v.SetDefault("fieldcache.naming", cfg.FieldCache.Naming)
	v.SetDefault("logging.level", cfg.Logging.Level)

	return v
}
