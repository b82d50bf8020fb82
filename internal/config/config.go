// Package config loads the application configuration, merging a YAML
// file with environment variables and built-in defaults. Source
// declarations live separately in the TOML source store; this covers
// the process-level knobs.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
	ConfigDir string        `mapstructure:"config_dir"`
	DataDir   string        `mapstructure:"data_dir"`
	Fetch     FetchConfig   `mapstructure:"fetch"`
	Retry     RetryConfig   `mapstructure:"retry"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
	Storage   StorageConfig `mapstructure:"storage"`
	Logger    LoggerConfig  `mapstructure:"logger"`
}

// FetchConfig bounds the parallel fan-out.
type FetchConfig struct {
	MaxConcurrent int `mapstructure:"max_concurrent"`
	DefaultLimit  int `mapstructure:"default_limit"`
}

// RetryConfig sets the safe-executor retry policy.
type RetryConfig struct {
	Attempts          uint          `mapstructure:"attempts"`
	MinWait           time.Duration `mapstructure:"min_wait"`
	MaxWait           time.Duration `mapstructure:"max_wait"`
	PerAttemptTimeout time.Duration `mapstructure:"per_attempt_timeout"`
}

// BreakerConfig toggles the per-source circuit breaker.
type BreakerConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// StorageConfig selects the entry store backend.
type StorageConfig struct {
	// Backend is "sqlite" or "memory".
	Backend string `mapstructure:"backend"`
}

// LoggerConfig tunes the zap logger.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// Load reads configuration from vigil.yaml and the environment.
// A missing file is fine; defaults and VIGIL_* env vars apply.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("vigil")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.vigil")

	// VIGIL_FETCH_MAX_CONCURRENT=8 overrides fetch.max_concurrent.
	v.SetEnvPrefix("vigil")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("fetch.max_concurrent", 4)
	v.SetDefault("fetch.default_limit", 20)
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.min_wait", 1*time.Second)
	v.SetDefault("retry.max_wait", 10*time.Second)
	v.SetDefault("retry.per_attempt_timeout", 15*time.Second)
	v.SetDefault("breaker.enabled", false)
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
}
