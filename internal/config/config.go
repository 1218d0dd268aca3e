// Package config loads the sessiontable settings from a YAML file and the environment.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no explicit path is given and it exists in the working directory.
const DefaultFile = "sessiontable.yaml"

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Config is the full runtime configuration.
// Precedence, lowest first: defaults, YAML file, SESSIONTABLE_* environment, CLI flags.
type Config struct {
	Driver          string        `mapstructure:"driver" env:"SESSIONTABLE_DRIVER"`
	Path            string        `mapstructure:"path" env:"SESSIONTABLE_PATH"`
	Table           string        `mapstructure:"table" env:"SESSIONTABLE_TABLE"`
	DefaultTTL      time.Duration `mapstructure:"default_ttl" env:"SESSIONTABLE_DEFAULT_TTL"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" env:"SESSIONTABLE_CLEANUP_INTERVAL"`
	MetricsAddr     string        `mapstructure:"metrics_addr" env:"SESSIONTABLE_METRICS_ADDR"`

	// EncryptionKey is a base64 encoded 32-byte key. Empty disables encryption.
	EncryptionKey          string   `mapstructure:"encryption_key" env:"SESSIONTABLE_ENCRYPTION_KEY"`
	EncryptionFallbackKeys []string `mapstructure:"encryption_fallback_keys"`
	MaskPatterns           []string `mapstructure:"mask_patterns"`

	Redis RedisConfig `mapstructure:"redis"`
	Log   LogConfig   `mapstructure:"log"`
}

// RedisConfig selects the Redis server used by the redis driver.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" env:"SESSIONTABLE_REDIS_ADDR"`
	Password string `mapstructure:"password" env:"SESSIONTABLE_REDIS_PASSWORD"`
	DB       int    `mapstructure:"db" env:"SESSIONTABLE_REDIS_DB"`
	Prefix   string `mapstructure:"prefix" env:"SESSIONTABLE_REDIS_PREFIX"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" env:"SESSIONTABLE_LOG_LEVEL"`
	Format string `mapstructure:"format" env:"SESSIONTABLE_LOG_FORMAT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Driver:          DriverSQLite,
		Path:            "sessions.db",
		Table:           "sessions",
		DefaultTTL:      24 * time.Hour,
		CleanupInterval: 15 * time.Minute,
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "sessiontable:session:",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads defaults, then the YAML file at path, then the environment.
// An empty path falls back to DefaultFile when present; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return cfg, fmt.Errorf("failed to read environment: %w", err)
	}

	return cfg, nil
}

// decodeYAML overlays the document on cfg; unknown keys are rejected.
func decodeYAML(data []byte, cfg *Config) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

// Validate checks the settings that cannot be fixed up silently.
func (c Config) Validate() error {
	var errs []error

	switch c.Driver {
	case DriverSQLite, DriverMemory, DriverRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown driver %q (want sqlite, memory or redis)", c.Driver))
	}
	if c.Driver == DriverSQLite && c.Path == "" {
		errs = append(errs, errors.New("path is required for the sqlite driver"))
	}
	if c.DefaultTTL <= 0 {
		errs = append(errs, fmt.Errorf("default_ttl must be positive, got %s", c.DefaultTTL))
	}
	if c.CleanupInterval <= 0 {
		errs = append(errs, fmt.Errorf("cleanup_interval must be positive, got %s", c.CleanupInterval))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q (want text or json)", c.Log.Format))
	}
	if _, _, err := c.Keys(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Keys decodes the active and fallback encryption keys. active is nil when encryption is off.
func (c Config) Keys() (active []byte, fallback [][]byte, err error) {
	if c.EncryptionKey == "" {
		if len(c.EncryptionFallbackKeys) > 0 {
			return nil, nil, errors.New("encryption_fallback_keys requires encryption_key")
		}
		return nil, nil, nil
	}

	active, err = decodeKey(c.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("encryption_key: %w", err)
	}
	for i, k := range c.EncryptionFallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("encryption_fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
