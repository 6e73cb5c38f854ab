// Package config resolves runtime settings from an optional YAML file and the
// environment. Command line flags are applied on top by the caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"halights/internal/ha"
	"halights/internal/storage"

	"gopkg.in/yaml.v3"
)

// Environment variables recognised by Load
const (
	EnvHost           = "HA_HOST"
	EnvToken          = "HA_TOKEN"
	EnvSecure         = "HA_SECURE"
	EnvStore          = "HALIGHTS_STORE"
	EnvStorePath      = "HALIGHTS_STORE_PATH"
	EnvConnectTimeout = "HALIGHTS_CONNECT_TIMEOUT"
	EnvLogLevel       = "HALIGHTS_LOG_LEVEL"
	EnvLogFile        = "HALIGHTS_LOG_FILE"
)

// Config holds everything the CLI needs to build the app
type Config struct {
	Host           string        `yaml:"host"`
	Token          string        `yaml:"token"`
	Secure         bool          `yaml:"secure"`
	Store          string        `yaml:"store"`
	StorePath      string        `yaml:"store_path"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	LogLevel       string        `yaml:"log_level"`
	LogFile        string        `yaml:"log_file"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Store:          storage.BackendFile,
		ConnectTimeout: ha.DefaultConnectTimeout,
	}
}

// Load starts from Default, applies the YAML file at path when path is not
// empty, then environment variables. The store path is filled in last if
// nothing set it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if cfg.StorePath == "" {
		p, err := DefaultStorePath(cfg.Store)
		if err != nil {
			return nil, err
		}
		cfg.StorePath = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str(EnvHost, &c.Host)
	str(EnvToken, &c.Token)
	str(EnvStore, &c.Store)
	str(EnvStorePath, &c.StorePath)
	str(EnvLogLevel, &c.LogLevel)
	str(EnvLogFile, &c.LogFile)

	if v, ok := lookup(EnvSecure); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvSecure, v, err)
		}
		c.Secure = b
	}

	if v, ok := lookup(EnvConnectTimeout); ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvConnectTimeout, v, err)
		}
		c.ConnectTimeout = d
	}
	return nil
}

// parseDuration accepts Go durations ("5s") and bare milliseconds ("5000")
func parseDuration(v string) (time.Duration, error) {
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(v)
}

// Validate checks the settings that have a closed set of values
func (c *Config) Validate() error {
	switch c.Store {
	case storage.BackendFile, storage.BackendSQLite, storage.BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive, got %s", c.ConnectTimeout)
	}
	return nil
}

// DefaultStorePath places the store under the user config directory
func DefaultStorePath(backend string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}

	name := "store.yaml"
	if strings.EqualFold(backend, storage.BackendSQLite) {
		name = "store.db"
	}
	return filepath.Join(dir, "halights", name), nil
}
