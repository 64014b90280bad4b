// Package config defines the TaskFlow application configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config is the top-level TaskFlow configuration.
type Config struct {
	Server   ServerConfig `json:"server" yaml:"server"`
	Store    StoreConfig  `json:"store" yaml:"store"`
	Events   EventsConfig `json:"events" yaml:"events"`
	LogLevel string       `json:"log_level" yaml:"log_level"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr            string        `json:"addr" yaml:"addr"` // listen address, e.g., ":8000"
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// StoreConfig selects and configures the task store.
type StoreConfig struct {
	Driver string       `json:"driver" yaml:"driver"` // "memory", "sqlite", "redis"
	SQLite SQLiteConfig `json:"sqlite" yaml:"sqlite"`
	Redis  RedisConfig  `json:"redis" yaml:"redis"`
}

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	Path string `json:"path" yaml:"path"`
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password,omitempty" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Prefix   string `json:"prefix" yaml:"prefix"`
}

// EventsConfig controls the task event bus.
type EventsConfig struct {
	History int `json:"history" yaml:"history"` // events retained for /events/history
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Driver: DriverMemory,
			SQLite: SQLiteConfig{Path: "./data/taskflow.db"},
			Redis:  RedisConfig{Addr: "localhost:6379", Prefix: "taskflow"},
		},
		Events:   EventsConfig{History: 1000},
		LogLevel: "info",
	}
}

// Load reads a YAML config file and returns the parsed configuration.
// A missing file yields the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from TASKFLOW_* environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("TASKFLOW_ADDR"); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup("TASKFLOW_STORE"); ok && v != "" {
		c.Store.Driver = v
	}
	if v, ok := lookup("TASKFLOW_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverRedis:
	case DriverSQLite:
		if c.Store.SQLite.Path == "" {
			return errors.New("store.sqlite.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.Server.ShutdownTimeout < 0 {
		return errors.New("server.shutdown_timeout must not be negative")
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return lvl, nil
}
