package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskflow.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8000" || cfg.Store.Driver != DriverMemory {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9999"
  shutdown_timeout: 3s
store:
  driver: sqlite
  sqlite:
    path: /tmp/tasks.db
events:
  history: 50
log_level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.ShutdownTimeout != 3*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Store.Driver != DriverSQLite || cfg.Store.SQLite.Path != "/tmp/tasks.db" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Store.Redis.Prefix != "taskflow" {
		t.Errorf("unset redis prefix lost its default: %q", cfg.Store.Redis.Prefix)
	}
	if cfg.Events.History != 50 {
		t.Errorf("Events.History = %d", cfg.Events.History)
	}
	lvl, _ := cfg.SlogLevel()
	if lvl != slog.LevelDebug {
		t.Errorf("level = %v, want debug", lvl)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"redis", func(c *Config) { c.Store.Driver = DriverRedis }, false},
		{"unknown driver", func(c *Config) { c.Store.Driver = "postgres" }, true},
		{"sqlite without path", func(c *Config) { c.Store.Driver = DriverSQLite; c.Store.SQLite.Path = "" }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"upper case level", func(c *Config) { c.LogLevel = "WARN" }, false},
		{"negative shutdown", func(c *Config) { c.Server.ShutdownTimeout = -time.Second }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"TASKFLOW_ADDR":      ":7000",
		"TASKFLOW_STORE":     "redis",
		"TASKFLOW_LOG_LEVEL": "",
	}
	cfg := DefaultConfig()
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if cfg.Server.Addr != ":7000" || cfg.Store.Driver != DriverRedis {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("empty env value overrode LogLevel: %q", cfg.LogLevel)
	}
}
