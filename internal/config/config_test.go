package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JaimeStill/form-intake/internal/config"
	"github.com/JaimeStill/form-intake/internal/database"
	"github.com/JaimeStill/form-intake/internal/objectstore"
	"github.com/JaimeStill/form-intake/pkg/logging"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const baseConfig = `
shutdown_timeout = "20s"

[server]
port = 9000

[database]
driver = "mongodb"
uri = "mongodb://db:27017"
name = "intake"
reconnect_tries = 5
reconnect_interval = "2s"

[storage]
backend = "filesystem"
base_path = "/srv/attachments"
timeout = "3s"
max_upload_size = "5MB"

[logging]
level = "debug"
format = "json"
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", baseConfig)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.ShutdownTimeoutDuration() != 20*time.Second {
		t.Errorf("ShutdownTimeoutDuration() = %v, want 20s", cfg.ShutdownTimeoutDuration())
	}
	if cfg.Server.Addr() != "0.0.0.0:9000" {
		t.Errorf("Addr() = %q, want 0.0.0.0:9000", cfg.Server.Addr())
	}
	if cfg.Database.Driver != database.DriverMongoDB || cfg.Database.Name != "intake" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Database.ReconnectWindow() != 10*time.Second {
		t.Errorf("ReconnectWindow() = %v, want 10s", cfg.Database.ReconnectWindow())
	}
	if cfg.Storage.Backend != objectstore.BackendFilesystem || cfg.Storage.TimeoutDuration() != 3*time.Second {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Storage.MaxUploadSizeBytes() != 5_000_000 {
		t.Errorf("MaxUploadSizeBytes() = %d, want 5000000", cfg.Storage.MaxUploadSizeBytes())
	}
	if cfg.Logging.Level != logging.LevelDebug || cfg.Logging.Format != logging.FormatJSON {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_Overlay(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", baseConfig)
	writeFile(t, dir, "config.staging.toml", `
[server]
port = 9100

[storage]
backend = "gcs"
bucket = "staging-attachments"
`)

	t.Setenv(config.EnvServiceEnv, "staging")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Storage.Backend != objectstore.BackendGCS || cfg.Storage.Bucket != "staging-attachments" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Storage.Timeout != "3s" {
		t.Errorf("Timeout = %q, want base value 3s", cfg.Storage.Timeout)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", baseConfig)

	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("DATABASE_RECONNECT_TRIES", "0")
	t.Setenv("STORAGE_TIMEOUT", "500ms")
	t.Setenv("LOGGING_LEVEL", "warn")
	t.Setenv(config.EnvServiceShutdownTimeout, "5s")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 7000 {
		t.Errorf("Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Database.ReconnectTries != 0 {
		t.Errorf("ReconnectTries = %d, want 0", cfg.Database.ReconnectTries)
	}
	if cfg.Storage.TimeoutDuration() != 500*time.Millisecond {
		t.Errorf("TimeoutDuration() = %v, want 500ms", cfg.Storage.TimeoutDuration())
	}
	if cfg.Logging.Level != logging.LevelWarn {
		t.Errorf("Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.ShutdownTimeoutDuration() != 5*time.Second {
		t.Errorf("ShutdownTimeoutDuration() = %v, want 5s", cfg.ShutdownTimeoutDuration())
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q, want 0.0.0.0:8080", cfg.Server.Addr())
	}
	if cfg.Database.Driver != database.DriverMongoDB {
		t.Errorf("Driver = %q, want mongodb", cfg.Database.Driver)
	}
	if cfg.Storage.TimeoutDuration() != time.Second {
		t.Errorf("TimeoutDuration() = %v, want 1s", cfg.Storage.TimeoutDuration())
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed toml", "[server\nport = 1"},
		{"invalid shutdown timeout", `shutdown_timeout = "later"`},
		{"invalid port", "[server]\nport = 70000"},
		{"unknown driver", "[database]\ndriver = \"redis\""},
		{"invalid log level", "[logging]\nlevel = \"loud\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.toml", tt.content)

			if _, err := config.Load(path); err == nil {
				t.Error("Load() succeeded, want error")
			}
		})
	}
}

func TestServerConfig_Merge(t *testing.T) {
	base := &config.ServerConfig{
		Host:            "localhost",
		Port:            8080,
		ReadTimeout:     "30s",
		WriteTimeout:    "30s",
		ShutdownTimeout: "30s",
	}

	base.Merge(&config.ServerConfig{Port: 9090, WriteTimeout: "60s", IdleTimeout: "5m"})

	if base.Host != "localhost" {
		t.Errorf("Host = %q, want %q (should not change)", base.Host, "localhost")
	}
	if base.Port != 9090 {
		t.Errorf("Port = %d, want %d (should merge)", base.Port, 9090)
	}
	if base.ReadTimeout != "30s" {
		t.Errorf("ReadTimeout = %q, want %q (should not change)", base.ReadTimeout, "30s")
	}
	if base.WriteTimeout != "60s" {
		t.Errorf("WriteTimeout = %q, want %q (should merge)", base.WriteTimeout, "60s")
	}
	if base.IdleTimeoutDuration() != 5*time.Minute {
		t.Errorf("IdleTimeoutDuration() = %v, want 5m (should merge)", base.IdleTimeoutDuration())
	}
}

func TestServerConfig_Addr(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		port     int
		expected string
	}{
		{"default", "0.0.0.0", 8080, "0.0.0.0:8080"},
		{"localhost", "localhost", 3000, "localhost:3000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.ServerConfig{Host: tt.host, Port: tt.port}
			if got := cfg.Addr(); got != tt.expected {
				t.Errorf("Addr() = %q, want %q", got, tt.expected)
			}
		})
	}
}
