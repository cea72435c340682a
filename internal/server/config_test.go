package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iwvelando/revenue-forecast/pkg/constants"
)

func writeServerConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server-config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	for name, path := range map[string]string{
		"missing file": filepath.Join(t.TempDir(), "missing.yaml"),
		"empty path":   "",
	} {
		t.Run(name, func(t *testing.T) {
			cfg, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}

			if cfg.Address != constants.DefaultServerAddress {
				t.Errorf("Address = %q, expected %q", cfg.Address, constants.DefaultServerAddress)
			}
			if cfg.UploadSizeBytes() != constants.DefaultMaxUploadSizeBytes {
				t.Errorf("UploadSizeBytes() = %d, expected %d", cfg.UploadSizeBytes(), constants.DefaultMaxUploadSizeBytes)
			}
			if cfg.ReadHeaderTimeout != defaultReadHeaderTimeout || cfg.ShutdownTimeout != defaultShutdownTimeout {
				t.Errorf("timeouts = %v/%v", cfg.ReadHeaderTimeout, cfg.ShutdownTimeout)
			}
			if cfg.Storage.Driver != "none" || cfg.Cache.Driver != "none" {
				t.Errorf("expected storage and cache disabled, got %q and %q", cfg.Storage.Driver, cfg.Cache.Driver)
			}
			if cfg.Cache.TTLSeconds != constants.DefaultCacheTTLSeconds {
				t.Errorf("TTLSeconds = %d, expected %d", cfg.Cache.TTLSeconds, constants.DefaultCacheTTLSeconds)
			}
			if cfg.Logging.Level != "" || cfg.Logging.Format != "" || cfg.Logging.OutputFile != "" {
				t.Errorf("expected empty logging defaults, got %+v", cfg.Logging)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeServerConfig(t, `address: 127.0.0.1:9000
maxUploadSize: 2M
readHeaderTimeout: 3s
shutdownTimeout: 1m
storage:
  driver: SQLite3
  path: /tmp/revenue.db
cache:
  driver: redis
  url: redis://localhost:6379/0
  ttlSeconds: 60
logging:
  level: debug
  format: console
  outputFile: /tmp/revenue-api.log
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Address != "127.0.0.1:9000" {
		t.Errorf("Address = %s", cfg.Address)
	}
	if cfg.UploadSizeBytes() != 2*1024*1024 || cfg.MaxUploadSize != "2097152" {
		t.Errorf("upload size = %d (%s)", cfg.UploadSizeBytes(), cfg.MaxUploadSize)
	}
	if cfg.ReadHeaderTimeout != 3*time.Second || cfg.ShutdownTimeout != time.Minute {
		t.Errorf("timeouts = %v/%v", cfg.ReadHeaderTimeout, cfg.ShutdownTimeout)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Path != "/tmp/revenue.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Cache.Driver != "redis" || cfg.Cache.TTL() != time.Minute {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" || cfg.Logging.OutputFile != "/tmp/revenue-api.log" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	path := writeServerConfig(t, "storage:\n  driver: sqlite\n  path: ./data/revenue.db\n")

	t.Setenv("REVENUE_FORECAST_SERVER_ADDRESS", ":9100")
	t.Setenv("REVENUE_FORECAST_SERVER_STORAGE_DRIVER", "postgres")
	t.Setenv("REVENUE_FORECAST_SERVER_STORAGE_DSN", "postgres://forecast@db/revenue")
	t.Setenv("REVENUE_FORECAST_SERVER_CACHE_DRIVER", "memory")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Address != ":9100" {
		t.Errorf("Address = %q, expected :9100", cfg.Address)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.DSN != "postgres://forecast@db/revenue" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Cache.Driver != "memory" {
		t.Errorf("cache driver = %q, expected memory", cfg.Cache.Driver)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := map[string]string{
		"invalid upload size":  "maxUploadSize: invalid\n",
		"unsupported unit":     "maxUploadSize: 1TB\n",
		"malformed yaml":       "address: [unclosed\n",
		"postgres without dsn": "storage:\n  driver: postgres\n",
		"unknown storage":      "storage:\n  driver: mongo\n",
		"redis without url":    "cache:\n  driver: redis\n",
	}

	for name, contents := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeServerConfig(t, contents)); err == nil {
				t.Fatal("expected error but got nil")
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := map[string]int64{
		"":          constants.DefaultMaxUploadSizeBytes,
		"1024":      1024,
		"512b":      512,
		"256KB":     256 * 1024,
		"1m":        1024 * 1024,
		"3 MB":      3 * 1024 * 1024,
		"2G":        2 * 1024 * 1024 * 1024,
		"  4096   ": 4096,
	}

	for input, expected := range tests {
		got, err := ParseSize(input)
		if err != nil {
			t.Fatalf("ParseSize(%q) returned error: %v", input, err)
		}
		if got != expected {
			t.Errorf("ParseSize(%q) = %d, expected %d", input, got, expected)
		}
	}

	for _, input := range []string{"1TB", "abc", "KB", "-5", "9223372036854775807G"} {
		if _, err := ParseSize(input); err == nil {
			t.Errorf("ParseSize(%q) expected error", input)
		}
	}
}
