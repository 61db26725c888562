package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Redis.Enabled {
		t.Error("Redis.Enabled = true, want false by default")
	}
	if cfg.Kafka.Enabled {
		t.Error("Kafka.Enabled = true, want false by default")
	}
	if cfg.RateLimit.RequestsPerMinute != 600 {
		t.Errorf("RateLimit.RequestsPerMinute = %d, want 600", cfg.RateLimit.RequestsPerMinute)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9999
  readTimeout: 5s
redis:
  enabled: true
  addr: redis.internal:6379
  cacheTTL: 2m
logging:
  level: debug
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%s): %v", path, err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("Server.ReadTimeout = %s, want 5s", cfg.Server.ReadTimeout)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "redis.internal:6379" {
		t.Errorf("Redis = %+v, want enabled at redis.internal:6379", cfg.Redis)
	}
	if cfg.Redis.CacheTTL != 2*time.Minute {
		t.Errorf("Redis.CacheTTL = %s, want 2m", cfg.Redis.CacheTTL)
	}
	// Untouched sections keep their defaults.
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Metrics.Port = %d, want 9090", cfg.Metrics.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("Load of missing file succeeded, want error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SYN_SERVER_PORT", "7070")
	t.Setenv("SYN_REDIS_ENABLED", "true")
	t.Setenv("SYN_LOGGING_LEVEL", "warn")
	t.Setenv("SYN_RATELIMIT_RPM", "30")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if !cfg.Redis.Enabled {
		t.Error("Redis.Enabled = false, want true from env")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.RateLimit.RequestsPerMinute != 30 {
		t.Errorf("RateLimit.RequestsPerMinute = %d, want 30", cfg.RateLimit.RequestsPerMinute)
	}
}
