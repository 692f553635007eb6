package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/stackload/pkg/cache"
	"github.com/matzehuels/stackload/pkg/errors"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, used, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if used != "" {
		t.Errorf("config file used = %q, want none", used)
	}
	want := Default()
	if cfg != want {
		t.Errorf("Load() = %+v, want %+v", cfg, want)
	}
}

func TestLoadEnv(t *testing.T) {
	isolate(t)
	t.Setenv("STACKLOAD_WORKERS", "5")
	t.Setenv("STACKLOAD_INDEX_BACKEND", "none")
	t.Setenv("STACKLOAD_INDEX_TTL", "90m")
	t.Setenv("STACKLOAD_CLEAN", "true")

	cfg, _, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 5 || cfg.Index.Backend != BackendNone || cfg.Index.TTL != 90*time.Minute || !cfg.Clean {
		t.Errorf("Load() = %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "stackload.toml")
	content := `
cache_dir = "/var/cache/stackload"

[index]
backend = "redis"
redis_addr = "redis:6379"
redis_db = 2

[serve]
addr = "127.0.0.1:9000"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, used, err := Load(New(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if used != path {
		t.Errorf("config file used = %q, want %q", used, path)
	}
	if cfg.CacheDir != "/var/cache/stackload" || cfg.Index.RedisAddr != "redis:6379" || cfg.Index.RedisDB != 2 {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.Serve.Addr != "127.0.0.1:9000" {
		t.Errorf("Serve.Addr = %q", cfg.Serve.Addr)
	}
	if cfg.DownloadDir() != "/var/cache/stackload/downloads" {
		t.Errorf("DownloadDir() = %q", cfg.DownloadDir())
	}
}

func TestLoadDefaultDirFile(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	if err := os.MkdirAll(filepath.Join(xdg, AppName), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(xdg, AppName, "config.yaml"), []byte("workers: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, used, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 3 || used == "" {
		t.Errorf("Load() = %+v from %q", cfg, used)
	}
}

func TestLoadErrors(t *testing.T) {
	isolate(t)

	if _, _, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("missing explicit file: err = %v", err)
	}

	t.Setenv("STACKLOAD_INDEX_BACKEND", "memcached")
	if _, _, err := Load(New(), ""); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bad backend: err = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"no cache dir", func(c *Config) { c.CacheDir = "" }, false},
		{"zero workers", func(c *Config) { c.Workers = 0 }, false},
		{"negative ttl", func(c *Config) { c.Index.TTL = -time.Second }, false},
		{"redis", func(c *Config) { c.Index.Backend = BackendRedis }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			if err := cfg.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestOpenIndex(t *testing.T) {
	cfg := Default()
	cfg.CacheDir = t.TempDir()

	cfg.Index.Backend = BackendNone
	c, err := cfg.OpenIndex(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*cache.NullCache); !ok {
		t.Errorf("none backend = %T", c)
	}

	cfg.Index.Backend = BackendFile
	c, err = cfg.OpenIndex(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if fc, ok := c.(*cache.FileCache); !ok || fc.Dir() != cfg.IndexDir() {
		t.Errorf("file backend = %T", c)
	}
}
