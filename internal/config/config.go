// Package config loads stackload settings from defaults, an optional
// config file, STACKLOAD_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/matzehuels/stackload/pkg/cache"
	"github.com/matzehuels/stackload/pkg/download"
	"github.com/matzehuels/stackload/pkg/errors"
	"github.com/matzehuels/stackload/pkg/program"
)

const (
	// AppName is the application name used for directories and env vars.
	AppName = "stackload"
	// EnvPrefix prefixes every environment variable, e.g. STACKLOAD_WORKERS.
	EnvPrefix = "STACKLOAD"
)

// Index backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config holds every setting.
type Config struct {
	CacheDir string      `mapstructure:"cache_dir"`
	Clean    bool        `mapstructure:"clean"`
	Workers  int         `mapstructure:"workers"`
	Index    IndexConfig `mapstructure:"index"`
	Serve    ServeConfig `mapstructure:"serve"`
}

// IndexConfig configures the download freshness index.
type IndexConfig struct {
	Backend   string        `mapstructure:"backend"`
	TTL       time.Duration `mapstructure:"ttl"`
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db"`
}

// ServeConfig configures the HTTP server.
type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		CacheDir: defaultCacheDir(),
		Workers:  program.DefaultWorkers,
		Index: IndexConfig{
			Backend:   BackendFile,
			TTL:       download.DefaultTTL,
			RedisAddr: "localhost:6379",
		},
		Serve: ServeConfig{Addr: ":8080"},
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppName)
	}
	return filepath.Join(dir, AppName)
}

// Dir returns the directory searched for config.{yaml,toml,json}.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, AppName)
}

// New returns a viper instance with defaults and environment binding set
// up. Flags can be bound to it before calling [Load].
func New() *viper.Viper {
	v := viper.New()

	d := Default()
	v.SetDefault("cache_dir", d.CacheDir)
	v.SetDefault("clean", d.Clean)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("index.backend", d.Index.Backend)
	v.SetDefault("index.ttl", d.Index.TTL)
	v.SetDefault("index.redis_addr", d.Index.RedisAddr)
	v.SetDefault("index.redis_db", d.Index.RedisDB)
	v.SetDefault("serve.addr", d.Serve.Addr)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file (file, or config.* in [Dir] when empty) into
// v and decodes the result. A missing default config file is not an
// error; a missing explicit one is. It returns the file used, if any.
func Load(v *viper.Viper, file string) (Config, string, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		if dir := Dir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !stderrors.As(err, &notFound) {
			return Config{}, "", errors.Wrap(errors.ErrCodeInvalidInput, err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", errors.Wrap(errors.ErrCodeInvalidInput, err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, "", err
	}
	return cfg, v.ConfigFileUsed(), nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if c.CacheDir == "" {
		return errors.New(errors.ErrCodeInvalidInput, "cache_dir must not be empty")
	}
	if c.Workers < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "workers must be at least 1, got %d", c.Workers)
	}
	switch c.Index.Backend {
	case BackendFile, BackendRedis, BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidInput,
			"index.backend must be one of %s, %s, %s; got %q", BackendFile, BackendRedis, BackendNone, c.Index.Backend)
	}
	if c.Index.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "index.ttl must not be negative")
	}
	return nil
}

// DownloadDir is where archives are unpacked.
func (c Config) DownloadDir() string { return filepath.Join(c.CacheDir, "downloads") }

// IndexDir is where the file index backend stores entries.
func (c Config) IndexDir() string { return filepath.Join(c.CacheDir, "index") }

// OpenIndex opens the configured freshness index backend.
func (c Config) OpenIndex(ctx context.Context) (cache.Cache, error) {
	switch c.Index.Backend {
	case BackendNone:
		return cache.NewNullCache(), nil
	case BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: c.Index.RedisAddr, DB: c.Index.RedisDB})
		if err != nil {
			return nil, err
		}
		return cache.Prefixed(rc, AppName+":download:"), nil
	case BackendFile:
		return cache.NewFileCache(c.IndexDir())
	default:
		return nil, fmt.Errorf("unknown index backend %q", c.Index.Backend)
	}
}
