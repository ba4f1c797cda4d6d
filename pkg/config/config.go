// Package config loads pkgscope settings.
//
// Settings come from three layers, later ones winning:
//
//  1. built-in defaults ([Default])
//  2. a TOML file, by default $XDG_CONFIG_HOME/pkgscope/config.toml
//  3. environment variables (PKGSCOPE_*, REDIS_URL, MONGO_URI)
//
// Example file:
//
//	[resolver]
//	batch_size = 20
//	platform = { os = "linux", cpu = "arm64", libc = "musl" }
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//	prefix = "staging:"
//
//	[server]
//	addr = ":8080"
//	mongo_uri = "mongodb://localhost:27017"
package config

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/pkgscope/pkg/cache"
	"github.com/matzehuels/pkgscope/pkg/deps"
	"github.com/matzehuels/pkgscope/pkg/errors"
	"github.com/matzehuels/pkgscope/pkg/integrations"
	"github.com/matzehuels/pkgscope/pkg/integrations/osv"
)

const appName = "pkgscope"

// Cache backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Config is the full pkgscope configuration.
type Config struct {
	Registry RegistryConfig `toml:"registry"`
	OSV      OSVConfig      `toml:"osv"`
	Resolver ResolverConfig `toml:"resolver"`
	Cache    CacheConfig    `toml:"cache"`
	Server   ServerConfig   `toml:"server"`
}

// RegistryConfig tunes npm registry calls.
type RegistryConfig struct {
	Timeout       time.Duration `toml:"timeout"`
	RetryAttempts int           `toml:"retry_attempts"`
}

// OSVConfig tunes vulnerability lookups.
type OSVConfig struct {
	URL     string        `toml:"url"`
	Timeout time.Duration `toml:"timeout"`
}

// ResolverConfig tunes dependency resolution.
type ResolverConfig struct {
	BatchSize int           `toml:"batch_size"`
	Platform  deps.Platform `toml:"platform"`
}

// CacheConfig selects and sizes the cache backend.
type CacheConfig struct {
	Backend    string `toml:"backend"`
	Dir        string `toml:"dir"`
	RedisURL   string `toml:"redis_url"`
	MaxEntries int    `toml:"max_entries"`
	Prefix     string `toml:"prefix"` // namespaces keys on a shared backend
}

// ServerConfig configures `pkgscope serve`.
type ServerConfig struct {
	Addr          string `toml:"addr"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Registry: RegistryConfig{Timeout: integrations.RegistryTimeout, RetryAttempts: integrations.DefaultRetryAttempts},
		OSV:      OSVConfig{URL: osv.DefaultBaseURL, Timeout: integrations.AuxiliaryTimeout},
		Resolver: ResolverConfig{BatchSize: deps.DefaultBatchSize, Platform: deps.DefaultPlatform},
		Cache:    CacheConfig{Backend: BackendFile, MaxEntries: cache.DefaultMemoryEntries},
		Server:   ServerConfig{Addr: ":8080"},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/pkgscope/config.toml, falling back
// to ~/.config/pkgscope/config.toml.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// DefaultCacheDir returns $XDG_CACHE_HOME/pkgscope, falling back to
// ~/.cache/pkgscope.
func DefaultCacheDir() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Load reads the configuration. An empty path means DefaultPath, which may
// be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		_, err := toml.DecodeFile(path, cfg)
		if err != nil && (explicit || !os.IsNotExist(err)) {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	setString(&c.Cache.Backend, "PKGSCOPE_CACHE_BACKEND")
	setString(&c.Cache.Dir, "PKGSCOPE_CACHE_DIR")
	setString(&c.Cache.RedisURL, "PKGSCOPE_REDIS_URL", "REDIS_URL")
	setString(&c.Cache.Prefix, "PKGSCOPE_CACHE_PREFIX")
	setString(&c.Server.Addr, "PKGSCOPE_ADDR")
	setString(&c.Server.MongoURI, "PKGSCOPE_MONGO_URI", "MONGO_URI")
	setString(&c.Server.MongoDatabase, "PKGSCOPE_MONGO_DATABASE")
	setString(&c.OSV.URL, "PKGSCOPE_OSV_URL")

	if v := os.Getenv("PKGSCOPE_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "PKGSCOPE_BATCH_SIZE")
		}
		c.Resolver.BatchSize = n
	}
	if v := os.Getenv("PKGSCOPE_PLATFORM"); v != "" {
		p, err := ParsePlatform(v)
		if err != nil {
			return err
		}
		c.Resolver.Platform = p
	}
	return nil
}

// ParsePlatform parses "os/cpu" or "os/cpu/libc".
func ParsePlatform(s string) (deps.Platform, error) {
	parts := strings.Split(s, "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return deps.Platform{}, errors.New(errors.ErrCodeInvalidConfig, "invalid platform %q (want os/cpu[/libc])", s)
	}
	p := deps.Platform{OS: parts[0], CPU: parts[1]}
	if len(parts) == 3 {
		p.Libc = parts[2]
	}
	return p, nil
}

// Validate checks value ranges and the cache backend name.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case BackendFile, BackendMemory, BackendNone:
	case BackendRedis:
		if c.Cache.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache backend redis needs redis_url or REDIS_URL")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Resolver.BatchSize < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "batch_size must not be negative")
	}
	if c.Registry.RetryAttempts < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "retry_attempts must not be negative")
	}
	if err := errors.ValidateURL(c.OSV.URL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "osv url")
	}
	return nil
}

// ResolverOptions converts the resolver section to deps.Options.
func (c *Config) ResolverOptions() deps.Options {
	return deps.Options{BatchSize: c.Resolver.BatchSize, Platform: c.Resolver.Platform}
}

// Keyer returns the cache key scheme, scoped by the cache prefix if one is
// set.
func (c *Config) Keyer() cache.Keyer {
	if c.Cache.Prefix == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), c.Cache.Prefix)
}

// OpenCache creates the configured cache backend.
func (c *Config) OpenCache(ctx context.Context) (cache.Cache, error) {
	switch c.Cache.Backend {
	case BackendNone:
		return cache.NewNullCache(), nil
	case BackendMemory:
		return cache.NewMemoryCache(c.Cache.MaxEntries)
	case BackendRedis:
		return cache.NewRedisCache(ctx, c.Cache.RedisURL)
	default:
		dir := c.Cache.Dir
		if dir == "" {
			d, err := DefaultCacheDir()
			if err != nil {
				return cache.NewNullCache(), nil
			}
			dir = d
		}
		return cache.NewFileCache(dir)
	}
}
