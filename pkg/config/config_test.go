package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/pkgscope/pkg/cache"
	"github.com/matzehuels/pkgscope/pkg/deps"
	"github.com/matzehuels/pkgscope/pkg/errors"
)

// isolate points the XDG directories at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	for _, k := range []string{
		"PKGSCOPE_CACHE_BACKEND", "PKGSCOPE_CACHE_DIR", "PKGSCOPE_CACHE_PREFIX", "PKGSCOPE_REDIS_URL", "REDIS_URL",
		"PKGSCOPE_ADDR", "PKGSCOPE_MONGO_URI", "MONGO_URI", "PKGSCOPE_MONGO_DATABASE",
		"PKGSCOPE_OSV_URL", "PKGSCOPE_BATCH_SIZE", "PKGSCOPE_PLATFORM",
	} {
		t.Setenv(k, "")
	}
	return dir
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Cache.Backend != BackendFile {
		t.Errorf("backend = %q, want file", cfg.Cache.Backend)
	}
	if cfg.Resolver.Platform != deps.DefaultPlatform {
		t.Errorf("platform = %+v", cfg.Resolver.Platform)
	}
	if cfg.Resolver.BatchSize != deps.DefaultBatchSize {
		t.Errorf("batch size = %d", cfg.Resolver.BatchSize)
	}
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "pkgscope", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	data := `
[registry]
timeout = "5s"

[resolver]
batch_size = 8
platform = { os = "darwin", cpu = "arm64" }

[cache]
backend = "memory"
max_entries = 10
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Registry.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Registry.Timeout)
	}
	if cfg.Resolver.BatchSize != 8 {
		t.Errorf("batch size = %d", cfg.Resolver.BatchSize)
	}
	// Keys absent from the file keep their defaults, libc included.
	if cfg.Resolver.Platform != (deps.Platform{OS: "darwin", CPU: "arm64", Libc: "glibc"}) {
		t.Errorf("platform = %+v", cfg.Resolver.Platform)
	}
	if cfg.Cache.Backend != BackendMemory || cfg.Cache.MaxEntries != 10 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	dir := isolate(t)
	_, err := Load(filepath.Join(dir, "nope.toml"))
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Load() error = %v, want INVALID_CONFIG", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("PKGSCOPE_CACHE_BACKEND", "redis")
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("PKGSCOPE_BATCH_SIZE", "4")
	t.Setenv("PKGSCOPE_PLATFORM", "linux/arm64/musl")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Cache.Backend != BackendRedis || cfg.Cache.RedisURL != "redis://localhost:6379/1" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Server.MongoURI != "mongodb://db:27017" {
		t.Errorf("mongo uri = %q", cfg.Server.MongoURI)
	}
	if cfg.Resolver.BatchSize != 4 {
		t.Errorf("batch size = %d", cfg.Resolver.BatchSize)
	}
	if cfg.Resolver.Platform != (deps.Platform{OS: "linux", CPU: "arm64", Libc: "musl"}) {
		t.Errorf("platform = %+v", cfg.Resolver.Platform)
	}
}

func TestKeyerPrefix(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Keyer().InstallSizeKey("react", "18.2.0"); got != "install-size:react@18.2.0" {
		t.Errorf("unscoped key = %q", got)
	}

	t.Setenv("PKGSCOPE_CACHE_PREFIX", "staging:")
	cfg, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	k := cfg.Keyer()
	if _, ok := k.(*cache.ScopedKeyer); !ok {
		t.Fatalf("Keyer() = %T, want *cache.ScopedKeyer", k)
	}
	if got := k.InstallSizeKey("react", "18.2.0"); got != "staging:install-size:react@18.2.0" {
		t.Errorf("scoped key = %q", got)
	}
	if got := k.HTTPKey("npm", "react"); got != "staging:http:npm:react" {
		t.Errorf("scoped http key = %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Cache.Backend = "disk" }},
		{"redis without url", func(c *Config) { c.Cache.Backend = BackendRedis }},
		{"negative batch", func(c *Config) { c.Resolver.BatchSize = -1 }},
		{"bad osv url", func(c *Config) { c.OSV.URL = "ftp://osv" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Validate() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestParsePlatform(t *testing.T) {
	if _, err := ParsePlatform("linux"); err == nil {
		t.Error("ParsePlatform(linux) should fail")
	}
	p, err := ParsePlatform("win32/x64")
	if err != nil || p != (deps.Platform{OS: "win32", CPU: "x64"}) {
		t.Errorf("ParsePlatform(win32/x64) = %+v, %v", p, err)
	}
}

func TestOpenCache(t *testing.T) {
	dir := isolate(t)
	ctx := context.Background()

	cfg := Default()
	c, err := cfg.OpenCache(ctx)
	if err != nil {
		t.Fatal(err)
	}
	fc, ok := c.(*cache.FileCache)
	if !ok {
		t.Fatalf("default backend = %T, want *cache.FileCache", c)
	}
	if fc.Dir() != filepath.Join(dir, "cache", "pkgscope") {
		t.Errorf("cache dir = %q", fc.Dir())
	}

	cfg.Cache.Backend = BackendMemory
	if c, _ := cfg.OpenCache(ctx); c == nil {
		t.Error("memory backend returned nil")
	} else if _, ok := c.(*cache.MemoryCache); !ok {
		t.Errorf("memory backend = %T", c)
	}

	cfg.Cache.Backend = BackendNone
	if c, _ := cfg.OpenCache(ctx); c == nil {
		t.Error("none backend returned nil")
	}
}
