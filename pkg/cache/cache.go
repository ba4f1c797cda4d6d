// Package cache provides the storage layer behind pkgscope's HTTP response
// and report caching.
//
// All backends implement [Cache], a byte-oriented key/value store with a
// per-entry TTL. Callers build keys with a [Keyer] so that registry
// documents, install-size reports and vulnerability trees never collide,
// and so that a change in report format can be rolled out by bumping a
// key prefix instead of flushing the store.
//
// Backends:
//   - [FileCache]: one JSON file per entry, used by the CLI
//   - [MemoryCache]: bounded in-process LRU with per-entry expiry
//   - [RedisCache]: shared cache for multi-instance API deployments
//   - [NullCache]: disables caching
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with expiring entries.
//
// Implementations must be safe for concurrent use. A miss is reported as
// (nil, false, nil); errors are reserved for backend failures.
type Cache interface {
	// Get returns the stored bytes for key and whether the entry was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 stores the entry without expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default TTLs for cached artifacts.
const (
	// TTLPackument is how long a registry document stays fresh.
	TTLPackument = time.Hour

	// TTLNegative is how long a not-found registry answer is remembered.
	TTLNegative = 5 * time.Minute

	// TTLInstallSize is how long an install-size report stays fresh.
	TTLInstallSize = 6 * time.Hour

	// TTLVulnTree is how long a vulnerability report stays fresh.
	TTLVulnTree = time.Hour

	// StaleVulnTree is how long past TTLVulnTree a vulnerability report may
	// still be served while it is refreshed in the background.
	StaleVulnTree = time.Hour
)
