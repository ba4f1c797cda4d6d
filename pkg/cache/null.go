package cache

import (
	"context"
	"time"
)

// NullCache is the backend behind --no-cache and backend = "none": every
// read misses and every write is dropped, so registry documents and reports
// are always fetched and computed fresh.
type NullCache struct{}

// NewNullCache returns a NullCache. The runner and the integration clients
// fall back to it when no cache is given.
func NewNullCache() Cache {
	return &NullCache{}
}

func (c *NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (c *NullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

func (c *NullCache) Delete(ctx context.Context, key string) error {
	return nil
}

func (c *NullCache) Close() error {
	return nil
}

var _ Cache = (*NullCache)(nil)
