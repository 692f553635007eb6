package cache

import (
	"context"
	"time"
)

// prefixed scopes every key of an inner cache with a fixed prefix.
type prefixed struct {
	inner  Cache
	prefix string
}

// Prefixed returns a view of c in which every key is prefixed. Closing the
// view closes c.
//
//	index := cache.Prefixed(shared, "download:")
//	index.Set(ctx, url, data, ttl) // stored as "download:<url>"
func Prefixed(c Cache, prefix string) Cache {
	if c == nil {
		c = NullCache{}
	}
	return &prefixed{inner: c, prefix: prefix}
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return p.inner.Set(ctx, p.prefix+key, data, ttl)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.inner.Delete(ctx, p.prefix+key)
}

func (p *prefixed) Close() error { return p.inner.Close() }
