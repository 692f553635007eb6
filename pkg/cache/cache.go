// Package cache provides the key/value store behind the download index.
//
// Three backends implement [Cache]:
//   - [FileCache]: JSON entries under a local directory (CLI default)
//   - [RedisCache]: a shared Redis instance for multi-process servers
//   - [NullCache]: stores nothing, every lookup misses
//
// Entries carry an optional TTL. Use [Prefixed] to give a component its own
// key space on a shared backend and [GetJSON] / [SetJSON] for typed values.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with expiring entries.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value for key. ok is false for missing or expired
	// entries; err is reserved for backend failures.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)

	// Set stores data under key. A ttl of zero keeps the entry until it
	// is deleted.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
