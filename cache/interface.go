package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no live entry exists for a key.
// An expired entry is indistinguishable from a missing one.
var ErrNotFound = errors.New("cache: entry not found")

// Store is the storage backend for cached query results.
// Keys are canonical query-key strings; values are the serialized result.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound if the key
	// is absent or its TTL has elapsed.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. After ttl elapses the entry is treated
	// as gone. A ttl <= 0 stores the entry without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the entry for key. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every entry whose key starts with prefix.
	// Used for invalidation fan-out across all pages/variants of a query.
	DeletePrefix(ctx context.Context, prefix string) error

	// Close releases any resources held by the store.
	Close() error
}
