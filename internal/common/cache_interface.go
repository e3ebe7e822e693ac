package common

import "time"

// CacheInterface abstracts the memoization layer used on hot read paths,
// primarily product-reference lookups during bulk imports. Implementations
// are best-effort: a cache failure degrades to a direct store read, never
// to a request failure.
type CacheInterface interface {
	// Set stores a value under key for the given duration.
	Set(key string, value interface{}, duration time.Duration)

	// Get returns the cached value and true, or nil and false on a miss.
	Get(key string) (interface{}, bool)

	// Delete evicts a key.
	Delete(key string)

	// GetOrSet returns the cached value, or invokes loader and caches its
	// result for the given duration.
	GetOrSet(key string, duration time.Duration, loader func() (any, error)) (interface{}, error)

	// Close releases any underlying connections.
	Close() error
}
