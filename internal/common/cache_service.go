package common

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// CacheService is the in-process cache backing product-lookup memoization.
// Catalog feeds repeat the same part thousands of times, so even a
// single-node cache removes most resolver round-trips. Deployments that
// run several instances use RedisCacheService instead.
type CacheService struct {
	cache *cache.Cache
}

var _ CacheInterface = (*CacheService)(nil)

func NewCacheService(defaultExpirationSeconds, cleanUpIntervalSeconds int) *CacheService {
	defaultExpiration := time.Duration(defaultExpirationSeconds) * time.Second
	cleanUpInterval := time.Duration(cleanUpIntervalSeconds) * time.Second
	return &CacheService{cache: cache.New(defaultExpiration, cleanUpInterval)}
}

func (cs *CacheService) Set(key string, value interface{}, duration time.Duration) {
	cs.cache.Set(key, value, duration)
}

func (cs *CacheService) Get(key string) (interface{}, bool) {
	return cs.cache.Get(key)
}

func (cs *CacheService) Delete(key string) {
	cs.cache.Delete(key)
}

// GetOrSet returns the cached value for key, resolving and caching it on a
// miss. In-process values keep their concrete type, so callers get back
// exactly what the loader returned.
func (cs *CacheService) GetOrSet(
	key string,
	duration time.Duration,
	loader func() (any, error)) (interface{}, error) {
	if val, found := cs.Get(key); found {
		return val, nil
	}

	val, err := loader()
	if err != nil {
		return nil, err
	}

	cs.Set(key, val, duration)
	return val, nil
}

// Close is a no-op for the in-process cache.
func (cs *CacheService) Close() error {
	return nil
}
