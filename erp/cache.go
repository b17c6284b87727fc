package erp

import (
	"context"
	"fmt"
	"sync"
)

// serviceProductCache is the process-wide cache-aside map from
// (source, code) to a synthetic service-product id. Guarded by a single
// mutex; misses fall through to the ERP client's get-or-create call.
type serviceProductCache struct {
	mu    sync.Mutex
	byKey map[string]int64
}

func newServiceProductCache() *serviceProductCache {
	return &serviceProductCache{byKey: make(map[string]int64)}
}

func cacheKey(source, code string) string { return source + "/" + code }

// get returns the cached product id for (source, code), creating it via
// client on a miss and caching the result.
func (c *serviceProductCache) get(ctx context.Context, client Client, source, code, name string) (int64, error) {
	key := cacheKey(source, code)

	c.mu.Lock()
	if id, ok := c.byKey[key]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	id, err := client.GetOrCreateServiceProduct(ctx, source, code, name)
	if err != nil {
		return 0, fmt.Errorf("erp: service product cache miss for %s: %w", key, err)
	}

	c.mu.Lock()
	c.byKey[key] = id
	c.mu.Unlock()
	return id, nil
}
