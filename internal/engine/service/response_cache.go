package service

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// ResponseCache memoizes raw model responses keyed by model and prompt.
// Concurrent callers asking the same question share one inference via
// singleflight; errors are never cached.
type ResponseCache struct {
	store *gocache.Cache
	group singleflight.Group
}

func NewResponseCache(defaultTTL time.Duration) *ResponseCache {
	return &ResponseCache{
		store: gocache.New(defaultTTL, 2*defaultTTL),
	}
}

// GetOrCompute returns the cached response for (model, prompt) or runs
// compute to produce it. The second return reports a cache hit.
func (c *ResponseCache) GetOrCompute(model, prompt string, ttl time.Duration, compute func() (string, error)) (string, bool, error) {
	key := cacheKey(model, prompt)

	if v, ok := c.store.Get(key); ok {
		return v.(string), true, nil
	}

	var hit bool
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A concurrent caller may have filled the entry while we waited.
		if v, ok := c.store.Get(key); ok {
			hit = true
			return v, nil
		}
		resp, err := compute()
		if err != nil {
			return "", err
		}
		c.store.Set(key, resp, ttl)
		return resp, nil
	})
	if err != nil {
		return "", false, err
	}
	return v.(string), hit, nil
}

// Flush drops every cached response.
func (c *ResponseCache) Flush() {
	c.store.Flush()
}

// ItemCount reports the number of live cache entries.
func (c *ResponseCache) ItemCount() int {
	return c.store.ItemCount()
}

// cacheKey length-prefixes the model so names containing ":" (llama3.1:8b)
// cannot alias another model/prompt pair.
func cacheKey(model, prompt string) string {
	return fmt.Sprintf("%d:%s:%s", len(model), model, prompt)
}
