package cache

import (
	"fmt"
	"maps"
	"time"

	"github.com/dgraph-io/ristretto"
)

// RistrettoQuoteCache caches conversion rates per base code for a fixed TTL.
type RistrettoQuoteCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewQuoteCache(maxItems int64, ttl time.Duration) (*RistrettoQuoteCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * maxItems,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create quote cache failed: %w", err)
	}
	return &RistrettoQuoteCache{cache: c, ttl: ttl}, nil
}

func (c *RistrettoQuoteCache) Get(base string) (map[string]float64, bool) {
	if v, ok := c.cache.Get(base); ok {
		rates, ok := v.(map[string]float64)
		if !ok {
			return nil, false
		}
		return maps.Clone(rates), true
	}
	return nil, false
}

// Set stores a copy of rates. The entry is visible to Get once Set returns.
func (c *RistrettoQuoteCache) Set(base string, rates map[string]float64) {
	if c.ttl > 0 {
		c.cache.SetWithTTL(base, maps.Clone(rates), 1, c.ttl)
	} else {
		c.cache.Set(base, maps.Clone(rates), 1)
	}
	c.cache.Wait()
}

func (c *RistrettoQuoteCache) CleanBatch(bases []string) {
	for _, base := range bases {
		c.cache.Del(base)
	}
}

func (c *RistrettoQuoteCache) Close() { c.cache.Close() }
