package storage

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

const allFlagsKey = "feature-flags:all"

// FlagCache keeps the feature flag list in memory for a short TTL so flag
// evaluation does not hit the database on every request.
type FlagCache struct {
	cache *cache.Cache
}

func NewFlagCache(ttl, cleanupInterval time.Duration) *FlagCache {
	return &FlagCache{cache: cache.New(ttl, cleanupInterval)}
}

func (c *FlagCache) All() ([]types.FeatureFlag, bool) {
	v, found := c.cache.Get(allFlagsKey)
	if !found {
		return nil, false
	}
	return v.([]types.FeatureFlag), true
}

func (c *FlagCache) SetAll(flags []types.FeatureFlag) {
	c.cache.Set(allFlagsKey, flags, cache.DefaultExpiration)
}

func (c *FlagCache) Get(name string) (*types.FeatureFlag, bool) {
	v, found := c.cache.Get(flagKey(name))
	if !found {
		return nil, false
	}
	flag := v.(types.FeatureFlag)
	return &flag, true
}

func (c *FlagCache) Set(flag types.FeatureFlag) {
	c.cache.Set(flagKey(flag.Name), flag, cache.DefaultExpiration)
}

// Invalidate drops the list and the named flag.
func (c *FlagCache) Invalidate(name string) {
	c.cache.Delete(allFlagsKey)
	if name != "" {
		c.cache.Delete(flagKey(name))
	}
}

func flagKey(name string) string {
	return "feature-flags:" + name
}
