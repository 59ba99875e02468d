package cache

import (
	"context"
	"sync"

	"currency-tracker/internal/domain/model"
	"currency-tracker/pkg/logger"
)

// MemoryCache keeps a single latest-rate slot per currency. Entries are stored by
// value and replaced whole, so readers never observe a partial update.
type MemoryCache struct {
	cacheMap map[model.Currency]model.CacheEntry
	mutex    sync.RWMutex
	log      *logger.Logger
}

func NewMemoryCache(log *logger.Logger) *MemoryCache {
	return &MemoryCache{
		cacheMap: make(map[model.Currency]model.CacheEntry),
		log:      log,
	}
}

func (c *MemoryCache) Get(ctx context.Context, currency model.Currency) (*model.CacheEntry, bool) {
	c.mutex.RLock()
	entry, found := c.cacheMap[currency]
	c.mutex.RUnlock()

	if !found {
		c.log.Debug("Cache miss", "currency", currency)
		return nil, false
	}

	c.log.Debug("Cache hit", "currency", currency)
	return &entry, true
}

func (c *MemoryCache) Set(ctx context.Context, entry model.CacheEntry) error {
	c.mutex.Lock()
	c.cacheMap[entry.Currency] = entry
	c.mutex.Unlock()

	c.log.Debug("Cache set", "currency", entry.Currency, "observation", entry.Observation.String())
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, currency model.Currency) error {
	c.mutex.Lock()
	delete(c.cacheMap, currency)
	c.mutex.Unlock()

	c.log.Debug("Cache delete", "currency", currency)
	return nil
}

func (c *MemoryCache) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cacheMap = make(map[model.Currency]model.CacheEntry)
	return nil
}
