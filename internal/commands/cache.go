package commands

import (
	"fmt"
	"sync"
	"time"

	"crypto-advisor/internal/types"
)

const chartCacheTTL = 5 * time.Minute

type CacheItem struct {
	ChartData  []byte
	Caption    string
	Expiration time.Time
}

// ChartCache keeps rendered charts per symbol and refresh time
type ChartCache struct {
	mu    sync.Mutex
	items map[string]*CacheItem
	ttl   time.Duration
	now   func() time.Time
}

func NewChartCache() *ChartCache {
	return &ChartCache{
		items: make(map[string]*CacheItem),
		ttl:   chartCacheTTL,
		now:   time.Now,
	}
}

// cacheKey changes whenever the symbol or the data behind the chart does
func cacheKey(asset types.Asset) string {
	var updated int64
	if asset.LastUpdated != nil {
		updated = asset.LastUpdated.Unix()
	}
	return fmt.Sprintf("%s|%d", asset.ChartSymbol, updated)
}

func (c *ChartCache) Get(asset types.Asset) (*CacheItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(asset)
	item, found := c.items[key]
	if !found {
		return nil, false
	}
	if !c.now().Before(item.Expiration) {
		delete(c.items, key)
		return nil, false
	}
	return item, true
}

func (c *ChartCache) Set(asset types.Asset, chartData []byte, caption string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, item := range c.items {
		if !now.Before(item.Expiration) {
			delete(c.items, key)
		}
	}
	c.items[cacheKey(asset)] = &CacheItem{
		ChartData:  chartData,
		Caption:    caption,
		Expiration: now.Add(c.ttl),
	}
}
