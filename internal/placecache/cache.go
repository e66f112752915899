// Package placecache memoizes reverse geocoding results per HEALPix cell, so that
// observers standing close together share one lookup.
package placecache

import (
	"context"
	"fmt"
	"sync"

	"github.com/owlpinetech/healpix"

	"github.com/owlpinetech/skyview"
)

// Wraps a geocoder with a bounded in-memory cache. The cache key is the nested pixel
// containing the direction at a fixed HEALPix order; at order 12 a cell is roughly
// 1.6km across. Successful answers are cached, including not-found ones. Errors are not.
// Individual operations are safe for concurrent use.
type Cache struct {
	next     skyview.Geocoder
	cells    skyview.HealpixIndex
	maxItems int
	cache    map[int]skyview.Address
	lock     sync.RWMutex
}

// New fails when order is not a valid HEALPix order or maxItems is not positive.
func New(next skyview.Geocoder, order int, maxItems int) (*Cache, error) {
	if !healpix.IsValidOrder(order) {
		return nil, fmt.Errorf("cache order must be in [0, %d], got %d", healpix.MaxOrder(), order)
	}
	if maxItems <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxItems)
	}
	cells, err := skyview.NewHealpixIndex(skyview.Resolution(1)<<order, healpix.NestScheme)
	if err != nil {
		return nil, err
	}
	return &Cache{
		next:     next,
		cells:    cells,
		maxItems: maxItems,
		cache:    make(map[int]skyview.Address),
	}, nil
}

func (c *Cache) Name() string {
	return "cached-" + c.next.Name()
}

// The number of cells currently cached.
func (c *Cache) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.cache)
}

// Cell returns the cache key for a direction.
func (c *Cache) Cell(dir skyview.Direction) (int, error) {
	return c.cells.ZenithPixel(dir)
}

func (c *Cache) Reverse(ctx context.Context, dir skyview.Direction) (skyview.Address, error) {
	cell, err := c.Cell(dir)
	if err != nil {
		return c.next.Reverse(ctx, dir)
	}

	c.lock.RLock()
	cached, ok := c.cache[cell]
	c.lock.RUnlock()
	if ok {
		cached.CacheHit = true
		return cached, nil
	}

	addr, err := c.next.Reverse(ctx, dir)
	if err != nil {
		return addr, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	if _, ok := c.cache[cell]; !ok && len(c.cache) >= c.maxItems {
		// evict an arbitrary cell
		for k := range c.cache {
			delete(c.cache, k)
			break
		}
	}
	c.cache[cell] = addr
	return addr, nil
}

// Empties the cache.
func (c *Cache) Clear() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.cache = make(map[int]skyview.Address)
}
