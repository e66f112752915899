package placecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owlpinetech/skyview"
)

type countingGeocoder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingGeocoder) Name() string { return "counting" }

func (c *countingGeocoder) Reverse(_ context.Context, dir skyview.Direction) (skyview.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return skyview.Address{}, c.err
	}
	return skyview.Address{Found: true, DisplayName: fmt.Sprintf("place %v", dir)}, nil
}

func TestCacheHit(t *testing.T) {
	next := &countingGeocoder{}
	cache, err := New(next, 12, 16)
	require.NoError(t, err)
	assert.Equal(t, "cached-counting", cache.Name())

	first, err := cache.Reverse(context.Background(), skyview.NewDirection(10.5, 45.25))
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := cache.Reverse(context.Background(), skyview.NewDirection(370.5, 45.25))
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.DisplayName, second.DisplayName)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, 1, cache.Len())

	_, err = cache.Reverse(context.Background(), skyview.NewDirection(-70, -30))
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
	assert.Equal(t, 2, cache.Len())
}

func TestCacheSkipsErrors(t *testing.T) {
	next := &countingGeocoder{err: errors.New("unavailable")}
	cache, err := New(next, 12, 16)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = cache.Reverse(context.Background(), skyview.NewDirection(1, 1))
		require.Error(t, err)
	}
	assert.Equal(t, 3, next.calls)
	assert.Zero(t, cache.Len())

	place := skyview.LookupPlace(context.Background(), cache, skyview.NewDirection(1, 1))
	assert.Equal(t, skyview.PlaceError, place.Outcome)
}

func TestCacheEviction(t *testing.T) {
	next := &countingGeocoder{}
	cache, err := New(next, 4, 5)
	require.NoError(t, err)

	for lon := -170.0; lon < 180; lon += 20 {
		_, err = cache.Reverse(context.Background(), skyview.NewDirection(lon, 0))
		require.NoError(t, err)
		assert.LessOrEqual(t, cache.Len(), 5)
	}
	assert.Equal(t, 5, cache.Len())

	cache.Clear()
	assert.Zero(t, cache.Len())
}

func TestCacheConcurrentUse(t *testing.T) {
	next := &countingGeocoder{}
	cache, err := New(next, 10, 64)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := cache.Reverse(context.Background(), skyview.NewDirection(float64(i%8)*10, 5))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, cache.Len())
}

func TestCacheWesternHemisphereCells(t *testing.T) {
	next := &countingGeocoder{}
	cache, err := New(next, 12, 16)
	require.NoError(t, err)

	cells := map[int]skyview.Direction{}
	for _, dir := range []skyview.Direction{
		skyview.NewDirection(-100, 40),
		skyview.NewDirection(-60, -20),
		skyview.NewDirection(-0.25, 51.5),
		skyview.NewDirection(-179.9, 65),
		skyview.NewDirection(-30, 90),
		skyview.NewDirection(-150, -90),
	} {
		cell, err := cache.Cell(dir)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, cell, 0, "cell of %v", dir)
		assert.Less(t, cell, 12<<24, "cell of %v", dir)
		if other, ok := cells[cell]; ok {
			t.Errorf("%v and %v share cell %d", dir, other, cell)
		}
		cells[cell] = dir

		addr, err := cache.Reverse(context.Background(), dir)
		require.NoError(t, err)
		assert.False(t, addr.CacheHit, "first lookup of %v", dir)
	}
	assert.Equal(t, len(cells), next.calls)
	assert.Equal(t, len(cells), cache.Len())
}

func TestNewRejectsSettings(t *testing.T) {
	next := &countingGeocoder{}
	for _, tc := range []struct {
		name     string
		order    int
		maxItems int
	}{
		{"zero size", 4, 0},
		{"negative size", 4, -3},
		{"negative order", -1, 8},
		{"order too fine", 30, 8},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cache, err := New(next, tc.order, tc.maxItems)
			assert.Error(t, err)
			assert.Nil(t, cache)
		})
	}
}

func TestCacheSingleItem(t *testing.T) {
	next := &countingGeocoder{}
	cache, err := New(next, 4, 1)
	require.NoError(t, err)

	for _, lon := range []float64{-120, 0, 120, 0} {
		_, err = cache.Reverse(context.Background(), skyview.NewDirection(lon, 10))
		require.NoError(t, err)
		assert.Equal(t, 1, cache.Len())
	}
	assert.Equal(t, 4, next.calls)

	hit, err := cache.Reverse(context.Background(), skyview.NewDirection(0, 10))
	require.NoError(t, err)
	assert.True(t, hit.CacheHit)
}
