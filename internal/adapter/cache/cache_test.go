package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"currency-tracker/internal/domain/model"
	"currency-tracker/internal/domain/ports"
	"currency-tracker/pkg/logger"
)

func entry(t *testing.T, c model.Currency, price string, day int) model.CacheEntry {
	t.Helper()
	o, err := model.NewRateObservation(c, decimal.RequireFromString(price), time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return model.CacheEntry{Currency: c, Observation: o, FetchedAt: time.Date(2024, 3, day, 17, 0, 0, 0, time.UTC)}
}

func caches(t *testing.T) map[string]ports.LatestCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return map[string]ports.LatestCache{
		"memory": NewMemoryCache(logger.Discard()),
		"redis":  NewRedisCacheWithClient(client, "test:", logger.Discard()),
	}
}

func TestLatestCache_GetSetDelete(t *testing.T) {
	for name, c := range caches(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			defer c.Close()

			_, found := c.Get(ctx, model.EUR)
			assert.False(t, found)

			first := entry(t, model.EUR, "4.30", 4)
			require.NoError(t, c.Set(ctx, first))

			got, found := c.Get(ctx, model.EUR)
			require.True(t, found)
			assert.True(t, got.Observation.Equal(first.Observation))
			assert.True(t, got.FetchedAt.Equal(first.FetchedAt))

			second := entry(t, model.EUR, "4.3123456789", 5)
			require.NoError(t, c.Set(ctx, second))

			got, found = c.Get(ctx, model.EUR)
			require.True(t, found)
			assert.True(t, got.Observation.Equal(second.Observation))
			assert.Equal(t, "4.3123456789", got.Observation.Price.String())

			_, found = c.Get(ctx, model.USD)
			assert.False(t, found)

			require.NoError(t, c.Delete(ctx, model.EUR))
			_, found = c.Get(ctx, model.EUR)
			assert.False(t, found)
		})
	}
}

func TestMemoryCache_ConcurrentReplaceNeverTears(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(logger.Discard())
	a, b := entry(t, model.GBP, "5.01", 1), entry(t, model.GBP, "5.02", 2)
	require.NoError(t, c.Set(ctx, a))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = c.Set(ctx, a)
			} else {
				_ = c.Set(ctx, b)
			}
		}(i)
		go func() {
			defer wg.Done()
			got, found := c.Get(ctx, model.GBP)
			if assert.True(t, found) {
				assert.True(t, got.Observation.Equal(a.Observation) || got.Observation.Equal(b.Observation))
			}
		}()
	}
	wg.Wait()
}
