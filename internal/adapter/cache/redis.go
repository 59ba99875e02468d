package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"currency-tracker/internal/domain/model"
	"currency-tracker/pkg/logger"
)

const defaultKeyPrefix = "currency-tracker:latest:"

// RedisCache stores each currency's slot as one JSON value. A single SET replaces
// the whole entry, which keeps updates atomic per currency.
type RedisCache struct {
	client *redis.Client
	prefix string
	log    *logger.Logger
}

// NewRedisCache connects using a redis:// URL and verifies the connection.
func NewRedisCache(ctx context.Context, redisURL, prefix string, log *logger.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("can't parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheWithClient(client, prefix, log), nil
}

func NewRedisCacheWithClient(client *redis.Client, prefix string, log *logger.Logger) *RedisCache {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisCache{client: client, prefix: prefix, log: log}
}

func (r *RedisCache) key(currency model.Currency) string {
	return r.prefix + currency.String()
}

// Get treats any Redis failure as a miss; callers fall back to the store.
func (r *RedisCache) Get(ctx context.Context, currency model.Currency) (*model.CacheEntry, bool) {
	data, err := r.client.Get(ctx, r.key(currency)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.log.Debug("Redis cache miss", "currency", currency)
		return nil, false
	}
	if err != nil {
		r.log.Error("Redis cache get error", "currency", currency, "error", err)
		return nil, false
	}

	var entry model.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		r.log.Error("Redis cache unmarshal error", "currency", currency, "error", err)
		return nil, false
	}

	r.log.Debug("Redis cache hit", "currency", currency)
	return &entry, true
}

func (r *RedisCache) Set(ctx context.Context, entry model.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := r.client.Set(ctx, r.key(entry.Currency), data, 0).Err(); err != nil {
		r.log.Error("Redis cache set error", "currency", entry.Currency, "error", err)
		return err
	}

	r.log.Debug("Redis cache set", "currency", entry.Currency)
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, currency model.Currency) error {
	if err := r.client.Del(ctx, r.key(currency)).Err(); err != nil {
		r.log.Error("Redis cache delete error", "currency", currency, "error", err)
		return err
	}
	return nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
