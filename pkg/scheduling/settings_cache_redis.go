package scheduling

import (
	"context"
	"time"

	"github.com/go-redis/cache/v8"
	"github.com/go-redis/redis/v8"
)

// SettingsCacheRedis caches workspace settings in redis, shared between instances
type SettingsCacheRedis struct {
	Cache *cache.Cache
}

// NewSettingsCacheRedis initializes a new SettingsCacheRedis
func NewSettingsCacheRedis(redisClient *redis.Client) (*SettingsCacheRedis, error) {
	redisCache := cache.New(&cache.Options{
		Redis: redisClient,
	})

	return &SettingsCacheRedis{
		Cache: redisCache,
	}, nil
}

// Add adds a SettingsCacheEntry
func (c *SettingsCacheRedis) Add(ctx context.Context, key string, entry *SettingsCacheEntry) error {
	err := c.Cache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   key,
		Value: entry,
		TTL:   time.Minute * 10,
	})
	if err != nil {
		return err
	}

	return nil
}

// Invalidate invalidates an entry
func (c *SettingsCacheRedis) Invalidate(ctx context.Context, key string) error {
	err := c.Cache.Delete(ctx, key)
	if err != nil {
		return err
	}

	return nil
}

// Get retrieves a SettingsCacheEntry
func (c *SettingsCacheRedis) Get(ctx context.Context, key string) (*SettingsCacheEntry, error) {
	result := SettingsCacheEntry{}
	err := c.Cache.Get(ctx, key, &result)
	if err != nil {
		return nil, err
	}

	return &result, nil
}
