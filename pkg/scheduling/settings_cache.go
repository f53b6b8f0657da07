package scheduling

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// SettingsCacheEntry holds the per-workspace configuration a run needs
type SettingsCacheEntry struct {
	Settings *WorkspaceSettings
	Hours    *HourSettings
}

// SettingsCacheInterface is the interface for a workspace settings cache
type SettingsCacheInterface interface {
	Add(ctx context.Context, key string, entry *SettingsCacheEntry) error
	Invalidate(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (*SettingsCacheEntry, error)
}

// SettingsCacheMemory caches workspace settings in process memory
type SettingsCacheMemory struct {
	Cache *lru.Cache
}

// NewSettingsCacheMemory initializes a new SettingsCacheMemory
func NewSettingsCacheMemory() (*SettingsCacheMemory, error) {
	cache, err := lru.New(100)
	if err != nil {
		return nil, err
	}

	return &SettingsCacheMemory{
		Cache: cache,
	}, nil
}

// Add adds a SettingsCacheEntry to the cache
func (c *SettingsCacheMemory) Add(_ context.Context, key string, entry *SettingsCacheEntry) error {
	_ = c.Cache.Add(key, entry)
	return nil
}

// Invalidate removes a SettingsCacheEntry from the cache
func (c *SettingsCacheMemory) Invalidate(_ context.Context, key string) error {
	c.Cache.Remove(key)
	return nil
}

// Get retrieves a SettingsCacheEntry from the cache
func (c *SettingsCacheMemory) Get(_ context.Context, key string) (*SettingsCacheEntry, error) {
	result, ok := c.Cache.Get(key)
	if !ok {
		return nil, fmt.Errorf("could not find key %s in settings cache", key)
	}

	entry, ok := result.(*SettingsCacheEntry)
	if !ok {
		return nil, fmt.Errorf("cache entry was not a settings cache entry")
	}

	return entry, nil
}
