package cache

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type MemoryCache struct {
	c *gocache.Cache
}

func NewMemoryCache(defaultExpiration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		c: gocache.New(defaultExpiration, cleanupInterval),
	}
}

// Set 存 JSON 字节而不是对象本身，避免调用方修改缓存中的引用
func (m *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.c.Set(key, b, ttl)
	return nil
}

func (m *MemoryCache) Get(ctx context.Context, key string, target interface{}) error {
	val, found := m.c.Get(key)
	if !found {
		return ErrMiss
	}
	b, ok := val.([]byte)
	if !ok {
		m.c.Delete(key)
		return ErrMiss
	}
	return json.Unmarshal(b, target)
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.c.Delete(key)
	return nil
}
