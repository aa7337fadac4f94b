package cache

import (
	"context"
	"time"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/logger"

	"go.uber.org/zap"
)

// MultiLevelCache 实现多级缓存 (L1: Memory, L2: Redis)
// remote 可以为 nil，此时退化为单级内存缓存
type MultiLevelCache struct {
	local  Cache
	remote Cache
}

func NewMultiLevelCache(local, remote Cache) *MultiLevelCache {
	return &MultiLevelCache{
		local:  local,
		remote: remote,
	}
}

func (m *MultiLevelCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	// 同时写入 L1 和 L2，L1 的 TTL 取 L2 的一半
	if err := m.local.Set(ctx, key, value, ttl/2); err != nil {
		logger.Warn("L1 缓存写入失败", zap.String("key", key), zap.Error(err))
	}
	if m.remote == nil {
		return nil
	}
	return m.remote.Set(ctx, key, value, ttl)
}

func (m *MultiLevelCache) Get(ctx context.Context, key string, target interface{}) error {
	// 1. 查 L1
	if err := m.local.Get(ctx, key, target); err == nil {
		return nil // L1 Hit
	}
	if m.remote == nil {
		return ErrMiss
	}

	// 2. 查 L2
	if err := m.remote.Get(ctx, key, target); err == nil {
		// L2 Hit -> 回写 L1，TTL 不宜过长，防止 L1 脏数据太久
		_ = m.local.Set(ctx, key, target, time.Minute)
		return nil
	}

	return ErrMiss
}

func (m *MultiLevelCache) Delete(ctx context.Context, key string) error {
	_ = m.local.Delete(ctx, key)
	if m.remote == nil {
		return nil
	}
	return m.remote.Delete(ctx, key)
}
