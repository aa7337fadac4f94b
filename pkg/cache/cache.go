package cache

import (
	"context"
	"errors"
	"time"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/logger"

	"go.uber.org/zap"
)

// ErrMiss 缓存未命中
var ErrMiss = errors.New("cache miss")

// Cache 定义通用缓存接口
type Cache interface {
	// Set 设置缓存
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Get 获取缓存，并将结果 Unmarshal 到 target 中
	Get(ctx context.Context, key string, target interface{}) error
	// Delete 删除缓存
	Delete(ctx context.Context, key string) error
}

// GetOrLoad 读缓存，未命中时调用 load 并回写
// 缓存本身的读写错误只记日志，不影响结果; load 的错误原样返回且不缓存
func GetOrLoad[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	var cached T
	err := c.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrMiss) {
		logger.Warn("缓存读取失败", zap.String("key", key), zap.Error(err))
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if err := c.Set(ctx, key, v, ttl); err != nil {
		logger.Warn("缓存写入失败", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}
