package database

import (
	"context"
	"fmt"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/config"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions 锁、缓存与 Streams 共用一个连接池
func RedisOptions(c config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
		PoolSize: c.PoolSize,
	}
	if c.DialTimeout > 0 {
		opts.DialTimeout = c.DialTimeout
	}
	return opts
}

// ConnectRedis 连接并 Ping，Ping 受 DialTimeout 约束
func ConnectRedis(ctx context.Context, c config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(RedisOptions(c))

	if c.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.DialTimeout)
		defer cancel()
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("无法连接到 Redis %s: %w", c.Addr, err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", c.Addr), zap.Int("db", c.DB))
	return rdb, nil
}
