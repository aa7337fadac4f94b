package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DistributedLock 定义分布式锁接口
type DistributedLock interface {
	// Acquire 尝试获取锁
	// key: 锁的唯一标识
	// ttl: 锁的过期时间
	// 返回: (是否成功, error)
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release 释放锁
	Release(ctx context.Context, key string) error
}

// releaseScript 只删除属于自己的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock 基于 Redis SET NX 的实现，value 为本实例持有的随机 token
type RedisLock struct {
	client *redis.Client

	mu     sync.Mutex
	tokens map[string]string
}

func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{client: client, tokens: make(map[string]string)}
}

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	// SET key token NX PX ttl
	token := uuid.NewString()
	success, err := l.client.SetNX(ctx, "lock:"+key, token, ttl).Result()
	if err != nil {
		return false, err
	}
	if success {
		l.mu.Lock()
		l.tokens[key] = token
		l.mu.Unlock()
	}
	return success, nil
}

func (l *RedisLock) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	token, ok := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()
	if !ok {
		return nil
	}
	return releaseScript.Run(ctx, l.client, []string{"lock:" + key}, token).Err()
}

// LocalLock 进程内实现，用于单实例部署和测试
type LocalLock struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewLocalLock() *LocalLock {
	return &LocalLock{until: make(map[string]time.Time), now: time.Now}
}

func (l *LocalLock) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if exp, ok := l.until[key]; ok && now.Before(exp) {
		return false, nil
	}
	l.until[key] = now.Add(ttl)
	return true, nil
}

func (l *LocalLock) Release(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.until, key)
	l.mu.Unlock()
	return nil
}
