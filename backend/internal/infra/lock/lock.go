package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker 抽象一次性租约锁，提醒处理器每轮扫描前获取。
type Locker interface {
	// TryAcquire 尝试获取锁，返回释放函数；未拿到锁时 ok 为 false。
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// RedisLocker 基于 SET NX 的分布式租约，保证多实例同一时刻只有一个在扫描。
type RedisLocker struct {
	client *redis.Client
	prefix string
}

// NewRedisLocker 构造 Redis 租约锁。
func NewRedisLocker(client *redis.Client, prefix string) *RedisLocker {
	if prefix == "" {
		prefix = "lock"
	}
	return &RedisLocker{client: client, prefix: prefix}
}

// TryAcquire 使用随机 token 作为锁值，释放时只删除自己持有的锁。
func (l *RedisLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	if l == nil || l.client == nil {
		return nil, false, errors.New("redis locker not configured")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}

	fullKey := l.prefix + ":" + key
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if err := l.client.Eval(ctx, releaseScript, []string{fullKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release lock %s: %w", fullKey, err)
		}
		return nil
	}
	return release, true, nil
}

// LocalLocker 单实例部署使用，总是能拿到锁。
type LocalLocker struct{}

// TryAcquire 直接返回成功。
func (LocalLocker) TryAcquire(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}
