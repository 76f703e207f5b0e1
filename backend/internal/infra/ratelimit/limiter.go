/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-03 14:07:52
 * @FilePath: \shift-handover-log\backend\internal\infra\ratelimit\limiter.go
 * @LastEditTime: 2026-10-05 22:40:16
 */
package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AllowResult 描述限流请求的结果。
type AllowResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
}

// Limiter 定义限流器的通用能力，登录防爆破用它统计 ip:username 的失败次数。
type Limiter interface {
	// Allow 计数一次并刷新窗口。
	Allow(ctx context.Context, key string, limit int, window time.Duration) (AllowResult, error)
	// Peek 只读取当前计数与剩余有效期。
	Peek(ctx context.Context, key string) (int, time.Duration, error)
	// Reset 清除计数，例如登录成功后。
	Reset(ctx context.Context, key string) error
}

var (
	_ Limiter = (*RedisLimiter)(nil)
	_ Limiter = (*MemoryLimiter)(nil)
)

// RedisLimiter 使用 Redis 实现简单的计数限流，多实例部署时共享计数。
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter 根据 Redis 客户端构造限流器，可自定义 key 前缀。
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{client: client, prefix: prefix}
}

// Allow 以 Redis 计数器实现固定窗口限流，返回是否放行、剩余次数与等待时间。
func (r *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (AllowResult, error) {
	if limit <= 0 {
		return AllowResult{Allowed: true, Remaining: -1}, nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if r == nil || r.client == nil {
		return AllowResult{Allowed: true, Remaining: -1}, nil
	}

	namespaced := r.prefix + ":" + key
	pipe := r.client.TxPipeline()
	counter := pipe.Incr(ctx, namespaced)
	pipe.Expire(ctx, namespaced, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return AllowResult{}, err
	}

	count := int(counter.Val())
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	if count > limit {
		ttl, err := r.client.TTL(ctx, namespaced).Result()
		if err != nil {
			return AllowResult{}, err
		}
		if ttl < 0 {
			ttl = window
		}
		return AllowResult{Allowed: false, RetryAfter: ttl, Remaining: 0}, nil
	}

	return AllowResult{Allowed: true, Remaining: remaining}, nil
}

// Peek 返回指定 key 当前的计数与剩余有效期。
func (r *RedisLimiter) Peek(ctx context.Context, key string) (int, time.Duration, error) {
	if r == nil || r.client == nil {
		return 0, 0, nil
	}
	namespaced := r.prefix + ":" + key
	value, err := r.client.Get(ctx, namespaced).Result()
	if errors.Is(err, redis.Nil) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	count, err := strconv.Atoi(value)
	if err != nil {
		return 0, 0, err
	}
	ttl, err := r.client.TTL(ctx, namespaced).Result()
	if err != nil {
		return 0, 0, err
	}
	return count, ttl, nil
}

// Reset 删除计数 key。
func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Del(ctx, r.prefix+":"+key).Err()
}

// MemoryLimiter 是未配置 Redis 时的替代方案，计数只在当前进程内有效。
type MemoryLimiter struct {
	mu    sync.Mutex
	store map[string]entry
	now   func() time.Time
}

type entry struct {
	count   int
	expires time.Time
}

// NewMemoryLimiter 构建内存版限流器，常用于本地开发与单元测试。
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{store: make(map[string]entry), now: time.Now}
}

// WithClock 替换时间源，测试中用于推进时间。
func (m *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	m.now = now
	return m
}

// Allow 通过内存 map 统计请求次数，模拟 Redis 的固定窗口限流行为。
func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (AllowResult, error) {
	if limit <= 0 {
		return AllowResult{Allowed: true, Remaining: -1}, nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if m == nil {
		return AllowResult{Allowed: true, Remaining: -1}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	ent, ok := m.store[key]
	if !ok || !now.Before(ent.expires) {
		m.store[key] = entry{count: 1, expires: now.Add(window)}
		return AllowResult{Allowed: true, Remaining: limit - 1}, nil
	}

	// 与 Redis 版本一致：每次计数都刷新窗口。
	ent.count++
	ent.expires = now.Add(window)
	m.store[key] = ent

	remaining := limit - ent.count
	if remaining < 0 {
		remaining = 0
	}

	if ent.count > limit {
		return AllowResult{Allowed: false, RetryAfter: ent.expires.Sub(now), Remaining: 0}, nil
	}

	return AllowResult{Allowed: true, Remaining: remaining}, nil
}

// Peek 获取内存限流器中指定 key 的计数与剩余有效期。
func (m *MemoryLimiter) Peek(_ context.Context, key string) (int, time.Duration, error) {
	if m == nil {
		return 0, 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ent, ok := m.store[key]
	if !ok {
		return 0, 0, nil
	}
	remaining := ent.expires.Sub(m.now())
	if remaining <= 0 {
		delete(m.store, key)
		return 0, 0, nil
	}
	return ent.count, remaining, nil
}

// Reset 删除内存中的计数。
func (m *MemoryLimiter) Reset(_ context.Context, key string) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	delete(m.store, key)
	m.mu.Unlock()
	return nil
}
