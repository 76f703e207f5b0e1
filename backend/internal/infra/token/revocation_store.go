package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRevocationPrefix = "auth:revoked"

// RevocationStore 记录已登出令牌的 jti，直到令牌自身过期。
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt *time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// maxRevocationTTL 用于没有 exp 的令牌，避免黑名单无限增长。
const maxRevocationTTL = 30 * 24 * time.Hour

// RedisRevocationStore 使用 Redis 保存吊销记录，多实例共享。
type RedisRevocationStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRevocationStore 构造 Redis 吊销存储。
func NewRedisRevocationStore(client *redis.Client, prefix string) *RedisRevocationStore {
	if prefix == "" {
		prefix = defaultRevocationPrefix
	}
	return &RedisRevocationStore{client: client, prefix: prefix}
}

func (s *RedisRevocationStore) key(tokenID string) string {
	return s.prefix + ":" + tokenID
}

// Revoke 写入吊销标记，TTL 与令牌剩余有效期一致。
func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt *time.Time) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("redis client not configured")
	}
	if tokenID == "" {
		return fmt.Errorf("token id required")
	}
	return s.client.Set(ctx, s.key(tokenID), "1", revocationTTL(expiresAt, time.Now())).Err()
}

// IsRevoked 检查 jti 是否已被吊销。
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if s == nil || s.client == nil || tokenID == "" {
		return false, nil
	}
	count, err := s.client.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return count == 1, nil
}

// MemoryRevocationStore 是无 Redis 环境下的进程内实现，重启后失效。
type MemoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationStore 创建进程内吊销存储。
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: make(map[string]time.Time), now: time.Now}
}

// Revoke 记录吊销，并顺带清理已过期的条目。
func (s *MemoryRevocationStore) Revoke(_ context.Context, tokenID string, expiresAt *time.Time) error {
	if tokenID == "" {
		return fmt.Errorf("token id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, until := range s.revoked {
		if !now.Before(until) {
			delete(s.revoked, id)
		}
	}
	s.revoked[tokenID] = now.Add(revocationTTL(expiresAt, now))
	return nil
}

// IsRevoked 检查 jti 是否仍在吊销期内。
func (s *MemoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !s.now().Before(until) {
		delete(s.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

func revocationTTL(expiresAt *time.Time, now time.Time) time.Duration {
	if expiresAt == nil {
		return maxRevocationTTL
	}
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		ttl = time.Second
	}
	return ttl
}
