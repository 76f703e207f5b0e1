/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-02 13:41:05
 * @FilePath: \shift-handover-log\backend\internal\infra\client\redis_client.go
 * @LastEditTime: 2026-10-16 09:40:12
 */
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"shift-handover-log/backend/internal/config"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPort = "6379"

// ErrRedisNotConfigured 表示未设置 REDIS_ENDPOINT，调用方应退回进程内实现。
var ErrRedisNotConfigured = errors.New("redis not configured")

// NewRedisClient 按 RedisConfig 建立连接并 PING 一次；未启用时返回 ErrRedisNotConfigured。
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, ErrRedisNotConfigured
	}
	addr, err := redisAddr(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid redis endpoint %q: %w", cfg.Endpoint, err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

// redisAddr 补全缺省端口并校验 host:port。
func redisAddr(endpoint string) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	if !strings.Contains(endpoint, ":") {
		endpoint = net.JoinHostPort(endpoint, defaultRedisPort)
	}
	host, port, err := net.SplitHostPort(endpoint)
	if err != nil {
		return "", err
	}
	if host == "" {
		return "", errors.New("host is empty")
	}
	if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
		return "", fmt.Errorf("bad port %q", port)
	}
	return net.JoinHostPort(host, port), nil
}
