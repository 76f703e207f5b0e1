/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-02 10:21:54
 * @FilePath: \shift-handover-log\backend\internal\config\server.go
 * @LastEditTime: 2026-10-06 18:47:12
 */
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultServerPort      = "3000"
	defaultSweepInterval   = 2 * time.Minute
	defaultJournalDir      = "logs/daily"
	defaultStaticDir       = "client/build"
	defaultSeedPassword    = "pass123"
	defaultDevelopmentJWT  = "shift-handover-dev-secret"
	defaultReadHeaderLimit = 10 * time.Second
	defaultRedisKeyPrefix  = "shiftlog"
	defaultRedisTimeout    = 5 * time.Second
)

// RedisConfig 是可选 Redis 的连接参数，Endpoint 为空表示单实例部署、不连接 Redis。
// 登录限流、令牌吊销与提醒扫描租约共用同一个键前缀。
type RedisConfig struct {
	Endpoint    string
	Password    string
	DB          int
	DialTimeout time.Duration
	KeyPrefix   string
}

// Enabled 判断是否配置了 Redis。
func (c RedisConfig) Enabled() bool {
	return c.Endpoint != ""
}

// LoginLimiterPrefix 登录失败计数的键前缀。
func (c RedisConfig) LoginLimiterPrefix() string { return c.KeyPrefix + ":login" }

// RevocationPrefix 已吊销 jti 的键前缀。
func (c RedisConfig) RevocationPrefix() string { return c.KeyPrefix + ":revoked" }

// ServerConfig 汇总 HTTP 服务与后台任务依赖的环境变量。
type ServerConfig struct {
	Port                 string
	JWTSecret            string
	SweepInterval        time.Duration
	RequireAuthForWrites bool
	CORSAllowedOrigins   []string
	JournalDir           string
	StaticDir            string
	SeedPassword         string
	ReadHeaderTimeout    time.Duration
	Redis                RedisConfig
}

// LoadServerConfig 从环境变量读取服务配置，缺失项使用默认值。
func LoadServerConfig() ServerConfig {
	LoadEnvFiles()

	cfg := ServerConfig{
		Port:                 envOrDefault("SERVER_PORT", defaultServerPort),
		JWTSecret:            envOrDefault("JWT_SECRET", defaultDevelopmentJWT),
		SweepInterval:        DurationFromEnv("REMINDER_SWEEP_INTERVAL", defaultSweepInterval),
		RequireAuthForWrites: BoolFromEnv("REQUIRE_AUTH_FOR_WRITES", false),
		JournalDir:           normalisePath(envOrDefault("LOG_JOURNAL_DIR", defaultJournalDir)),
		StaticDir:            normalisePath(envOrDefault("STATIC_DIR", defaultStaticDir)),
		SeedPassword:         envOrDefault("SEED_DEFAULT_PASSWORD", defaultSeedPassword),
		ReadHeaderTimeout:    defaultReadHeaderLimit,
	}
	cfg.CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	cfg.Redis = LoadRedisConfig()
	return cfg
}

// LoadRedisConfig 读取 REDIS_* 变量；REDIS_DB 非法时回退到 0。
func LoadRedisConfig() RedisConfig {
	return RedisConfig{
		Endpoint:    strings.TrimSpace(os.Getenv("REDIS_ENDPOINT")),
		Password:    os.Getenv("REDIS_PASSWORD"),
		DB:          IntFromEnv("REDIS_DB", 0),
		DialTimeout: DurationFromEnv("REDIS_DIAL_TIMEOUT", defaultRedisTimeout),
		KeyPrefix:   envOrDefault("REDIS_KEY_PREFIX", defaultRedisKeyPrefix),
	}
}

// IntFromEnv 读取非负整数，非法值回退默认值。
func IntFromEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

// DurationFromEnv 解析 time.ParseDuration 格式，纯数字按秒处理；非法或非正值回退默认值。
func DurationFromEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return fallback
		}
		return time.Duration(secs) * time.Second
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// BoolFromEnv 读取布尔开关。
func BoolFromEnv(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
