/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-06 19:54:47
 * @FilePath: \shift-handover-log\backend\internal\app\app.go
 * @LastEditTime: 2026-10-09 19:31:02
 */
package app

import (
	"context"
	"errors"
	"fmt"

	"shift-handover-log/backend/internal/config"
	"shift-handover-log/backend/internal/domain/settings"
	"shift-handover-log/backend/internal/domain/shiftlog"
	"shift-handover-log/backend/internal/domain/user"
	"shift-handover-log/backend/internal/infra/client"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Resources 汇总进程级的外部资源，Redis 为可选项。
type Resources struct {
	Flags  config.RuntimeFlags
	Server config.ServerConfig
	DB     *gorm.DB
	Redis  *redis.Client
}

// InitResources 按运行模式打开数据库（本地 SQLite / 线上 MySQL），连接可选的 Redis 并迁移表结构。
func InitResources(ctx context.Context, logger *zap.SugaredLogger) (*Resources, error) {
	config.LoadEnvFiles()
	flags := config.LoadRuntimeFlags()
	serverCfg := config.LoadServerConfig()

	db, err := openDatabase(flags, logger)
	if err != nil {
		return nil, err
	}
	res := &Resources{Flags: flags, Server: serverCfg, DB: db}

	if err := AutoMigrate(ctx, db); err != nil {
		_ = res.Close()
		return nil, err
	}

	rdb, err := client.NewRedisClient(ctx, serverCfg.Redis)
	switch {
	case errors.Is(err, client.ErrRedisNotConfigured):
		logger.Infow("redis not configured, using in-process limiter, lock and revocation store")
	case err != nil:
		_ = res.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	default:
		res.Redis = rdb
		logger.Infow("redis connected", "addr", rdb.Options().Addr, "db", rdb.Options().DB, "prefix", serverCfg.Redis.KeyPrefix)
	}

	return res, nil
}

func openDatabase(flags config.RuntimeFlags, logger *zap.SugaredLogger) (*gorm.DB, error) {
	if flags.IsLocalMode() {
		db, err := client.NewGORMSQLite(flags.Local.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Infow("sqlite opened", "path", flags.Local.DBPath)
		return db, nil
	}

	mysqlCfg, err := client.LoadMySQLConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load mysql config: %w", err)
	}
	db, err := client.NewGORMMySQL(mysqlCfg)
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	logger.Infow("mysql connected", "host", mysqlCfg.Host, "database", mysqlCfg.Database, "user", mysqlCfg.Username)
	return db, nil
}

// AutoMigrate 创建或更新所有表结构。
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&shiftlog.LogEntry{}, &user.User{}, &settings.Setting{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Close 释放数据库与 Redis 连接。
func (r *Resources) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}
