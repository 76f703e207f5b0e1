package client

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"shift-handover-log/backend/internal/domain/shiftlog"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewGORMSQLite 打开本地 SQLite 文件，目录不存在时自动创建。
func NewGORMSQLite(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", path)
	db, err := gorm.Open(sqlite.Open(dsn), newGormConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	// SQLite 单写者，串行化连接避免 database is locked。
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// newGormConfig 返回两种驱动共用的配置：时间统一 UTC 并截断到秒。
func newGormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return shiftlog.NormalizeTime(time.Now())
		},
	}
}
