package repository

import (
	"fmt"
	"testing"
	"time"

	"shift-handover-log/backend/internal/domain/settings"
	"shift-handover-log/backend/internal/domain/shiftlog"
	"shift-handover-log/backend/internal/domain/user"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return shiftlog.NormalizeTime(time.Now()) },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&shiftlog.LogEntry{}, &user.User{}, &settings.Setting{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}
