package settings

import (
	"context"
	"fmt"
	"strings"
	"testing"

	domain "shift-handover-log/backend/internal/domain/settings"
	"shift-handover-log/backend/internal/infra/sanitize"
	"shift-handover-log/backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *repository.SettingsRepository) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.Setting{}))

	repo := repository.NewSettingsRepository(db)
	return NewService(repo, sanitize.NewHTMLSanitizer(), nil), repo
}

func TestLoadSeedsDefaults(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	require.NoError(t, svc.Load(ctx))
	assert.Equal(t, domain.DefaultSiteSettings(), svc.Current())

	stored, err := repo.LoadSite(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSiteSettings(), stored)
}

func TestUpdatePersistsAndRefreshesCache(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	require.NoError(t, svc.Load(ctx))

	name := "  Night Shift  "
	banner := `<p onclick="x()">Boiler <b>down</b></p><script>alert(1)</script>`
	daily := true
	expiry := false
	updated, err := svc.Update(ctx, Update{
		PageName:           &name,
		InfoBanner:         &banner,
		DailyLogsEnabled:   &daily,
		LoginExpiryEnabled: &expiry,
	})
	require.NoError(t, err)
	assert.Equal(t, "Night Shift", updated.PageName)
	assert.NotContains(t, updated.InfoBanner, "script")
	assert.NotContains(t, updated.InfoBanner, "onclick")
	assert.Contains(t, updated.InfoBanner, "<b>down</b>")
	assert.True(t, svc.DailyLogsEnabled())
	assert.False(t, svc.LoginExpiryEnabled())

	// 新实例从存储加载到相同配置。
	reloaded := NewService(repo, nil, nil)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, updated, reloaded.Current())
}

func TestUpdateValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	require.NoError(t, svc.Load(ctx))

	longName := strings.Repeat("x", 101)
	longBanner := "<b>" + strings.Repeat("y", 501) + "</b>"
	hours := 721
	_, err := svc.Update(ctx, Update{PageName: &longName, InfoBanner: &longBanner, LoginExpiryHours: &hours})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "page_name")
	assert.Contains(t, verr.Fields, "info_banner")
	assert.Contains(t, verr.Fields, "login_expiry_hours")
	assert.Equal(t, domain.DefaultSiteSettings(), svc.Current(), "cache unchanged after failed update")

	ok := 720
	updated, err := svc.Update(ctx, Update{LoginExpiryHours: &ok})
	require.NoError(t, err)
	assert.Equal(t, 720, updated.LoginExpiryHours)
}
