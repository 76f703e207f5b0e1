package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"shift-handover-log/backend/internal/domain/settings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsRepository 读写 app_settings 表中的 JSON 配置。
type SettingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository 创建配置仓储。
func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// LoadSite 读取站点配置，记录不存在时返回 gorm.ErrRecordNotFound。
func (r *SettingsRepository) LoadSite(ctx context.Context) (settings.SiteSettings, error) {
	var row settings.Setting
	if err := r.db.WithContext(ctx).Where("`key` = ?", settings.SiteKey).First(&row).Error; err != nil {
		return settings.SiteSettings{}, err
	}
	// 旧数据可能缺字段，先填默认值再覆盖。
	site := settings.DefaultSiteSettings()
	if err := json.Unmarshal(row.Value, &site); err != nil {
		return settings.SiteSettings{}, fmt.Errorf("decode site settings: %w", err)
	}
	return site, nil
}

// SaveSite 以 upsert 写入站点配置。
func (r *SettingsRepository) SaveSite(ctx context.Context, site settings.SiteSettings) error {
	raw, err := json.Marshal(site)
	if err != nil {
		return fmt.Errorf("encode site settings: %w", err)
	}
	row := settings.Setting{Key: settings.SiteKey, Value: datatypes.JSON(raw)}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
}
