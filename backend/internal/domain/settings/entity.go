package settings

import (
	"time"

	"gorm.io/datatypes"
)

// SiteKey 是站点配置在 app_settings 表中的主键。
const SiteKey = "site"

// Setting 映射 app_settings 表的一行，值以 JSON 形式保存。
type Setting struct {
	Key       string         `gorm:"primaryKey;size:64" json:"key"`
	Value     datatypes.JSON `gorm:"type:json" json:"value"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName 指定数据库表名。
func (Setting) TableName() string {
	return "app_settings"
}

// SiteSettings 描述管理员可调整的站点配置。
type SiteSettings struct {
	PageName           string `json:"page_name"`
	InfoBanner         string `json:"info_banner"`
	LoginExpiryEnabled bool   `json:"login_expiry_enabled"`
	LoginExpiryHours   int    `json:"login_expiry_hours"`
	DailyLogsEnabled   bool   `json:"daily_logs_enabled"`
}

// DefaultSiteSettings 返回首次启动时使用的默认配置。
func DefaultSiteSettings() SiteSettings {
	return SiteSettings{
		PageName:           "Shift Handover Log",
		InfoBanner:         "",
		LoginExpiryEnabled: true,
		LoginExpiryHours:   24,
		DailyLogsEnabled:   false,
	}
}

// LoginTTL 返回登录令牌有效期，关闭过期时返回 0。
func (s SiteSettings) LoginTTL() time.Duration {
	if !s.LoginExpiryEnabled {
		return 0
	}
	hours := s.LoginExpiryHours
	if hours <= 0 {
		hours = DefaultSiteSettings().LoginExpiryHours
	}
	return time.Duration(hours) * time.Hour
}
