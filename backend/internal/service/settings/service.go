/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-05 10:42:17
 * @FilePath: \shift-handover-log\backend\internal\service\settings\service.go
 * @LastEditTime: 2026-10-08 11:03:29
 */
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	domain "shift-handover-log/backend/internal/domain/settings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxPageNameLength = 100
	maxBannerVisible  = 500
	minExpiryHours    = 1
	maxExpiryHours    = 720
)

// Store 抽象站点配置的持久化。
type Store interface {
	LoadSite(ctx context.Context) (domain.SiteSettings, error)
	SaveSite(ctx context.Context, site domain.SiteSettings) error
}

// Sanitizer 清洗公告栏 HTML。
type Sanitizer interface {
	Sanitize(raw string) string
	VisibleLength(raw string) int
}

// ValidationError 汇总配置字段的校验错误。
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		parts = append(parts, k+": "+v)
	}
	return "invalid settings: " + strings.Join(parts, "; ")
}

// Update 是 PUT /api/config 的部分更新，空指针表示不修改。
type Update struct {
	PageName           *string `json:"page_name"`
	InfoBanner         *string `json:"info_banner"`
	LoginExpiryEnabled *bool   `json:"login_expiry_enabled"`
	LoginExpiryHours   *int    `json:"login_expiry_hours"`
	DailyLogsEnabled   *bool   `json:"daily_logs_enabled"`
}

// Service 缓存站点配置，读路径不访问数据库。
type Service struct {
	store     Store
	sanitizer Sanitizer
	logger    *zap.SugaredLogger

	mu      sync.RWMutex
	current domain.SiteSettings
}

// NewService 构造配置服务，调用 Load 之前返回默认配置。
func NewService(store Store, sanitizer Sanitizer, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		store:     store,
		sanitizer: sanitizer,
		logger:    logger.With("component", "settings.service"),
		current:   domain.DefaultSiteSettings(),
	}
}

// Load 从存储读取配置到缓存，首次启动时写入默认值。
func (s *Service) Load(ctx context.Context) error {
	site, err := s.store.LoadSite(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		site = domain.DefaultSiteSettings()
		if err := s.store.SaveSite(ctx, site); err != nil {
			return fmt.Errorf("seed site settings: %w", err)
		}
		s.logger.Infow("site settings seeded with defaults")
	} else if err != nil {
		return fmt.Errorf("load site settings: %w", err)
	}

	s.mu.Lock()
	s.current = site
	s.mu.Unlock()
	return nil
}

// Current 返回缓存中的配置副本。
func (s *Service) Current() domain.SiteSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// DailyLogsEnabled 实现 shiftlog.JournalSwitch。
func (s *Service) DailyLogsEnabled() bool {
	return s.Current().DailyLogsEnabled
}

// LoginExpiryEnabled 供鉴权中间件判断是否校验 exp。
func (s *Service) LoginExpiryEnabled() bool {
	return s.Current().LoginExpiryEnabled
}

// Update 校验并保存配置，成功后刷新缓存。
func (s *Service) Update(ctx context.Context, in Update) (domain.SiteSettings, error) {
	next := s.Current()
	fields := map[string]string{}

	if in.PageName != nil {
		name := strings.TrimSpace(*in.PageName)
		switch {
		case name == "":
			fields["page_name"] = "Page name is required"
		case utf8.RuneCountInString(name) > maxPageNameLength:
			fields["page_name"] = fmt.Sprintf("Page name must be %d characters or less", maxPageNameLength)
		default:
			next.PageName = name
		}
	}
	if in.InfoBanner != nil {
		banner := strings.TrimSpace(*in.InfoBanner)
		if s.sanitizer != nil {
			banner = s.sanitizer.Sanitize(banner)
			if s.sanitizer.VisibleLength(banner) > maxBannerVisible {
				fields["info_banner"] = fmt.Sprintf("Info banner must be %d characters or less", maxBannerVisible)
			}
		}
		next.InfoBanner = banner
	}
	if in.LoginExpiryEnabled != nil {
		next.LoginExpiryEnabled = *in.LoginExpiryEnabled
	}
	if in.LoginExpiryHours != nil {
		hours := *in.LoginExpiryHours
		if hours < minExpiryHours || hours > maxExpiryHours {
			fields["login_expiry_hours"] = fmt.Sprintf("Login expiry must be between %d and %d hours", minExpiryHours, maxExpiryHours)
		} else {
			next.LoginExpiryHours = hours
		}
	}
	if in.DailyLogsEnabled != nil {
		next.DailyLogsEnabled = *in.DailyLogsEnabled
	}

	if len(fields) > 0 {
		return domain.SiteSettings{}, &ValidationError{Fields: fields}
	}
	if err := s.store.SaveSite(ctx, next); err != nil {
		return domain.SiteSettings{}, fmt.Errorf("save site settings: %w", err)
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	s.logger.Infow("site settings updated",
		"page_name", next.PageName,
		"login_expiry_enabled", next.LoginExpiryEnabled,
		"login_expiry_hours", next.LoginExpiryHours,
		"daily_logs_enabled", next.DailyLogsEnabled,
	)
	return next, nil
}
