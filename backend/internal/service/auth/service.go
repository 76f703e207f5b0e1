/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-04 20:40:06
 * @FilePath: \shift-handover-log\backend\internal\service\auth\service.go
 * @LastEditTime: 2026-10-09 14:16:45
 */
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shift-handover-log/backend/internal/domain/settings"
	domain "shift-handover-log/backend/internal/domain/user"
	"shift-handover-log/backend/internal/infra/metrics"
	"shift-handover-log/backend/internal/infra/ratelimit"
	"shift-handover-log/backend/internal/infra/security"
	"shift-handover-log/backend/internal/infra/token"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// MaxFailedAttempts 同一 ip:username 允许的连续失败次数。
	MaxFailedAttempts = 10
	// LockoutWindow 达到上限后的封禁时长，每次失败都会刷新。
	LockoutWindow = 2 * time.Minute
)

var (
	ErrCredentialsRequired = errors.New("username and password are required")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrAdminRequired       = errors.New("admin access required")
	ErrUserTokenRequired   = errors.New("user token required")
	ErrTokenRevoked        = errors.New("token revoked")
	ErrCurrentPassword     = errors.New("current password is incorrect")
)

// LockedError 表示登录尝试过多，RetryAfter 之后才能再次尝试。
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("too many login attempts, retry after %s", e.RetryAfter.Round(time.Second))
}

// UserStore 是鉴权需要的用户读写能力。
type UserStore interface {
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdatePassword(ctx context.Context, userID uint, hash string) error
}

// TokenManager 签发与解析登录令牌。
type TokenManager interface {
	Issue(subject token.Subject, tokenType string, ttl time.Duration) (token.Issued, error)
	Parse(raw string, ignoreExpiry bool) (token.Claims, error)
}

// SettingsProvider 提供当前站点配置。
type SettingsProvider interface {
	Current() settings.SiteSettings
}

// Identity 是令牌校验通过后的调用方身份。
type Identity struct {
	UserID    uint       `json:"id"`
	Username  string     `json:"username"`
	IsAdmin   bool       `json:"is_admin"`
	Type      string     `json:"type"`
	TokenID   string     `json:"-"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// LoginParams 封装登录请求。AdminOnly 对应后台入口。
type LoginParams struct {
	IP        string
	Username  string
	Password  string
	AdminOnly bool
}

// LoginResult 是登录成功的返回值，ExpiresAt 为空表示令牌不过期。
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt *time.Time   `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// Service 负责登录、令牌校验、改密与登出。
type Service struct {
	users       UserStore
	tokens      TokenManager
	revocations token.RevocationStore
	limiter     ratelimit.Limiter
	settings    SettingsProvider
	logger      *zap.SugaredLogger
}

// NewService 创建鉴权服务；limiter 与 revocations 为空时使用进程内实现。
func NewService(users UserStore, tokens TokenManager, revocations token.RevocationStore, limiter ratelimit.Limiter, site SettingsProvider, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if limiter == nil {
		limiter = ratelimit.NewMemoryLimiter()
	}
	if revocations == nil {
		revocations = token.NewMemoryRevocationStore()
	}
	return &Service{
		users:       users,
		tokens:      tokens,
		revocations: revocations,
		limiter:     limiter,
		settings:    site,
		logger:      logger.With("component", "auth.service"),
	}
}

func (s *Service) scope(operation string) *zap.SugaredLogger {
	return s.logger.With("operation", operation)
}

func (s *Service) site() settings.SiteSettings {
	if s.settings == nil {
		return settings.DefaultSiteSettings()
	}
	return s.settings.Current()
}

// Login 校验凭证并签发令牌。失败按 ip:username 计数，达到上限后封禁一段时间。
// 后台入口下非管理员账号也计为一次失败。
func (s *Service) Login(ctx context.Context, params LoginParams) (LoginResult, error) {
	username := strings.TrimSpace(params.Username)
	log := s.scope("login").With("username", username, "ip", params.IP, "admin_only", params.AdminOnly)

	if username == "" || params.Password == "" {
		metrics.RecordLoginAttempt("invalid")
		return LoginResult{}, ErrCredentialsRequired
	}

	key := params.IP + ":" + username
	count, ttl, err := s.limiter.Peek(ctx, key)
	if err != nil {
		log.Errorw("peek login attempts failed", "error", err)
		return LoginResult{}, fmt.Errorf("check login attempts: %w", err)
	}
	if count >= MaxFailedAttempts && ttl > 0 {
		metrics.RecordLoginAttempt("locked")
		log.Warnw("login blocked", "retry_after", ttl)
		return LoginResult{}, &LockedError{RetryAfter: ttl}
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Errorw("find user failed", "error", err)
		return LoginResult{}, fmt.Errorf("find user: %w", err)
	}

	var matched bool
	if user != nil {
		matched, err = security.CheckPassword(user.PasswordHash, params.Password)
		if err != nil {
			log.Warnw("compare password failed", "error", err)
		}
	}
	if !matched {
		s.recordFailure(ctx, log, key)
		metrics.RecordLoginAttempt("failed")
		return LoginResult{}, ErrInvalidCredentials
	}
	if params.AdminOnly && !user.IsAdmin {
		s.recordFailure(ctx, log, key)
		metrics.RecordLoginAttempt("forbidden")
		return LoginResult{}, ErrAdminRequired
	}

	if err := s.limiter.Reset(ctx, key); err != nil {
		log.Warnw("reset login attempts failed", "error", err)
	}

	tokenType := token.TypeUser
	if params.AdminOnly {
		tokenType = token.TypeAdmin
	}
	issued, err := s.tokens.Issue(token.Subject{
		UserID:   user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
	}, tokenType, s.site().LoginTTL())
	if err != nil {
		log.Errorw("issue token failed", "error", err)
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	metrics.RecordLoginAttempt("success")
	log.Infow("login success", "user_id", user.ID)
	return LoginResult{Token: issued.Token, ExpiresAt: issued.ExpiresAt, User: user}, nil
}

func (s *Service) recordFailure(ctx context.Context, log *zap.SugaredLogger, key string) {
	result, err := s.limiter.Allow(ctx, key, MaxFailedAttempts, LockoutWindow)
	if err != nil {
		log.Warnw("record login failure failed", "error", err)
		return
	}
	log.Warnw("login failed", "remaining_attempts", result.Remaining)
}

// Authenticate 校验令牌签名、过期、吊销状态以及用户是否仍然存在。
// 后台关闭登录过期时忽略 exp。
func (s *Service) Authenticate(ctx context.Context, raw string) (Identity, error) {
	claims, err := s.tokens.Parse(raw, !s.site().LoginExpiryEnabled)
	if err != nil {
		return Identity{}, err
	}
	if claims.TokenID != "" {
		revoked, err := s.revocations.IsRevoked(ctx, claims.TokenID)
		if err != nil {
			return Identity{}, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return Identity{}, ErrTokenRevoked
		}
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, fmt.Errorf("%w: user no longer exists", token.ErrTokenInvalid)
		}
		return Identity{}, fmt.Errorf("load user: %w", err)
	}

	return Identity{
		UserID:    user.ID,
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
		Type:      claims.Type,
		TokenID:   claims.TokenID,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// VerifyUser 要求令牌来自主页登录入口。
func (s *Service) VerifyUser(ctx context.Context, raw string) (Identity, error) {
	identity, err := s.Authenticate(ctx, raw)
	if err != nil {
		return Identity{}, err
	}
	if identity.Type != token.TypeUser {
		return Identity{}, ErrUserTokenRequired
	}
	return identity, nil
}

// ChangePassword 校验当前密码后写入新密码。
func (s *Service) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	log := s.scope("change_password").With("user_id", userID)
	if current == "" {
		return ErrCredentialsRequired
	}
	if err := security.ValidatePassword(next); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: user no longer exists", token.ErrTokenInvalid)
		}
		return fmt.Errorf("load user: %w", err)
	}
	ok, err := security.CheckPassword(user.PasswordHash, current)
	if err != nil {
		log.Warnw("compare password failed", "error", err)
	}
	if !ok {
		log.Warnw("current password mismatch")
		return ErrCurrentPassword
	}

	hash, err := security.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	log.Infow("password changed")
	return nil
}

// Logout 吊销当前令牌，令牌自然过期后吊销记录随之失效。
func (s *Service) Logout(ctx context.Context, identity Identity) error {
	if identity.TokenID == "" {
		return nil
	}
	if err := s.revocations.Revoke(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.scope("logout").Infow("token revoked", "user_id", identity.UserID)
	return nil
}
