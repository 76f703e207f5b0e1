/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-05 16:41:15
 * @FilePath: \shift-handover-log\backend\internal\middleware\auth_middleware.go
 * @LastEditTime: 2026-10-09 15:02:37
 */
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	response "shift-handover-log/backend/internal/infra/common"
	"shift-handover-log/backend/internal/infra/token"
	"shift-handover-log/backend/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// ContextIdentity 保存完整的 auth.Identity。
	ContextIdentity = "identity"
	ContextUserID   = "userID"
	ContextUsername = "username"
	ContextIsAdmin  = "isAdmin"
)

// IdentityResolver 根据 Bearer Token 解析调用方身份。
type IdentityResolver interface {
	Authenticate(ctx context.Context, raw string) (auth.Identity, error)
}

// AuthMiddleware 校验 Bearer Token 并把身份写入 gin 上下文。
type AuthMiddleware struct {
	resolver IdentityResolver
	logger   *zap.SugaredLogger
}

// NewAuthMiddleware 创建鉴权中间件实例。
func NewAuthMiddleware(resolver IdentityResolver, logger *zap.SugaredLogger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &AuthMiddleware{resolver: resolver, logger: logger.With("component", "auth.middleware")}
}

// Handle 返回 Gin 中间件：缺少或过期的令牌返回 401，其余不合法的令牌返回 403。
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := BearerToken(c)
		if !ok {
			response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "Access token required", nil)
			return
		}

		identity, err := m.resolver.Authenticate(c.Request.Context(), raw)
		if err != nil {
			switch {
			case errors.Is(err, token.ErrTokenExpired):
				response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "Token expired", nil)
			case errors.Is(err, token.ErrTokenInvalid), errors.Is(err, auth.ErrTokenRevoked):
				response.Fail(c, http.StatusForbidden, response.ErrForbidden, "Invalid token", nil)
			default:
				m.logger.Errorw("authenticate request failed", "path", c.FullPath(), "error", err)
				response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "Authentication failed", nil)
			}
			return
		}

		c.Set(ContextIdentity, identity)
		c.Set(ContextUserID, identity.UserID)
		c.Set(ContextUsername, identity.Username)
		c.Set(ContextIsAdmin, identity.IsAdmin)
		c.Next()
	}
}

// AdminOnly 要求前置的鉴权中间件已写入管理员身份。
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isAdmin, _ := c.Get(ContextIsAdmin); isAdmin != true {
			response.Fail(c, http.StatusForbidden, response.ErrForbidden, "Admin access required", nil)
			return
		}
		c.Next()
	}
}

// BearerToken 从 Authorization 头中取出令牌。
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(header[7:])
	return raw, raw != ""
}

// IdentityFrom 读取鉴权中间件写入的身份。
func IdentityFrom(c *gin.Context) (auth.Identity, bool) {
	val, ok := c.Get(ContextIdentity)
	if !ok {
		return auth.Identity{}, false
	}
	identity, ok := val.(auth.Identity)
	return identity, ok
}
