/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-05 20:42:09
 * @FilePath: \shift-handover-log\backend\internal\handler\auth_handler.go
 * @LastEditTime: 2026-10-09 21:15:23
 */
package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	response "shift-handover-log/backend/internal/infra/common"
	appLogger "shift-handover-log/backend/internal/infra/logger"
	"shift-handover-log/backend/internal/infra/security"
	"shift-handover-log/backend/internal/infra/token"
	"shift-handover-log/backend/internal/middleware"
	"shift-handover-log/backend/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler 负责登录、令牌校验、改密与登出。
type AuthHandler struct {
	service *auth.Service
	logger  *zap.SugaredLogger
}

// NewAuthHandler 构造鉴权 handler，注入业务层服务做实际处理。
func NewAuthHandler(service *auth.Service) *AuthHandler {
	return &AuthHandler{service: service, logger: appLogger.S().With("component", "auth.handler")}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// AdminLogin 处理 POST /api/auth/login，仅管理员可登录后台。
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	h.login(c, true)
}

// UserLogin 处理 POST /api/auth/user/login。
func (h *AuthHandler) UserLogin(c *gin.Context) {
	h.login(c, false)
}

func (h *AuthHandler) login(c *gin.Context, adminOnly bool) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "Invalid JSON body", nil)
		return
	}

	result, err := h.service.Login(c.Request.Context(), auth.LoginParams{
		IP:        c.ClientIP(),
		Username:  req.Username,
		Password:  req.Password,
		AdminOnly: adminOnly,
	})
	if err != nil {
		var locked *auth.LockedError
		switch {
		case errors.As(err, &locked):
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(locked.RetryAfter.Seconds()))))
			response.Fail(c, http.StatusTooManyRequests, response.ErrTooManyRequests,
				"Too many login attempts. Please try again later.", gin.H{"retry_after_seconds": int(math.Ceil(locked.RetryAfter.Seconds()))})
		case errors.Is(err, auth.ErrCredentialsRequired):
			response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "Username and password are required", nil)
		case errors.Is(err, auth.ErrInvalidCredentials):
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials, "Invalid credentials", nil)
		case errors.Is(err, auth.ErrAdminRequired):
			response.Fail(c, http.StatusForbidden, response.ErrForbidden, "Admin access required", nil)
		default:
			h.logger.Errorw("login failed", "error", err)
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "Login failed", nil)
		}
		return
	}

	response.Success(c, http.StatusOK, result, nil)
}

// Verify 处理 GET /api/auth/verify，返回令牌对应的身份。
func (h *AuthHandler) Verify(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "Access token required", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"valid": true, "user": identity}, nil)
}

// VerifyUser 处理 GET /api/auth/user/verify，仅接受主页登录签发的令牌。
func (h *AuthHandler) VerifyUser(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "Access token required", nil)
		return
	}
	if identity.Type != token.TypeUser {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "User token required", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"valid": true, "user": identity}, nil)
}

// ChangePassword 处理 POST /api/auth/change-password。
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "Access token required", nil)
		return
	}
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "Invalid JSON body", nil)
		return
	}

	err := h.service.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, gin.H{"message": "Password changed successfully"}, nil)
	case errors.Is(err, auth.ErrCredentialsRequired):
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "Current and new password are required", nil)
	case errors.Is(err, security.ErrPasswordTooShort):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, err.Error(), gin.H{"newPassword": err.Error()})
	case errors.Is(err, auth.ErrCurrentPassword):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials, "Current password is incorrect", nil)
	case errors.Is(err, token.ErrTokenInvalid):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "Invalid token", nil)
	default:
		h.logger.Errorw("change password failed", "user_id", userID, "error", err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "Failed to change password", nil)
	}
}

// Logout 处理 POST /api/auth/logout，吊销当前令牌。
func (h *AuthHandler) Logout(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "Access token required", nil)
		return
	}
	if err := h.service.Logout(c.Request.Context(), identity); err != nil {
		h.logger.Errorw("logout failed", "user_id", identity.UserID, "error", err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "Logout failed", nil)
		return
	}
	response.NoContent(c)
}
