/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-06 09:38:26
 * @FilePath: \shift-handover-log\backend\internal\handler\user_handler.go
 * @LastEditTime: 2026-10-09 11:42:06
 */
package handler

import (
	"errors"
	"net/http"

	response "shift-handover-log/backend/internal/infra/common"
	appLogger "shift-handover-log/backend/internal/infra/logger"
	"shift-handover-log/backend/internal/infra/security"
	usersvc "shift-handover-log/backend/internal/service/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandler 负责后台用户管理的 HTTP 入口，路由需挂在 AdminOnly 之后。
type UserHandler struct {
	service *usersvc.Service
	logger  *zap.SugaredLogger
}

// NewUserHandler 构造用户 handler。
func NewUserHandler(service *usersvc.Service) *UserHandler {
	return &UserHandler{service: service, logger: appLogger.S().With("component", "user.handler")}
}

type moveUserRequest struct {
	Direction usersvc.Direction `json:"direction"`
}

type sendPasswordRequest struct {
	Password string `json:"password"`
}

// List 处理 GET /api/users。
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.service.List(c.Request.Context())
	if err != nil {
		h.fail(c, "list", err)
		return
	}
	response.Success(c, http.StatusOK, users, nil)
}

// Create 处理 POST /api/users。
func (h *UserHandler) Create(c *gin.Context) {
	var req usersvc.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "Invalid JSON body", nil)
		return
	}
	u, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "create", err)
		return
	}
	response.Created(c, u)
}

// Update 处理 PUT /api/users/:id。
func (h *UserHandler) Update(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "Invalid user id", nil)
		return
	}
	var req usersvc.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "Invalid JSON body", nil)
		return
	}
	u, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, "update", err)
		return
	}
	response.Success(c, http.StatusOK, u, nil)
}

// Delete 处理 DELETE /api/users/:id。
func (h *UserHandler) Delete(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "Invalid user id", nil)
		return
	}
	actorID, _ := extractUserID(c)
	if err := h.service.Delete(c.Request.Context(), actorID, id); err != nil {
		h.fail(c, "delete", err)
		return
	}
	response.NoContent(c)
}

// Move 处理 POST /api/users/:id/move。
func (h *UserHandler) Move(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "Invalid user id", nil)
		return
	}
	var req moveUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "Invalid JSON body", nil)
		return
	}
	users, err := h.service.Move(c.Request.Context(), id, req.Direction)
	if err != nil {
		h.fail(c, "move", err)
		return
	}
	response.Success(c, http.StatusOK, users, nil)
}

// SendPassword 处理 POST /api/users/:id/send-password。
func (h *UserHandler) SendPassword(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "Invalid user id", nil)
		return
	}
	var req sendPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "Invalid JSON body", nil)
		return
	}
	if err := h.service.SendPassword(c.Request.Context(), id, req.Password); err != nil {
		h.fail(c, "send_password", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Password sent"}, nil)
}

func (h *UserHandler) fail(c *gin.Context, operation string, err error) {
	switch {
	case errors.Is(err, usersvc.ErrUserNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound, "User not found", nil)
	case errors.Is(err, usersvc.ErrUsernameTaken):
		response.Fail(c, http.StatusConflict, response.ErrConflict, err.Error(), gin.H{"username": err.Error()})
	case errors.Is(err, usersvc.ErrUsernameRequired), errors.Is(err, usersvc.ErrUsernameTooLong):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, err.Error(), gin.H{"username": err.Error()})
	case errors.Is(err, security.ErrPasswordTooShort):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, err.Error(), gin.H{"password": err.Error()})
	case errors.Is(err, usersvc.ErrInvalidEmail), errors.Is(err, usersvc.ErrEmailMissing):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, err.Error(), gin.H{"email": err.Error()})
	case errors.Is(err, usersvc.ErrInvalidDirection):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, err.Error(), gin.H{"direction": err.Error()})
	case errors.Is(err, usersvc.ErrCannotDeleteSelf), errors.Is(err, usersvc.ErrProtectedUser):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, err.Error(), nil)
	default:
		h.logger.Errorw("user operation failed", "operation", operation, "error", err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "User operation failed", nil)
	}
}
