package handler

import (
	"errors"
	"net/http"

	response "shift-handover-log/backend/internal/infra/common"
	appLogger "shift-handover-log/backend/internal/infra/logger"
	settingsvc "shift-handover-log/backend/internal/service/settings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SettingsHandler 暴露站点配置，读取公开，修改需管理员。
type SettingsHandler struct {
	service *settingsvc.Service
	logger  *zap.SugaredLogger
}

// NewSettingsHandler 构造配置 handler。
func NewSettingsHandler(service *settingsvc.Service) *SettingsHandler {
	return &SettingsHandler{service: service, logger: appLogger.S().With("component", "settings.handler")}
}

// Get 处理 GET /api/config。
func (h *SettingsHandler) Get(c *gin.Context) {
	response.Success(c, http.StatusOK, h.service.Current(), nil)
}

// Update 处理 PUT /api/config。
func (h *SettingsHandler) Update(c *gin.Context) {
	var req settingsvc.Update
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "Invalid JSON body", nil)
		return
	}
	updated, err := h.service.Update(c.Request.Context(), req)
	if err != nil {
		var verr *settingsvc.ValidationError
		if errors.As(err, &verr) {
			response.Fail(c, http.StatusBadRequest, response.ErrValidation, "Validation failed", verr.Fields)
			return
		}
		h.logger.Errorw("update settings failed", "error", err)
		response.Fail(c, http.StatusInternalServerError, response.ErrDatabase, "Failed to save settings", nil)
		return
	}
	response.Success(c, http.StatusOK, updated, nil)
}
