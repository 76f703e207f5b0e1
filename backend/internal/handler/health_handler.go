package handler

import (
	"context"
	"net/http"
	"time"

	response "shift-handover-log/backend/internal/infra/common"

	"github.com/gin-gonic/gin"
)

// Pinger 检查依赖是否可用，例如数据库连接。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler 处理 GET /api/health。
type HealthHandler struct {
	db    Pinger
	clock func() time.Time
}

// NewHealthHandler 构造健康检查 handler，db 为空时只报告进程存活。
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db, clock: time.Now}
}

// Check 返回服务状态与当前时间。
func (h *HealthHandler) Check(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			response.Fail(c, http.StatusServiceUnavailable, response.ErrDatabase, "Database unavailable", nil)
			return
		}
	}
	response.Success(c, http.StatusOK, gin.H{"status": "OK", "timestamp": h.clock().UTC().Format(time.RFC3339)}, nil)
}
