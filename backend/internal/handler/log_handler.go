/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-05 13:20:44
 * @FilePath: \shift-handover-log\backend\internal\handler\log_handler.go
 * @LastEditTime: 2026-10-09 17:45:10
 */
package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	response "shift-handover-log/backend/internal/infra/common"
	appLogger "shift-handover-log/backend/internal/infra/logger"
	"shift-handover-log/backend/internal/service/shiftlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LogHandler 负责交接班日志的 HTTP 入口。
type LogHandler struct {
	service      *shiftlog.Service
	logger       *zap.SugaredLogger
	exposeErrors bool
}

// NewLogHandler 构造日志 handler。exposeErrors 为 true 时 500 响应附带错误详情，生产环境应关闭。
func NewLogHandler(service *shiftlog.Service, exposeErrors bool) *LogHandler {
	return &LogHandler{
		service:      service,
		logger:       appLogger.S().With("component", "log.handler"),
		exposeErrors: exposeErrors,
	}
}

type createLogRequest struct {
	LogDate          string  `json:"log_date"`
	ShortDescription string  `json:"short_description"`
	Note             string  `json:"note"`
	WorkerName       string  `json:"worker_name"`
	Color            *string `json:"color"`
	IsArchived       *bool   `json:"is_archived"`
	ReminderDate     *string `json:"reminder_date"`
}

type archiveRequest struct {
	IsArchived *bool `json:"is_archived"`
}

type reminderRequest struct {
	ReminderDate *string `json:"reminder_date"`
}

// List 处理 GET /api/logs。
func (h *LogHandler) List(c *gin.Context) {
	result, err := h.service.List(c.Request.Context(), shiftlog.ListQuery{
		Search:     c.Query("search"),
		WorkerName: c.Query("worker_name"),
		StartDate:  c.Query("start_date"),
		EndDate:    c.Query("end_date"),
		Archived:   c.Query("archived"),
		Page:       c.Query("page"),
		Limit:      c.Query("limit"),
	})
	if err != nil {
		h.fail(c, "list", err)
		return
	}
	response.Success(c, http.StatusOK, result.Entries, &response.Pagination{
		CurrentPage:  result.CurrentPage,
		TotalPages:   result.TotalPages,
		TotalEntries: result.Total,
	})
}

// Get 处理 GET /api/logs/:id。
func (h *LogHandler) Get(c *gin.Context) {
	id, ok := h.entryID(c)
	if !ok {
		return
	}
	entry, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get", err)
		return
	}
	response.Success(c, http.StatusOK, entry, nil)
}

// Create 处理 POST /api/logs。
func (h *LogHandler) Create(c *gin.Context) {
	var req createLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "Invalid JSON body", nil)
		return
	}
	entry, err := h.service.Create(c.Request.Context(), shiftlog.CreateInput{
		LogDate:          req.LogDate,
		ShortDescription: req.ShortDescription,
		Note:             req.Note,
		WorkerName:       req.WorkerName,
		Color:            req.Color,
		IsArchived:       req.IsArchived,
		ReminderDate:     req.ReminderDate,
	})
	if err != nil {
		h.fail(c, "create", err)
		return
	}
	h.scope("create").Infow("log entry created", "entry_id", entry.ID, "worker_name", entry.WorkerName)
	response.Created(c, entry)
}

// Update 处理 PUT /api/logs/:id 的部分更新。
// reminder_date 需要区分“未提供”与“显式 null”，因此先解析为原始 JSON。
func (h *LogHandler) Update(c *gin.Context) {
	id, ok := h.entryID(c)
	if !ok {
		return
	}
	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "Invalid JSON body", nil)
		return
	}

	in, fields := decodeUpdate(raw)
	if len(fields) > 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "Validation failed", fields)
		return
	}
	entry, err := h.service.Update(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, "update", err)
		return
	}
	response.Success(c, http.StatusOK, entry, nil)
}

// Archive 处理 PATCH /api/logs/:id/archive。
func (h *LogHandler) Archive(c *gin.Context) {
	id, ok := h.entryID(c)
	if !ok {
		return
	}
	var req archiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsArchived == nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "Validation failed",
			map[string]string{"is_archived": "is_archived must be a boolean"})
		return
	}
	entry, err := h.service.SetArchived(c.Request.Context(), id, *req.IsArchived)
	if err != nil {
		h.fail(c, "archive", err)
		return
	}
	response.Success(c, http.StatusOK, entry, nil)
}

// SetReminder 处理 PATCH /api/logs/:id/reminder，空值或 null 等同于清除提醒。
func (h *LogHandler) SetReminder(c *gin.Context) {
	id, ok := h.entryID(c)
	if !ok {
		return
	}
	var req reminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "Invalid JSON body", nil)
		return
	}
	value := ""
	if req.ReminderDate != nil {
		value = *req.ReminderDate
	}
	entry, err := h.service.SetReminder(c.Request.Context(), id, value)
	if err != nil {
		h.fail(c, "set_reminder", err)
		return
	}
	response.Success(c, http.StatusOK, entry, nil)
}

// ClearReminder 处理 PATCH /api/logs/:id/reminder/clear。
func (h *LogHandler) ClearReminder(c *gin.Context) {
	id, ok := h.entryID(c)
	if !ok {
		return
	}
	entry, err := h.service.ClearReminder(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "clear_reminder", err)
		return
	}
	response.Success(c, http.StatusOK, entry, nil)
}

// Delete 处理 DELETE /api/logs/:id。
func (h *LogHandler) Delete(c *gin.Context) {
	id, ok := h.entryID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, "delete", err)
		return
	}
	h.scope("delete").Infow("log entry deleted", "entry_id", id)
	response.NoContent(c)
}

func (h *LogHandler) entryID(c *gin.Context) (uint, bool) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "Invalid log id", nil)
		return 0, false
	}
	return id, true
}

// fail 把服务层错误映射为 HTTP 响应。
func (h *LogHandler) fail(c *gin.Context, operation string, err error) {
	var verr *shiftlog.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "Validation failed", verr.Fields)
	case errors.Is(err, shiftlog.ErrEntryNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound, "Log entry not found", nil)
	default:
		h.scope(operation).Errorw("log operation failed", "error", err)
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrDatabase, h.exposeErrors)
	}
}

func (h *LogHandler) scope(operation string) *zap.SugaredLogger {
	return h.logger.With("operation", operation)
}

var jsonNull = []byte("null")

// decodeUpdate 逐字段解析部分更新请求，类型错误作为字段级校验错误返回。
func decodeUpdate(raw map[string]json.RawMessage) (shiftlog.UpdateInput, map[string]string) {
	var in shiftlog.UpdateInput
	fields := map[string]string{}

	str := func(key string) *string {
		msg, ok := raw[key]
		if !ok || bytes.Equal(bytes.TrimSpace(msg), jsonNull) {
			return nil
		}
		var v string
		if err := json.Unmarshal(msg, &v); err != nil {
			fields[key] = key + " must be a string"
			return nil
		}
		return &v
	}

	in.LogDate = str("log_date")
	in.ShortDescription = str("short_description")
	in.Note = str("note")
	in.WorkerName = str("worker_name")
	in.Color = str("color")

	if msg, ok := raw["is_archived"]; ok && !bytes.Equal(bytes.TrimSpace(msg), jsonNull) {
		var v bool
		if err := json.Unmarshal(msg, &v); err != nil {
			fields["is_archived"] = "is_archived must be a boolean"
		} else {
			in.IsArchived = &v
		}
	}

	if msg, ok := raw["reminder_date"]; ok {
		in.Reminder.Present = true
		if !bytes.Equal(bytes.TrimSpace(msg), jsonNull) {
			if err := json.Unmarshal(msg, &in.Reminder.Value); err != nil {
				fields["reminder_date"] = "reminder_date must be a string or null"
			}
		}
	}
	return in, fields
}
