/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-02 11:04:52
 * @FilePath: \shift-handover-log\backend\internal\infra\common\response.go
 * @LastEditTime: 2026-10-05 15:31:09
 */
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorCode 表示统一的错误码，便于客户端识别失败原因。
type ErrorCode string

const (
	ErrValidation         ErrorCode = "VALIDATION_ERROR"
	ErrBadRequest         ErrorCode = "BAD_REQUEST"
	ErrUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrForbidden          ErrorCode = "FORBIDDEN"
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrConflict           ErrorCode = "CONFLICT"
	ErrTooManyRequests    ErrorCode = "TOO_MANY_REQUESTS"
	ErrDatabase           ErrorCode = "DATABASE_ERROR"
	ErrInternal           ErrorCode = "INTERNAL_ERROR"
	ErrInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
)

// Error 描述错误响应的统一结构。
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

// Response 是所有接口返回的公共结构。
type Response struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Error      *Error      `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination 描述列表接口的分页信息，页码从 1 开始。
type Pagination struct {
	CurrentPage  int   `json:"current_page"`
	TotalPages   int   `json:"total_pages"`
	TotalEntries int64 `json:"total_entries"`
}

// Success 以统一格式返回成功结果，pagination 可为 nil。
func Success(c *gin.Context, status int, data any, pagination *Pagination) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success:    true,
		Data:       data,
		Pagination: pagination,
	})
}

// Created 返回 201 Created 的成功响应。
func Created(c *gin.Context, data any) {
	Success(c, http.StatusCreated, data, nil)
}

// NoContent 返回 204 响应且无 body。
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Fail 以统一格式返回错误结果。
func Fail(c *gin.Context, status int, code ErrorCode, message string, details any) {
	if status == 0 {
		status = http.StatusInternalServerError
	}

	resp := Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
		},
	}
	if details != nil {
		resp.Error.Details = details
	}

	c.AbortWithStatusJSON(status, resp)
}

// FailWithError 将系统错误映射到统一错误码；exposeDetail 为 false 时只返回通用描述。
func FailWithError(c *gin.Context, status int, err error, fallback ErrorCode, exposeDetail bool) {
	code := fallback
	if code == "" {
		code = ErrInternal
	}
	message := http.StatusText(status)
	if err != nil && exposeDetail {
		Fail(c, status, code, message, err.Error())
		return
	}
	Fail(c, status, code, message, nil)
}
