package handler

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

func extractUserID(c *gin.Context) (uint, bool) {
	val, ok := c.Get("userID")
	if !ok {
		return 0, false
	}
	switch id := val.(type) {
	case uint:
		return id, true
	case uint64:
		return uint(id), true
	case int:
		if id < 0 {
			return 0, false
		}
		return uint(id), true
	case int64:
		if id < 0 {
			return 0, false
		}
		return uint(id), true
	default:
		return 0, false
	}
}

func isAdmin(c *gin.Context) bool {
	val, ok := c.Get("isAdmin")
	if !ok {
		return false
	}
	b, _ := val.(bool)
	return b
}

// parseUintParam 解析正整数路径参数。
func parseUintParam(c *gin.Context, name string) (uint, error) {
	val := c.Param(name)
	if val == "" {
		return 0, fmt.Errorf("missing path parameter: %s", name)
	}
	parsed, err := strconv.ParseUint(val, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(parsed), nil
}
