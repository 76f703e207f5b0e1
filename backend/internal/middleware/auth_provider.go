package middleware

import "github.com/gin-gonic/gin"

// Authenticator 抽象鉴权中间件，实现 Handle() 的结构体即可插入路由。
type Authenticator interface {
	Handle() gin.HandlerFunc
}

// PassThrough 不做任何校验，用于未开启写操作鉴权时的日志写路由。
type PassThrough struct{}

// Handle 实现 Authenticator。
func (PassThrough) Handle() gin.HandlerFunc {
	return func(c *gin.Context) { c.Next() }
}
