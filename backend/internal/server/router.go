package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"shift-handover-log/backend/internal/handler"
	response "shift-handover-log/backend/internal/infra/common"
	"shift-handover-log/backend/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	LogHandler      *handler.LogHandler
	AuthHandler     *handler.AuthHandler
	UserHandler     *handler.UserHandler
	SettingsHandler *handler.SettingsHandler
	HealthHandler   *handler.HealthHandler
	AuthMW          middleware.Authenticator
	// LogWriteMW 保护日志写接口，未开启写鉴权时为 middleware.PassThrough。
	LogWriteMW     middleware.Authenticator
	AllowedOrigins []string
	StaticFS       http.FileSystem
	DisableMetrics bool
}

// NewRouter 构建应用的 Gin Engine，汇总所有 REST 接口与公共中间件配置。
func NewRouter(opts RouterOptions) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// gin 中间件配置
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/api/health", "/metrics"},
		Formatter: gin.LogFormatter(func(params gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s\" %d %s\n",
				params.ClientIP,
				params.TimeStamp.Format(time.RFC3339),
				params.Method,
				params.Path,
				params.StatusCode,
				params.Latency,
			)
		}),
	}))

	if !opts.DisableMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	authMW := opts.AuthMW
	if authMW == nil {
		authMW = middleware.PassThrough{}
	}
	writeMW := opts.LogWriteMW
	if writeMW == nil {
		writeMW = middleware.PassThrough{}
	}

	api := r.Group("/api")
	{
		if opts.HealthHandler != nil {
			api.GET("/health", opts.HealthHandler.Check)
		}

		if opts.LogHandler != nil {
			logs := api.Group("/logs")
			logs.GET("", opts.LogHandler.List)
			logs.GET("/:id", opts.LogHandler.Get)

			writes := logs.Group("")
			writes.Use(writeMW.Handle())
			writes.POST("", opts.LogHandler.Create)
			writes.PUT("/:id", opts.LogHandler.Update)
			writes.PATCH("/:id/archive", opts.LogHandler.Archive)
			writes.PATCH("/:id/reminder", opts.LogHandler.SetReminder)
			writes.PATCH("/:id/reminder/clear", opts.LogHandler.ClearReminder)
			writes.DELETE("/:id", opts.LogHandler.Delete)
		}

		if opts.AuthHandler != nil {
			authGroup := api.Group("/auth")
			authGroup.POST("/login", opts.AuthHandler.AdminLogin)
			authGroup.POST("/user/login", opts.AuthHandler.UserLogin)

			// 以下接口需要携带令牌。
			protected := authGroup.Group("")
			protected.Use(authMW.Handle())
			protected.GET("/verify", opts.AuthHandler.Verify)
			protected.GET("/user/verify", opts.AuthHandler.VerifyUser)
			protected.POST("/change-password", opts.AuthHandler.ChangePassword)
			protected.POST("/logout", opts.AuthHandler.Logout)
		}

		// 用户管理只对管理员开放。
		if opts.UserHandler != nil {
			users := api.Group("/users")
			users.Use(authMW.Handle(), middleware.AdminOnly())
			users.GET("", opts.UserHandler.List)
			users.POST("", opts.UserHandler.Create)
			users.PUT("/:id", opts.UserHandler.Update)
			users.DELETE("/:id", opts.UserHandler.Delete)
			users.POST("/:id/move", opts.UserHandler.Move)
			users.POST("/:id/send-password", opts.UserHandler.SendPassword)
		}

		if opts.SettingsHandler != nil {
			api.GET("/config", opts.SettingsHandler.Get)
			api.PUT("/config", authMW.Handle(), middleware.AdminOnly(), opts.SettingsHandler.Update)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		if opts.StaticFS == nil || strings.HasPrefix(c.Request.URL.Path, "/api/") || c.Request.Method != http.MethodGet {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound, "Route not found", nil)
			return
		}
		c.FileFromFS(c.Request.URL.Path, opts.StaticFS)
	})

	return r
}

// corsConfig 未配置白名单时只放行本机来源，便于本地开发。
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type", "Retry-After", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) > 0 {
		cfg.AllowOrigins = origins
		return cfg
	}
	cfg.AllowOriginFunc = func(origin string) bool {
		return strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")
	}
	return cfg
}
