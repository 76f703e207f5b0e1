/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-06 20:51:28
 * @FilePath: \shift-handover-log\backend\internal\bootstrap\bootstrap.go
 * @LastEditTime: 2026-10-10 09:12:44
 */
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"shift-handover-log/backend/internal/app"
	"shift-handover-log/backend/internal/domain/shiftlog"
	"shift-handover-log/backend/internal/handler"
	"shift-handover-log/backend/internal/infra/journal"
	"shift-handover-log/backend/internal/infra/lock"
	"shift-handover-log/backend/internal/infra/metrics"
	"shift-handover-log/backend/internal/infra/ratelimit"
	"shift-handover-log/backend/internal/infra/sanitize"
	"shift-handover-log/backend/internal/infra/token"
	"shift-handover-log/backend/internal/middleware"
	"shift-handover-log/backend/internal/repository"
	"shift-handover-log/backend/internal/server"
	authsvc "shift-handover-log/backend/internal/service/auth"
	"shift-handover-log/backend/internal/service/reminder"
	settingsvc "shift-handover-log/backend/internal/service/settings"
	logsvc "shift-handover-log/backend/internal/service/shiftlog"
	usersvc "shift-handover-log/backend/internal/service/user"

	"go.uber.org/zap"
)

// Application 是装配完成的服务，Router 交给 http.Server，Processor 由调用方启动与停止。
type Application struct {
	Resources   *app.Resources
	LogSvc      *logsvc.Service
	AuthSvc     *authsvc.Service
	UserSvc     *usersvc.Service
	SettingsSvc *settingsvc.Service
	Processor   *reminder.Processor
	Router      http.Handler
}

// Options 允许测试替换时间源。
type Options struct {
	Clock func() time.Time
}

// BuildApplication 依赖注入：仓储 -> 服务 -> handler -> 路由。
func BuildApplication(ctx context.Context, logger *zap.SugaredLogger, resources *app.Resources, opts Options) (*Application, error) {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	cfg := resources.Server
	metrics.MustRegister()

	logRepo := repository.NewLogEntryRepository(resources.DB)
	if filled, err := logRepo.BackfillSearchText(ctx); err != nil {
		return nil, fmt.Errorf("backfill search text: %w", err)
	} else if filled > 0 {
		logger.Infow("search text backfilled", "entries", filled)
	}
	userRepo := repository.NewUserRepository(resources.DB)
	settingsRepo := repository.NewSettingsRepository(resources.DB)
	sanitizer := sanitize.NewHTMLSanitizer()

	settingsService := settingsvc.NewService(settingsRepo, sanitizer, logger)
	if err := settingsService.Load(ctx); err != nil {
		return nil, err
	}

	userService := usersvc.NewService(userRepo, nil, logger)
	if created, err := userService.SeedDefaults(ctx, cfg.SeedPassword); err != nil {
		return nil, fmt.Errorf("seed default users: %w", err)
	} else if created > 0 {
		logger.Warnw("default users created, change their passwords", "count", created)
	}

	logService := logsvc.NewService(logRepo, sanitizer, logger, logsvc.Config{
		Journal:       journal.New(cfg.JournalDir, sanitizer, clock),
		JournalSwitch: settingsService,
		Clock:         clock,
	})

	var (
		limiter     ratelimit.Limiter
		revocations token.RevocationStore
		locker      lock.Locker
	)
	if resources.Redis != nil {
		limiter = ratelimit.NewRedisLimiter(resources.Redis, cfg.Redis.LoginLimiterPrefix())
		revocations = token.NewRedisRevocationStore(resources.Redis, cfg.Redis.RevocationPrefix())
		locker = lock.NewRedisLocker(resources.Redis, cfg.Redis.KeyPrefix)
	} else {
		limiter = ratelimit.NewMemoryLimiter()
		revocations = token.NewMemoryRevocationStore()
		locker = lock.LocalLocker{}
	}

	tokens := token.NewJWTManager(cfg.JWTSecret).WithClock(clock)
	authService := authsvc.NewService(userRepo, tokens, revocations, limiter, settingsService, logger)
	authMiddleware := middleware.NewAuthMiddleware(authService, logger)

	var writeMW middleware.Authenticator = middleware.PassThrough{}
	if cfg.RequireAuthForWrites {
		writeMW = authMiddleware
	}

	processor := reminder.NewProcessor(logRepo, locker, reminder.Config{Interval: cfg.SweepInterval}, logger, clock)

	var static http.FileSystem
	if server.DirExists(cfg.StaticDir) {
		static = server.NewSPAFileSystem(cfg.StaticDir)
		logger.Infow("serving client build", "dir", cfg.StaticDir)
	}

	var pinger handler.Pinger
	if sqlDB, err := resources.DB.DB(); err == nil {
		pinger = sqlDB
	}

	router := server.NewRouter(server.RouterOptions{
		LogHandler:      handler.NewLogHandler(logService, !resources.Flags.IsProduction()),
		AuthHandler:     handler.NewAuthHandler(authService),
		UserHandler:     handler.NewUserHandler(userService),
		SettingsHandler: handler.NewSettingsHandler(settingsService),
		HealthHandler:   handler.NewHealthHandler(pinger),
		AuthMW:          authMiddleware,
		LogWriteMW:      writeMW,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		StaticFS:        static,
	})

	return &Application{
		Resources:   resources,
		LogSvc:      logService,
		AuthSvc:     authService,
		UserSvc:     userService,
		SettingsSvc: settingsService,
		Processor:   processor,
		Router:      router,
	}, nil
}

// NewProcessor 只装配提醒处理器，供命令行工具单独执行扫描。
func NewProcessor(resources *app.Resources, logger *zap.SugaredLogger) *reminder.Processor {
	var locker lock.Locker = lock.LocalLocker{}
	if resources.Redis != nil {
		locker = lock.NewRedisLocker(resources.Redis, resources.Server.Redis.KeyPrefix)
	}
	return reminder.NewProcessor(
		repository.NewLogEntryRepository(resources.DB),
		locker,
		reminder.Config{Interval: resources.Server.SweepInterval},
		logger,
		func() time.Time { return shiftlog.NormalizeTime(time.Now()) },
	)
}
