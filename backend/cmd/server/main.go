/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-06 19:55:11
 * @FilePath: \shift-handover-log\backend\cmd\server\main.go
 * @LastEditTime: 2026-10-10 10:02:16
 */
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shift-handover-log/backend/internal/app"
	"shift-handover-log/backend/internal/bootstrap"
	appLogger "shift-handover-log/backend/internal/infra/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := appLogger.Init(); err != nil {
		panic(err)
	}
	defer appLogger.Sync()
	logger := appLogger.S().With("component", "main")

	resources, err := app.InitResources(ctx, appLogger.S())
	if err != nil {
		logger.Fatalw("init resources failed", "error", err)
	}
	defer func() {
		if err := resources.Close(); err != nil {
			logger.Warnw("resource cleanup error", "error", err)
		}
	}()

	application, err := bootstrap.BuildApplication(ctx, appLogger.S(), resources, bootstrap.Options{})
	if err != nil {
		logger.Fatalw("build application failed", "error", err)
	}

	application.Processor.Start(ctx)
	defer application.Processor.Stop()

	srv := &http.Server{
		Addr:              ":" + resources.Server.Port,
		Handler:           application.Router,
		ReadHeaderTimeout: resources.Server.ReadHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infow("http server listening", "addr", srv.Addr, "mode", resources.Flags.Mode, "env", resources.Flags.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Infow("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logger.Errorw("http server stopped", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("graceful shutdown failed", "error", err)
	}
}
