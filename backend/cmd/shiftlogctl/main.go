// Command shiftlogctl 是交接班日志的运维工具：手动扫描提醒、导出原始数据、初始化默认账号。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"shift-handover-log/backend/internal/app"
	appLogger "shift-handover-log/backend/internal/infra/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shiftlogctl",
		Short:         "Maintenance commands for the shift handover log",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSweepCmd(), newExportCmd(), newSeedUsersCmd())
	return root
}

// withResources 打开与服务端相同的数据库和 Redis，执行 fn 后释放。
func withResources(cmd *cobra.Command, fn func(ctx context.Context, res *app.Resources, logger *zap.SugaredLogger) error) error {
	if _, err := appLogger.Init(); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer appLogger.Sync()
	logger := appLogger.S().With("component", "shiftlogctl", "command", cmd.Name())

	ctx := cmd.Context()
	res, err := app.InitResources(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warnw("resource cleanup error", "error", err)
		}
	}()
	return fn(ctx, res, logger)
}
