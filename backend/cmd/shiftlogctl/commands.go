package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"shift-handover-log/backend/internal/app"
	"shift-handover-log/backend/internal/bootstrap"
	"shift-handover-log/backend/internal/domain/shiftlog"
	"shift-handover-log/backend/internal/repository"
	usersvc "shift-handover-log/backend/internal/service/user"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Release every due reminder now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withResources(cmd, func(ctx context.Context, res *app.Resources, logger *zap.SugaredLogger) error {
				result, err := bootstrap.NewProcessor(res, logger).RunOnce(ctx)
				if result.Skipped {
					fmt.Fprintln(cmd.OutOrStdout(), "another instance holds the sweep lease, nothing done")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "due=%d released=%d\n", result.Due, result.Released)
				return err
			})
		},
	}
}

// exportDocument 是 export 命令输出的 JSON 结构，条目保持存储原样（不推导有效状态）。
type exportDocument struct {
	ExportedAt     time.Time           `json:"exported_at"`
	IncludeDeleted bool                `json:"include_deleted"`
	Count          int                 `json:"count"`
	Entries        []shiftlog.LogEntry `json:"entries"`
}

type entryLister interface {
	ListAll(ctx context.Context, includeDeleted bool) ([]shiftlog.LogEntry, error)
}

func newExportCmd() *cobra.Command {
	var (
		output         string
		includeDeleted bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump stored log entries as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withResources(cmd, func(ctx context.Context, res *app.Resources, logger *zap.SugaredLogger) error {
				var w io.Writer = cmd.OutOrStdout()
				if output != "" && output != "-" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("create output file: %w", err)
					}
					defer f.Close()
					w = f
				}
				count, err := writeExport(ctx, repository.NewLogEntryRepository(res.DB), w, includeDeleted, time.Now())
				if err != nil {
					return err
				}
				logger.Infow("export finished", "entries", count, "output", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&includeDeleted, "include-deleted", false, "include soft-deleted entries")
	return cmd
}

func writeExport(ctx context.Context, store entryLister, w io.Writer, includeDeleted bool, now time.Time) (int, error) {
	entries, err := store.ListAll(ctx, includeDeleted)
	if err != nil {
		return 0, fmt.Errorf("list entries: %w", err)
	}
	if entries == nil {
		entries = []shiftlog.LogEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	doc := exportDocument{
		ExportedAt:     now.UTC(),
		IncludeDeleted: includeDeleted,
		Count:          len(entries),
		Entries:        entries,
	}
	if err := enc.Encode(doc); err != nil {
		return 0, fmt.Errorf("encode export: %w", err)
	}
	return len(entries), nil
}

func newSeedUsersCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "seed-users",
		Short: "Create the built-in admin and FO accounts if missing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withResources(cmd, func(ctx context.Context, res *app.Resources, logger *zap.SugaredLogger) error {
				if password == "" {
					password = res.Server.SeedPassword
				}
				svc := usersvc.NewService(repository.NewUserRepository(res.DB), nil, logger)
				created, err := svc.SeedDefaults(ctx, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %d user(s)\n", created)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "initial password (default SEED_DEFAULT_PASSWORD)")
	return cmd
}
