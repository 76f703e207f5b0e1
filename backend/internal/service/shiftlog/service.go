/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-03 15:02:18
 * @FilePath: \shift-handover-log\backend\internal\service\shiftlog\service.go
 * @LastEditTime: 2026-10-08 10:36:41
 */
package shiftlog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "shift-handover-log/backend/internal/domain/shiftlog"
	"shift-handover-log/backend/internal/infra/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrEntryNotFound 表示日志不存在或已被删除。
var ErrEntryNotFound = errors.New("log entry not found")

// Store 是服务依赖的存储能力，由 repository.LogEntryRepository 实现。
type Store interface {
	Insert(ctx context.Context, entry *domain.LogEntry) error
	FindByID(ctx context.Context, id uint) (*domain.LogEntry, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]any) (*domain.LogEntry, error)
	SoftDelete(ctx context.Context, id uint) error
	ListMatching(ctx context.Context, filter domain.Filter, now time.Time, limit, offset int) ([]domain.LogEntry, error)
	CountMatching(ctx context.Context, filter domain.Filter, now time.Time) (int64, error)
}

// Sanitizer 清洗富文本正文。
type Sanitizer interface {
	Sanitize(raw string) string
	VisibleLength(raw string) int
}

// Journal 接收新建日志的纯文本副本。
type Journal interface {
	Append(entry domain.LogEntry) error
}

// JournalSwitch 返回当前是否开启每日日记，通常由站点配置提供。
type JournalSwitch interface {
	DailyLogsEnabled() bool
}

// Config 汇总服务的可选依赖。
type Config struct {
	Journal       Journal
	JournalSwitch JournalSwitch
	Clock         func() time.Time
}

// Service 负责日志的校验、写入与查询。
type Service struct {
	store     Store
	sanitizer Sanitizer
	journal   Journal
	journalOn JournalSwitch
	clock     func() time.Time
	logger    *zap.SugaredLogger
}

// NewService 构造日志服务。
func NewService(store Store, sanitizer Sanitizer, logger *zap.SugaredLogger, cfg Config) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		store:     store,
		sanitizer: sanitizer,
		journal:   cfg.Journal,
		journalOn: cfg.JournalSwitch,
		clock:     clock,
		logger:    logger.With("component", "shiftlog.service"),
	}
}

// Entry 是返回给客户端的日志，附带按当前时间推导的归档状态。
type Entry struct {
	domain.LogEntry
	EffectiveArchived bool `json:"effective_archived"`
}

// CreateInput 描述新建日志的请求字段，指针为空表示未提供。
type CreateInput struct {
	LogDate          string
	ShortDescription string
	Note             string
	WorkerName       string
	Color            *string
	IsArchived       *bool
	ReminderDate     *string
}

// ReminderPatch 表示更新请求中的 reminder_date：
// Present=false 不修改；Present=true 且 Value 为空表示清除；否则设置新的提醒。
type ReminderPatch struct {
	Present bool
	Value   string
}

// UpdateInput 描述部分更新，只有非空字段参与校验与写入。
type UpdateInput struct {
	LogDate          *string
	ShortDescription *string
	Note             *string
	WorkerName       *string
	Color            *string
	IsArchived       *bool
	Reminder         ReminderPatch
}

func (s *Service) now() time.Time {
	return domain.NormalizeTime(s.clock())
}

func (s *Service) toEntry(e domain.LogEntry, now time.Time) Entry {
	return Entry{LogEntry: e, EffectiveArchived: domain.EffectiveArchived(e, now)}
}

// Get 返回单条日志。
func (s *Service) Get(ctx context.Context, id uint) (Entry, error) {
	entry, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Entry{}, s.translate(err, "load entry")
	}
	return s.toEntry(*entry, s.now()), nil
}

// Create 校验并写入新日志；带未来提醒的日志自动归档。
func (s *Service) Create(ctx context.Context, in CreateInput) (Entry, error) {
	now := s.now()
	errs := fieldErrors{}

	entry := domain.LogEntry{
		LogDate:          s.validateLogDate(errs, in.LogDate),
		ShortDescription: s.validateShortDescription(errs, in.ShortDescription),
		Note:             s.validateNote(errs, in.Note),
		WorkerName:       validateWorkerName(errs, in.WorkerName),
	}
	if in.Color != nil {
		entry.Color = validateColor(errs, *in.Color)
	}
	if in.ReminderDate != nil && strings.TrimSpace(*in.ReminderDate) != "" {
		reminder := validateReminder(errs, *in.ReminderDate, now)
		entry.ReminderDate = &reminder
		entry.IsArchived = true
	} else if in.IsArchived != nil {
		entry.IsArchived = *in.IsArchived
	}
	if err := errs.err(); err != nil {
		metrics.RecordLogMutation("create", "invalid")
		return Entry{}, err
	}

	if err := s.store.Insert(ctx, &entry); err != nil {
		metrics.RecordLogMutation("create", "error")
		return Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	metrics.RecordLogMutation("create", "ok")
	s.appendJournal(entry)

	return s.toEntry(entry, now), nil
}

// Update 按请求中出现的字段部分更新日志。
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (Entry, error) {
	now := s.now()
	errs := fieldErrors{}
	fields := map[string]any{}

	if in.LogDate != nil {
		if t, ok := ParseTimestamp(*in.LogDate); ok {
			fields["log_date"] = t
		} else {
			errs.add("log_date", "Invalid date format")
		}
	}
	if in.ShortDescription != nil {
		fields["short_description"] = s.validateShortDescription(errs, *in.ShortDescription)
	}
	if in.Note != nil {
		fields["note"] = s.validateNote(errs, *in.Note)
	}
	if in.WorkerName != nil {
		fields["worker_name"] = validateWorkerName(errs, *in.WorkerName)
	}
	if in.Color != nil {
		fields["color"] = validateColor(errs, *in.Color)
	}

	switch {
	case in.Reminder.Present && strings.TrimSpace(in.Reminder.Value) != "":
		fields["reminder_date"] = validateReminder(errs, in.Reminder.Value, now)
		fields["is_archived"] = true
	case in.Reminder.Present:
		fields["reminder_date"] = nil
		if in.IsArchived != nil {
			fields["is_archived"] = *in.IsArchived
		}
	case in.IsArchived != nil:
		fields["is_archived"] = *in.IsArchived
	}

	if err := errs.err(); err != nil {
		metrics.RecordLogMutation("update", "invalid")
		return Entry{}, err
	}
	return s.apply(ctx, "update", id, fields, now)
}

// SetArchived 直接设置归档标记，不修改提醒。
// 未来提醒仍存在时，取消归档后日志依旧出现在归档视图中。
func (s *Service) SetArchived(ctx context.Context, id uint, archived bool) (Entry, error) {
	return s.apply(ctx, "archive", id, map[string]any{"is_archived": archived}, s.now())
}

// SetReminder 设置未来提醒并归档；空值等同于清除提醒。
func (s *Service) SetReminder(ctx context.Context, id uint, raw string) (Entry, error) {
	if strings.TrimSpace(raw) == "" {
		return s.ClearReminder(ctx, id)
	}
	now := s.now()
	errs := fieldErrors{}
	reminder := validateReminder(errs, raw, now)
	if err := errs.err(); err != nil {
		metrics.RecordLogMutation("set_reminder", "invalid")
		return Entry{}, err
	}
	return s.apply(ctx, "set_reminder", id, map[string]any{
		"reminder_date": reminder,
		"is_archived":   true,
	}, now)
}

// ClearReminder 清除提醒，归档标记保持存储值。
func (s *Service) ClearReminder(ctx context.Context, id uint) (Entry, error) {
	return s.apply(ctx, "clear_reminder", id, map[string]any{"reminder_date": nil}, s.now())
}

// Delete 软删除日志，删除后不可恢复。
func (s *Service) Delete(ctx context.Context, id uint) error {
	if err := s.store.SoftDelete(ctx, id); err != nil {
		metrics.RecordLogMutation("delete", resultLabel(err))
		return s.translate(err, "delete entry")
	}
	metrics.RecordLogMutation("delete", "ok")
	return nil
}

func (s *Service) apply(ctx context.Context, operation string, id uint, fields map[string]any, now time.Time) (Entry, error) {
	fields["updated_at"] = now
	updated, err := s.store.UpdateFields(ctx, id, fields)
	if err != nil {
		metrics.RecordLogMutation(operation, resultLabel(err))
		return Entry{}, s.translate(err, operation+" entry")
	}
	metrics.RecordLogMutation(operation, "ok")
	return s.toEntry(*updated, now), nil
}

func (s *Service) appendJournal(entry domain.LogEntry) {
	if s.journal == nil || s.journalOn == nil || !s.journalOn.DailyLogsEnabled() {
		return
	}
	if err := s.journal.Append(entry); err != nil {
		s.logger.Warnw("append daily journal failed", "entry_id", entry.ID, "error", err)
	}
}

func (s *Service) translate(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrEntryNotFound
	}
	return fmt.Errorf("%s: %w", action, err)
}

func resultLabel(err error) string {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "not_found"
	}
	return "error"
}
