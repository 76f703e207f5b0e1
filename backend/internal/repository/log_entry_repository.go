/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-03 10:12:36
 * @FilePath: \shift-handover-log\backend\internal\repository\log_entry_repository.go
 * @LastEditTime: 2026-10-07 09:55:20
 */
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shift-handover-log/backend/internal/domain/shiftlog"
	"shift-handover-log/backend/internal/infra/sanitize"

	"gorm.io/gorm"
)

// likeEscaper 转义 LIKE 通配符，配合 ESCAPE '!' 使用。
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// searchableColumns 中任一列变化时需要重建 search_text。
var searchableColumns = []string{"short_description", "note", "worker_name"}

// LogEntryRepository 封装 shift_logs 表的访问，所有读操作都排除软删除的记录。
type LogEntryRepository struct {
	db        *gorm.DB
	plainText func(string) string
}

// NewLogEntryRepository 创建日志仓储实例。
func NewLogEntryRepository(db *gorm.DB) *LogEntryRepository {
	return &LogEntryRepository{db: db, plainText: sanitize.NewHTMLSanitizer().PlainText}
}

func (r *LogEntryRepository) searchTextFor(entry shiftlog.LogEntry) string {
	return shiftlog.BuildSearchText(entry.ShortDescription, r.plainText(entry.Note), entry.WorkerName)
}

// Insert 写入新日志，成功后 entry.ID 被回填。
func (r *LogEntryRepository) Insert(ctx context.Context, entry *shiftlog.LogEntry) error {
	entry.SearchText = r.searchTextFor(*entry)
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByID 查找未删除的日志，不存在或已删除时返回 gorm.ErrRecordNotFound。
func (r *LogEntryRepository) FindByID(ctx context.Context, id uint) (*shiftlog.LogEntry, error) {
	var entry shiftlog.LogEntry
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateFields 在一个事务里修改指定列并返回最新记录，文本列变化时同步重建 search_text。
// 已删除的记录不会被更新，此时返回 gorm.ErrRecordNotFound。
func (r *LogEntryRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) (*shiftlog.LogEntry, error) {
	var updated shiftlog.LogEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&shiftlog.LogEntry{}).
			Where("id = ? AND is_deleted = ?", id, false).
			Updates(fields)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("id = ?", id).First(&updated).Error; err != nil {
			return err
		}
		if !touchesSearchText(fields) {
			return nil
		}
		text := r.searchTextFor(updated)
		if text == updated.SearchText {
			return nil
		}
		// UpdateColumn 不会改写 updated_at。
		if err := tx.Model(&shiftlog.LogEntry{}).Where("id = ?", id).UpdateColumn("search_text", text).Error; err != nil {
			return err
		}
		updated.SearchText = text
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func touchesSearchText(fields map[string]any) bool {
	for _, column := range searchableColumns {
		if _, ok := fields[column]; ok {
			return true
		}
	}
	return false
}

// BackfillSearchText 为缺少 search_text 的旧记录补齐检索列，返回补齐的条数。
func (r *LogEntryRepository) BackfillSearchText(ctx context.Context) (int, error) {
	var pending []shiftlog.LogEntry
	err := r.db.WithContext(ctx).
		Where("search_text IS NULL OR search_text = ?", "").
		Order("id ASC").
		Find(&pending).Error
	if err != nil {
		return 0, err
	}
	for _, entry := range pending {
		err := r.db.WithContext(ctx).
			Model(&shiftlog.LogEntry{}).
			Where("id = ?", entry.ID).
			UpdateColumn("search_text", r.searchTextFor(entry)).Error
		if err != nil {
			return 0, fmt.Errorf("backfill entry %d: %w", entry.ID, err)
		}
	}
	return len(pending), nil
}

// SoftDelete 标记删除，已删除的记录再次删除返回 gorm.ErrRecordNotFound。
func (r *LogEntryRepository) SoftDelete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&shiftlog.LogEntry{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Update("is_deleted", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListMatching 按 log_date、id 倒序返回满足条件的一页日志。
func (r *LogEntryRepository) ListMatching(ctx context.Context, filter shiftlog.Filter, now time.Time, limit, offset int) ([]shiftlog.LogEntry, error) {
	var entries []shiftlog.LogEntry
	query := r.scope(ctx, filter, now).
		Order("log_date DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CountMatching 统计满足条件的日志数量，条件与 ListMatching 完全一致。
func (r *LogEntryRepository) CountMatching(ctx context.Context, filter shiftlog.Filter, now time.Time) (int64, error) {
	var total int64
	if err := r.scope(ctx, filter, now).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// ListDueReminders 返回提醒已到期、未删除日志的 ID。
func (r *LogEntryRepository) ListDueReminders(ctx context.Context, now time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&shiftlog.LogEntry{}).
		Where("reminder_date IS NOT NULL AND reminder_date <= ? AND is_deleted = ?", now, false).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ReleaseReminder 清除到期提醒并把日志恢复为活动状态。
// WHERE 条件重新校验到期，期间被改成未来时间的提醒不会被覆盖；返回是否发生了变更。
func (r *LogEntryRepository) ReleaseReminder(ctx context.Context, id uint, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&shiftlog.LogEntry{}).
		Where("id = ? AND is_deleted = ? AND reminder_date IS NOT NULL AND reminder_date <= ?", id, false, now).
		Updates(map[string]any{
			"reminder_date": nil,
			"is_archived":   false,
			"updated_at":    now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListAll 按 ID 顺序返回原始存储内容，供导出使用。
func (r *LogEntryRepository) ListAll(ctx context.Context, includeDeleted bool) ([]shiftlog.LogEntry, error) {
	var entries []shiftlog.LogEntry
	query := r.db.WithContext(ctx).Model(&shiftlog.LogEntry{}).Order("id ASC")
	if !includeDeleted {
		query = query.Where("is_deleted = ?", false)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// scope 构建列表与计数共用的查询条件。
// 有效归档 = (有提醒 且 提醒 > now) 或 (无提醒 且 is_archived)，与 shiftlog.EffectiveArchived 一致。
func (r *LogEntryRepository) scope(ctx context.Context, filter shiftlog.Filter, now time.Time) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&shiftlog.LogEntry{}).
		Where("is_deleted = ?", false)

	if filter.View.Archived() {
		query = query.Where("((reminder_date IS NOT NULL AND reminder_date > ?) OR (reminder_date IS NULL AND is_archived = ?))", now, true)
	} else {
		query = query.Where("((reminder_date IS NOT NULL AND reminder_date <= ?) OR (reminder_date IS NULL AND is_archived = ?))", now, false)
	}

	// search_text 写入时已按 FoldSearch 折叠，检索词同样折叠，不依赖数据库的 LOWER。
	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := "%" + likeEscaper.Replace(shiftlog.FoldSearch(term)) + "%"
		query = query.Where("search_text LIKE ? ESCAPE '!'", pattern)
	}
	if filter.WorkerName != "" {
		query = query.Where("worker_name = ?", filter.WorkerName)
	}
	if filter.From != nil {
		query = query.Where("log_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("log_date <= ?", *filter.To)
	}
	return query
}
