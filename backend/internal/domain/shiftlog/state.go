package shiftlog

import (
	"strings"
	"time"
)

// View 表示列表查询时选择的视图。
type View int

const (
	// ViewActive 展示当前有效状态为“未归档”的日志（默认）。
	ViewActive View = iota
	// ViewArchived 展示当前有效状态为“已归档”的日志。
	ViewArchived
)

// ParseView 将 archived 查询参数转换为视图，仅 "true"/"1" 表示归档视图，其余一律回落为活动视图。
func ParseView(raw string) View {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1":
		return ViewArchived
	default:
		return ViewActive
	}
}

func (v View) String() string {
	if v == ViewArchived {
		return "archived"
	}
	return "active"
}

// Archived 返回该视图对应的有效归档值。
func (v View) Archived() bool {
	return v == ViewArchived
}

// EffectiveArchived 推导某条日志在 now 时刻应展示的归档状态：
//   - 提醒时间在未来：一律视为归档，不管存储的 is_archived；
//   - 提醒时间已到（<= now）：一律视为活动，即使提醒处理器尚未清理；
//   - 没有提醒：以存储的 is_archived 为准。
//
// repository 中的 SQL 条件必须与这里保持一致。
func EffectiveArchived(e LogEntry, now time.Time) bool {
	if e.ReminderDate != nil {
		return e.ReminderDate.After(now)
	}
	return e.IsArchived
}

// ReminderDue 判断提醒是否已到期，到期的日志会被提醒处理器激活。
func ReminderDue(e LogEntry, now time.Time) bool {
	return e.ReminderDate != nil && !e.ReminderDate.After(now)
}

// VisibleIn 判断日志是否出现在指定视图中，已软删除的日志不出现在任何视图。
func VisibleIn(e LogEntry, view View, now time.Time) bool {
	if e.IsDeleted {
		return false
	}
	return EffectiveArchived(e, now) == view.Archived()
}
