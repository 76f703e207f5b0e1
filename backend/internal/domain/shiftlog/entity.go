/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-02 09:12:40
 * @FilePath: \shift-handover-log\backend\internal\domain\shiftlog\entity.go
 * @LastEditTime: 2026-10-02 09:12:40
 */
package shiftlog

import "time"

const (
	// MaxShortDescriptionLength 标题允许的最大字符数。
	MaxShortDescriptionLength = 50
	// MaxNoteVisibleLength 正文去掉标签后的最大可见字符数。
	MaxNoteVisibleLength = 1000
	// MaxWorkerNameLength 作者代码最多 3 个字母。
	MaxWorkerNameLength = 3
)

// LogEntry 对应一条交接班日志记录。
type LogEntry struct {
	ID               uint       `gorm:"primaryKey" json:"id"`                                           // 主键 ID
	LogDate          time.Time  `gorm:"not null;index:idx_shift_logs_log_date" json:"log_date"`          // 事件发生时间（用户选择，非创建时间）
	ShortDescription string     `gorm:"size:50;not null" json:"short_description"`                      // 标题
	Note             string     `gorm:"type:text;not null" json:"note"`                                 // 已清洗的富文本正文
	WorkerName       string     `gorm:"size:3;not null;index:idx_shift_logs_worker_name" json:"worker_name"` // 作者代码（大写字母）
	Color            Color      `gorm:"size:20;default:''" json:"color"`                                // 展示颜色标签，无业务含义
	IsArchived       bool       `gorm:"default:false;index:idx_shift_logs_is_archived" json:"is_archived"`  // 持久化的归档标记
	IsDeleted        bool       `gorm:"default:false" json:"is_deleted"`                                // 软删除标记
	ReminderDate     *time.Time `json:"reminder_date"`                                                  // 提醒时间，为空表示未设置
	SearchText       string     `gorm:"type:text" json:"-"`                                             // 检索列：标题、纯文本正文、作者代码的小写拼接
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName 指定数据库表名。
func (LogEntry) TableName() string {
	return "shift_logs"
}

// HasReminder 判断是否挂有提醒。
func (e LogEntry) HasReminder() bool {
	return e.ReminderDate != nil
}

// NormalizeTime 把时间统一到 UTC 并截断到秒，保证 SQLite 文本比较与 MySQL DATETIME 比较结果一致。
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
