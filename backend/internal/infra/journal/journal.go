package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"shift-handover-log/backend/internal/domain/shiftlog"
)

const separatorWidth = 60

// TextExtractor 把富文本转换为纯文本。
type TextExtractor interface {
	PlainText(raw string) string
}

// DailyJournal 把新建的日志以纯文本追加到按天滚动的文件 logs_YYYY-MM-DD.txt。
type DailyJournal struct {
	dir  string
	text TextExtractor
	now  func() time.Time
	mu   sync.Mutex
}

// New 创建日记写入器，dir 不存在时在首次写入时创建。
func New(dir string, text TextExtractor, now func() time.Time) *DailyJournal {
	if now == nil {
		now = time.Now
	}
	return &DailyJournal{dir: dir, text: text, now: now}
}

// Append 追加一条记录。
func (j *DailyJournal) Append(entry shiftlog.LogEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}
	f, err := os.OpenFile(j.PathFor(j.now()), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(j.format(entry) + "\n\n"); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

// PathFor 返回某天对应的文件路径（按 UTC 日期）。
func (j *DailyJournal) PathFor(day time.Time) string {
	return filepath.Join(j.dir, fmt.Sprintf("logs_%s.txt", day.UTC().Format("2006-01-02")))
}

func (j *DailyJournal) format(entry shiftlog.LogEntry) string {
	note := entry.Note
	if j.text != nil {
		note = j.text.PlainText(note)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", entry.LogDate.UTC().Format("02/01/2006, 15:04:05"), entry.ShortDescription)
	fmt.Fprintf(&b, "Worker: %s\n", entry.WorkerName)
	fmt.Fprintf(&b, "Note: %s\n", note)
	if entry.IsArchived {
		b.WriteString("(ARCHIVED)")
	}
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", separatorWidth))
	return b.String()
}
