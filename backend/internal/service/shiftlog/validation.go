package shiftlog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	domain "shift-handover-log/backend/internal/domain/shiftlog"
	"shift-handover-log/backend/internal/infra/sanitize"
)

// MsgReminderNotFuture 是提醒时间不在未来时返回给调用方的提示。
const MsgReminderNotFuture = "reminder_date must be in the future"

var workerNamePattern = regexp.MustCompile(`^[A-Z]{1,3}$`)

// acceptedDateLayouts 无时区的格式按 UTC 解析。
var acceptedDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
}

// ValidationError 汇总字段级校验失败信息。
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, exists := f[field]; !exists {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: map[string]string(f)}
}

// ParseTimestamp 解析客户端传入的时间，结果统一为 UTC 秒精度。
func ParseTimestamp(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return domain.NormalizeTime(t), true
		}
	}
	return time.Time{}, false
}

func isDateOnly(raw string) bool {
	_, err := time.Parse(time.DateOnly, strings.TrimSpace(raw))
	return err == nil
}

func (s *Service) validateLogDate(errs fieldErrors, raw string) time.Time {
	if strings.TrimSpace(raw) == "" {
		errs.add("log_date", "Date is required")
		return time.Time{}
	}
	t, ok := ParseTimestamp(raw)
	if !ok {
		errs.add("log_date", "Invalid date format")
	}
	return t
}

func (s *Service) validateShortDescription(errs fieldErrors, raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		errs.add("short_description", "Short description is required")
		return ""
	}
	if utf8.RuneCountInString(trimmed) > domain.MaxShortDescriptionLength {
		errs.add("short_description", fmt.Sprintf("Short description must be %d characters or less", domain.MaxShortDescriptionLength))
		return ""
	}
	return sanitize.StripAngles(trimmed)
}

func (s *Service) validateNote(errs fieldErrors, raw string) string {
	if strings.TrimSpace(raw) == "" {
		errs.add("note", "Note is required")
		return ""
	}
	clean := s.sanitizer.Sanitize(raw)
	visible := s.sanitizer.VisibleLength(clean)
	switch {
	case visible == 0:
		errs.add("note", "Note cannot be empty (HTML tags only)")
	case visible > domain.MaxNoteVisibleLength:
		errs.add("note", fmt.Sprintf("Note must be %d characters or less (currently %d)", domain.MaxNoteVisibleLength, visible))
	}
	return clean
}

func validateWorkerName(errs fieldErrors, raw string) string {
	name := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case name == "":
		errs.add("worker_name", "Worker name is required")
	case utf8.RuneCountInString(name) > domain.MaxWorkerNameLength:
		errs.add("worker_name", "Worker name must be 1 to 3 characters")
	case !workerNamePattern.MatchString(name):
		errs.add("worker_name", "Worker name must contain only letters (A-Z)")
	}
	return name
}

func validateColor(errs fieldErrors, raw string) domain.Color {
	c, err := domain.ParseColor(raw)
	if err != nil {
		errs.add("color", "Color must be one of none, green, yellow, light-blue, light-green, red")
	}
	return c
}

// validateReminder 解析提醒时间并要求严格晚于 now（均截断到秒后比较）。
func validateReminder(errs fieldErrors, raw string, now time.Time) time.Time {
	t, ok := ParseTimestamp(raw)
	if !ok {
		errs.add("reminder_date", "Invalid date format")
		return time.Time{}
	}
	if !t.After(domain.NormalizeTime(now)) {
		errs.add("reminder_date", MsgReminderNotFuture)
	}
	return t
}
