package shiftlog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "shift-handover-log/backend/internal/domain/shiftlog"
)

const (
	// DefaultPageSize 列表默认每页条数。
	DefaultPageSize = 20
	// MaxPageSize 单页上限。
	MaxPageSize = 100
)

// ListQuery 是列表接口的原始查询参数，非法值不会导致请求失败。
type ListQuery struct {
	Search     string
	WorkerName string
	StartDate  string
	EndDate    string
	Archived   string
	Page       string
	Limit      string
}

// ListResult 是一页查询结果。
type ListResult struct {
	Entries     []Entry
	CurrentPage int
	TotalPages  int
	Total       int64
}

// List 按有效归档状态、过滤条件与分页返回日志。
// 计数与列表使用同一组条件。
func (s *Service) List(ctx context.Context, q ListQuery) (ListResult, error) {
	now := s.now()
	page := positiveInt(q.Page, 1)
	limit := positiveInt(q.Limit, DefaultPageSize)
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	filter, ok := buildFilter(q)
	if !ok {
		return ListResult{Entries: []Entry{}, CurrentPage: page}, nil
	}

	total, err := s.store.CountMatching(ctx, filter, now)
	if err != nil {
		return ListResult{}, fmt.Errorf("count entries: %w", err)
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	result := ListResult{Entries: []Entry{}, CurrentPage: page, TotalPages: totalPages, Total: total}
	// 超出末页直接返回空页；page 不大于 totalPages 时 offset 不会溢出。
	if page > totalPages {
		return result, nil
	}

	rows, err := s.store.ListMatching(ctx, filter, now, limit, (page-1)*limit)
	if err != nil {
		return ListResult{}, fmt.Errorf("list entries: %w", err)
	}
	for _, row := range rows {
		result.Entries = append(result.Entries, s.toEntry(row, now))
	}
	return result, nil
}

// buildFilter 把原始参数转换为过滤条件；日期无法解析或区间颠倒时 ok 为 false，结果应为空。
func buildFilter(q ListQuery) (domain.Filter, bool) {
	filter := domain.Filter{
		View:       domain.ParseView(q.Archived),
		Search:     strings.TrimSpace(q.Search),
		WorkerName: strings.ToUpper(strings.TrimSpace(q.WorkerName)),
	}

	if raw := strings.TrimSpace(q.StartDate); raw != "" {
		from, ok := ParseTimestamp(raw)
		if !ok {
			return filter, false
		}
		filter.From = &from
	}
	if raw := strings.TrimSpace(q.EndDate); raw != "" {
		to, ok := ParseTimestamp(raw)
		if !ok {
			return filter, false
		}
		// 只给日期时覆盖当天全部时间。
		if isDateOnly(raw) {
			to = to.Add(24*time.Hour - time.Second)
		}
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, false
	}
	return filter, true
}

func positiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
