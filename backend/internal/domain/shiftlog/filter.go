package shiftlog

import (
	"strings"
	"time"
)

// Filter 是列表查询的条件集合，各条件之间为 AND 关系。
type Filter struct {
	View       View
	Search     string     // 标题、正文、作者代码的大小写不敏感子串
	WorkerName string     // 作者代码精确匹配（已转大写）
	From       *time.Time // log_date 下界（含）
	To         *time.Time // log_date 上界（含）
}

// FoldSearch 统一检索词与检索列的大小写折叠。
// 折叠在 Go 中完成，SQLite 的 LOWER 只处理 ASCII。
func FoldSearch(s string) string {
	return strings.ToLower(s)
}

// BuildSearchText 拼出 search_text 列的内容，plainNote 为去掉标签后的正文。
func BuildSearchText(shortDescription, plainNote, workerName string) string {
	return FoldSearch(strings.Join([]string{shortDescription, plainNote, workerName}, "\n"))
}
