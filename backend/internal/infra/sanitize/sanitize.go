package sanitize

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// safeStyleProperties 与前端富文本编辑器可产生的样式保持一致。
var safeStyleProperties = []string{
	"color", "background-color", "font-weight", "font-size", "text-decoration", "text-align",
	"margin", "padding", "border", "width", "height", "display",
}

// HTMLSanitizer 基于 bluemonday 白名单清洗日志正文。
type HTMLSanitizer struct {
	policy *bluemonday.Policy
	strict *bluemonday.Policy
}

// NewHTMLSanitizer 构造富文本清洗器。
func NewHTMLSanitizer() *HTMLSanitizer {
	policy := bluemonday.NewPolicy()
	policy.AllowElements("b", "i", "u", "ul", "ol", "li", "p", "br", "strong", "em", "div", "span", "code", "pre")
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).Globally()
	policy.AllowStyles(safeStyleProperties...).Globally()

	policy.AllowAttrs("href").OnElements("a")
	policy.AllowURLSchemes("http", "https", "mailto")
	policy.AllowRelativeURLs(true)
	policy.AllowAttrs("target").Matching(bluemonday.Paragraph).OnElements("a")
	policy.AllowAttrs("rel").Matching(bluemonday.SpaceSeparatedTokens).OnElements("a")
	policy.RequireNoReferrerOnFullyQualifiedLinks(true)

	return &HTMLSanitizer{policy: policy, strict: bluemonday.StrictPolicy()}
}

// Sanitize 移除白名单以外的标签、属性与危险协议。
func (s *HTMLSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(strings.TrimSpace(raw)))
}

// PlainText 去掉所有标签并还原实体，得到用户可见的文本。
func (s *HTMLSanitizer) PlainText(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.strict.Sanitize(raw)))
}

// VisibleLength 返回可见字符数（按 rune 计）。
func (s *HTMLSanitizer) VisibleLength(raw string) int {
	return utf8.RuneCountInString(s.PlainText(raw))
}

// StripAngles 去掉纯文本字段中的尖括号。
func StripAngles(raw string) string {
	return strings.NewReplacer("<", "", ">", "").Replace(raw)
}
