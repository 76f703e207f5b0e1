package shiftlog

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Color 是日志的展示颜色标签，取值封闭。
type Color string

const (
	ColorNone       Color = ""
	ColorGreen      Color = "green"
	ColorYellow     Color = "yellow"
	ColorLightBlue  Color = "light-blue"
	ColorLightGreen Color = "light-green"
	ColorRed        Color = "red"
)

var knownColors = map[Color]struct{}{
	ColorNone:       {},
	ColorGreen:      {},
	ColorYellow:     {},
	ColorLightBlue:  {},
	ColorLightGreen: {},
	ColorRed:        {},
}

// ParseColor 校验并返回颜色枚举，"none" 与空串都视为无颜色。
func ParseColor(raw string) (Color, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "none" {
		value = ""
	}
	c := Color(value)
	if _, ok := knownColors[c]; !ok {
		return ColorNone, fmt.Errorf("unknown color %q", raw)
	}
	return c, nil
}

// String 返回对外展示的名称。
func (c Color) String() string {
	if c == ColorNone {
		return "none"
	}
	return string(c)
}

// MarshalJSON 无颜色时输出 null，与历史接口保持一致。
func (c Color) MarshalJSON() ([]byte, error) {
	if c == ColorNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(c))
}

// UnmarshalJSON 接受 null、"none" 与合法颜色名。
func (c *Color) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = ColorNone
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseColor(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value 实现 driver.Valuer。
func (c Color) Value() (driver.Value, error) {
	return string(c), nil
}

// Scan 实现 sql.Scanner，兼容 NULL 与未知的历史值。
func (c *Color) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*c = ColorNone
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("scan color: unsupported type %T", src)
	}
	parsed, err := ParseColor(raw)
	if err != nil {
		*c = ColorNone
		return nil
	}
	*c = parsed
	return nil
}
