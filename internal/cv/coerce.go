package cv

import (
	"fmt"
	"strings"
)

// 本文件是字段形态归一工具：AI 输出的列表字段在摄入时转成
// 单一展示字符串，渲染时再用 SplitCommaList 还原。

// CoerceBullets 将列表形态转为逐行带符号的展示字符串：
// ["Led X","Shipped Y"] → "• Led X\n• Shipped Y"。
// 已是字符串的输入原样通过，不做二次转换。
func CoerceBullets(v any) string {
	if items, ok := asStringSlice(v); ok {
		if len(items) == 0 {
			return ""
		}
		return "• " + strings.Join(items, "\n• ")
	}
	return asString(v)
}

// CoerceCommaList 将列表形态转为逗号分隔的展示字符串：
// ["Python","Go"] → "Python, Go"。已是字符串的输入原样通过。
func CoerceCommaList(v any) string {
	if items, ok := asStringSlice(v); ok {
		return strings.Join(items, ", ")
	}
	return asString(v)
}

// SplitCommaList 是摄入拼接的逆操作，渲染时每次新鲜执行：
// "Python, Go, Rust" → ["Python","Go","Rust"]。空白项被丢弃。
func SplitCommaList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// EnsureHash 保证颜色以单个 "#" 开头（存储形态），空串原样返回。
func EnsureHash(color string) string {
	if color == "" {
		return ""
	}
	return "#" + strings.TrimLeft(color, "#")
}

func asStringSlice(v any) ([]string, bool) {
	switch items := v.(type) {
	case []string:
		return items, true
	case []any:
		out := make([]string, 0, len(items))
		for _, it := range items {
			s := asString(it)
			if strings.TrimSpace(s) == "" {
				continue
			}
			out = append(out, strings.TrimSpace(s))
		}
		return out, true
	default:
		return nil, false
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", s), "0"), ".")
	case bool:
		if s {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}
