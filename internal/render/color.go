package render

import (
	"regexp"
	"strings"
)

// 颜色前缀契约：存储侧带 "#"（原生取色器需要），模板作者在 CSS 里
// 写的是裸 token。这里保证两边各自归一后，最终 CSS 中六位十六进制
// 颜色前恰好有一个 "#"。

var (
	accentAssignRe = regexp.MustCompile(`:\s*\{\{accent_color\}\}`)
	textAssignRe   = regexp.MustCompile(`:\s*\{\{text_color\}\}`)
	hashTokenRe    = regexp.MustCompile(`#{2,}\{\{`)
	multiHashRe    = regexp.MustCompile(`#{2,}`)
)

// StripHash 去掉颜色里所有 "#"，得到渲染视图用的裸形态。
func StripHash(color string) string {
	return strings.ReplaceAll(color, "#", "")
}

// RewriteColorTokens 在*未渲染*的模板 CSS 源上做文本改写：
// 形如 `prop: {{accent_color}}` 的赋值补上 "#" 前缀。已带前缀的
// 位置不会重复加（正则要求 token 紧跟冒号与空白）。
// `--primary:` / `--text:` 等自定义属性形式同样被通用规则覆盖。
func RewriteColorTokens(css string) string {
	css = accentAssignRe.ReplaceAllString(css, ": #{{accent_color}}")
	css = textAssignRe.ReplaceAllString(css, ": #{{text_color}}")
	css = hashTokenRe.ReplaceAllString(css, "#{{")
	return css
}

// CollapseHashes 渲染后兜底：把历史坏数据造成的 "##..." 压成单个 "#"。
func CollapseHashes(css string) string {
	return multiHashRe.ReplaceAllString(css, "#")
}
