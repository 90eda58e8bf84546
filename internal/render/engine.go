package render

import (
	"fmt"
	"log/slog"

	"github.com/cbroglie/mustache"

	"cvforge/internal/cv"
)

// ContainerID 是预览容器的固定选择器作用域。局部自定义属性只挂在
// 这个容器上，绝不进 :root，避免污染宿主页面。
const ContainerID = "cv-preview-iso"

// Template 是渲染引擎消费的模板定义（Mustache 源文本）。
type Template struct {
	Slug        string
	HTMLContent string
	CSSStyles   string
}

// Engine 把规范记录与模板定义渲染成 (HTML, 作用域样式表)。
// 纯同步幂等变换：相同输入字节级相同输出。
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Render 执行一次渲染。任何替换/解析失败都在此处截获：
// 记日志并退回空 HTML + 空样式表，绝不向调用方抛错。
// 未解析的 token 渲染为空串（mustache 缺省行为）。
func (e *Engine) Render(rec cv.Record, tpl Template) (html string, css string) {
	view := BuildView(rec)

	html, err := mustache.Render(tpl.HTMLContent, view)
	if err != nil {
		e.logger.Error("模板 HTML 渲染失败", "template", tpl.Slug, "error", err)
		return "", ""
	}

	rendered, err := mustache.Render(RewriteColorTokens(tpl.CSSStyles), view)
	if err != nil {
		e.logger.Error("模板 CSS 渲染失败", "template", tpl.Slug, "error", err)
		return "", ""
	}
	rendered = CollapseHashes(rendered)

	return html, scopedStylesheet(view, rendered)
}

// scopedStylesheet 先输出容器级自定义属性块，再接模板自身的
// 渲染结果。模板规则可以引用 --primary/--text-main/--font-main，
// 但这些属性不会泄漏到容器之外。
func scopedStylesheet(view map[string]any, renderedCSS string) string {
	return fmt.Sprintf(`#%s {
  --primary: #%s;
  --text-main: #%s;
  --font-main: %s;

  font-family: var(--font-main);
  color: var(--text-main);
  width: 100%%;
  height: 100%%;
  overflow-y: auto;
  background: white;
  position: relative;
}

%s`, ContainerID, view["accent_color"], view["text_color"], view["font_family"], renderedCSS)
}
