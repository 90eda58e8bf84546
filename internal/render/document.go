package render

import "fmt"

// documentShell 是独立 HTML 文档外壳，用于模板预览与打印导出。
// 容器 id 必须与作用域样式表的选择器一致。
const documentShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
html, body {
  margin: 0;
  padding: 0;
  background: white;
}
@page {
  size: A4;
  margin: 0;
}
%s
</style>
</head>
<body>
<div id="%s">
%s
</div>
</body>
</html>
`

// BuildDocument 把一次渲染结果组装成可独立打开/打印的完整文档。
func BuildDocument(html, scopedCSS string) string {
	return fmt.Sprintf(documentShell, scopedCSS, ContainerID, html)
}
