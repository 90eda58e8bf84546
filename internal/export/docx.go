package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"cvforge/internal/cv"
)

// DOCX 导出：从规范记录直接组装 WordprocessingML 包。
// 标题、联系行、分节正文、技能行，布局与模板无关。

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// DOCXFromRecord 产出一份完整的 .docx 字节流。
func DOCXFromRecord(rec cv.Record) ([]byte, error) {
	var body strings.Builder

	name := rec.FullName
	if strings.TrimSpace(name) == "" {
		name = "Your Name"
	}
	body.WriteString(headingParagraph(name, 36, true))
	if rec.JobTitle != "" {
		body.WriteString(headingParagraph(rec.JobTitle, 26, false))
	}

	contact := joinNonEmpty(" | ", rec.Email, rec.Phone, rec.Location)
	if contact != "" {
		body.WriteString(textParagraph(contact))
	}
	links := joinNonEmpty(" | ", rec.LinkedIn, rec.GitHub, rec.Portfolio)
	if links != "" {
		body.WriteString(textParagraph(links))
	}

	writeSection(&body, "Professional Summary", rec.Summary)
	writeSection(&body, "Experience", rec.Experience)
	writeSection(&body, "Education", rec.Education)

	if skills := cv.SplitCommaList(rec.Skills); len(skills) > 0 {
		body.WriteString(headingParagraph("Skills", 28, true))
		body.WriteString(textParagraph(strings.Join(skills, ", ")))
	}
	writeOptionalSection(&body, "Languages", rec.Languages)
	writeOptionalSection(&body, "Certifications", rec.Certifications)

	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` + body.String() + `</w:body></w:document>`

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", document},
	}
	for _, part := range parts {
		f, err := w.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", part.name, err)
		}
		if _, err := f.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("write %s: %w", part.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close docx archive: %w", err)
	}
	return buf.Bytes(), nil
}

// writeSection 输出小节标题加正文。正文按行拆分，"• " 前缀的行
// 保持为独立段落（摄入时拼接的要点逐条成段）。
func writeSection(body *strings.Builder, title, content string) {
	if strings.TrimSpace(content) == "" {
		return
	}
	body.WriteString(headingParagraph(title, 28, true))
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		body.WriteString(textParagraph(strings.TrimSpace(line)))
	}
}

func writeOptionalSection(body *strings.Builder, title, commaJoined string) {
	items := cv.SplitCommaList(commaJoined)
	if len(items) == 0 {
		return
	}
	body.WriteString(headingParagraph(title, 28, true))
	body.WriteString(textParagraph(strings.Join(items, ", ")))
}

func headingParagraph(text string, halfPoints int, bold bool) string {
	var props string
	if bold {
		props = `<w:b/>`
	}
	return fmt.Sprintf(
		`<w:p><w:r><w:rPr>%s<w:sz w:val="%d"/></w:rPr><w:t xml:space="preserve">%s</w:t></w:r></w:p>`,
		props, halfPoints, escapeXML(text))
}

func textParagraph(text string) string {
	return fmt.Sprintf(
		`<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`,
		escapeXML(text))
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, strings.TrimSpace(p))
		}
	}
	return strings.Join(kept, sep)
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
