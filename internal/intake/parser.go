package intake

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// ErrUnsupportedFormat 表示上传的简历不是可解析的文档类型。
var ErrUnsupportedFormat = errors.New("unsupported resume format")

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// ExtractText 按 MIME（或兜底按扩展名）解出纯文本。
func ExtractText(filename, mime string, data []byte) (string, error) {
	switch {
	case mime == "application/pdf" || strings.EqualFold(filepath.Ext(filename), ".pdf"):
		return extractPDFText(data)
	case mime == docxMIME || strings.EqualFold(filepath.Ext(filename), ".docx"):
		return extractDocxText(data)
	case strings.HasPrefix(mime, "text/") || strings.EqualFold(filepath.Ext(filename), ".txt"):
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mime)
	}
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, _ := page.GetPlainText(nil)
		b.WriteString(text)
	}
	return b.String(), nil
}

func extractDocxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}
	defer doc.Close()

	return doc.Editable().GetContent(), nil
}
