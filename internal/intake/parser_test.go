package intake

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	doc, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	xml := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body><w:p><w:r><w:t>` + body + `</w:t></w:r></w:p></w:body></w:document>`
	if _, err := doc.Write([]byte(xml)); err != nil {
		t.Fatal(err)
	}
	rels, err := w.Create("word/_rels/document.xml.rels")
	if err != nil {
		t.Fatal(err)
	}
	relsXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`
	if _, err := rels.Write([]byte(relsXML)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractTextPlain(t *testing.T) {
	got, err := ExtractText("resume.txt", "text/plain", []byte("hello resume"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello resume" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractTextDocx(t *testing.T) {
	data := buildDocx(t, "Ada Lovelace Engineer")
	got, err := ExtractText("resume.docx", docxMIME, data)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Ada Lovelace Engineer") {
		t.Fatalf("docx text missing: %q", got)
	}
}

func TestExtractTextUnsupported(t *testing.T) {
	_, err := ExtractText("resume.exe", "application/octet-stream", []byte{0x4d, 0x5a})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("want ErrUnsupportedFormat, got %v", err)
	}
}

func TestScannerSkipsWithoutAddr(t *testing.T) {
	if err := NewScanner("").Scan([]byte("data")); err != nil {
		t.Fatalf("scan without clamd must be a no-op: %v", err)
	}
}
