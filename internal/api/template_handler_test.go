package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"cvforge/internal/render"
)

func TestListTemplatesExposesGallery(t *testing.T) {
	db := newTestDB(t)
	seedTemplates(t, db)
	h := NewTemplateHandler(db, render.NewEngine(slog.Default()))

	w := doJSON(t, h.ListTemplates, http.MethodGet, "/v1/templates", 0, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}

	var items []templateListItem
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 seeded templates, got %d", len(items))
	}

	premium := map[string]bool{}
	category := map[string]string{}
	for _, item := range items {
		premium[item.ID] = item.IsPremium
		category[item.ID] = item.Category
	}
	if premium["modern"] || premium["classic"] {
		t.Fatal("free templates flagged premium")
	}
	if !premium["startup_bold"] {
		t.Fatal("startup_bold should be premium")
	}
	if category["modern"] != "professional" || category["classic"] != "simple" || category["startup_bold"] != "creative" {
		t.Fatalf("categories = %v", category)
	}
}

func TestGetTemplateReturnsSource(t *testing.T) {
	db := newTestDB(t)
	seedTemplates(t, db)
	h := NewTemplateHandler(db, render.NewEngine(slog.Default()))

	w := doJSON(t, h.GetTemplate, http.MethodGet, "/v1/templates/modern", 0, nil,
		gin.Param{Key: "id", Value: "modern"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}

	var detail templateDetailResponse
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(detail.HTMLContent, "{{full_name}}") {
		t.Fatal("template source missing mustache tokens")
	}
}

func TestGetTemplateNotFound(t *testing.T) {
	db := newTestDB(t)
	h := NewTemplateHandler(db, render.NewEngine(slog.Default()))

	w := doJSON(t, h.GetTemplate, http.MethodGet, "/v1/templates/nope", 0, nil,
		gin.Param{Key: "id", Value: "nope"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}

func TestPreviewTemplateRendersSampleData(t *testing.T) {
	db := newTestDB(t)
	seedTemplates(t, db)
	h := NewTemplateHandler(db, render.NewEngine(slog.Default()))

	w := doJSON(t, h.PreviewTemplate, http.MethodGet, "/v1/templates/classic/preview", 0, nil,
		gin.Param{Key: "id", Value: "classic"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}

	body := w.Body.String()
	if !strings.Contains(body, "Alex Morgan") {
		t.Fatal("preview missing sample data")
	}
	if strings.Contains(body, "{{") {
		t.Fatal("unrendered tokens in preview")
	}
	if !strings.Contains(body, render.ContainerID) {
		t.Fatal("preview missing scoped container")
	}
}
