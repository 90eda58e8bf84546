package api

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"cvforge/internal/database"
)

func runAdminGate(t *testing.T, adminEmail, claimEmail string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewAdminHandler(db, adminEmail, slog.Default())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/admin/templates", nil)
	if claimEmail != "" {
		c.Set("userEmail", claimEmail)
	}

	h.RequireAdmin()(c)
	if c.IsAborted() {
		return w.Code
	}
	return http.StatusOK
}

func TestAdminGate(t *testing.T) {
	if code := runAdminGate(t, "admin@example.com", "user@example.com"); code != http.StatusForbidden {
		t.Fatalf("foreign email: expected 403 got %d", code)
	}
	if code := runAdminGate(t, "admin@example.com", ""); code != http.StatusForbidden {
		t.Fatalf("missing claim: expected 403 got %d", code)
	}
	if code := runAdminGate(t, "", "admin@example.com"); code != http.StatusForbidden {
		t.Fatalf("unconfigured gate: expected 403 got %d", code)
	}
	if code := runAdminGate(t, "admin@example.com", "Admin@Example.com"); code != http.StatusOK {
		t.Fatalf("matching email: expected pass got %d", code)
	}
}

func TestUpsertTemplateNormalizesColorTokens(t *testing.T) {
	db := newTestDB(t)
	h := NewAdminHandler(db, "admin@example.com", slog.Default())

	payload := map[string]any{
		"slug":         "neon",
		"name":         "Neon",
		"category":     "creative",
		"html_content": "<div>{{full_name}}</div>",
		"css_styles":   ":root{--primary: {{accent_color}};} h1{color: {{text_color}}}",
	}

	w := doJSON(t, h.UpsertTemplate, http.MethodPost, "/v1/admin/templates", 1, payload)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}

	var stored database.Template
	if err := db.Where("slug = ?", "neon").First(&stored).Error; err != nil {
		t.Fatalf("load stored template: %v", err)
	}
	if !strings.Contains(stored.CSSStyles, ": #{{accent_color}}") {
		t.Fatalf("accent token not prefixed: %s", stored.CSSStyles)
	}
	if !strings.Contains(stored.CSSStyles, ": #{{text_color}}") {
		t.Fatalf("text token not prefixed: %s", stored.CSSStyles)
	}

	// 再次提交为更新
	payload["name"] = "Neon v2"
	w = doJSON(t, h.UpsertTemplate, http.MethodPut, "/v1/admin/templates", 1, payload)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
}

func TestRepairTemplatesFixesStoredCSS(t *testing.T) {
	db := newTestDB(t)
	h := NewAdminHandler(db, "admin@example.com", slog.Default())

	broken := database.Template{
		Slug:        "legacy",
		Name:        "Legacy",
		HTMLContent: "<div></div>",
		CSSStyles:   "h1{color: {{accent_color}}} h2{color: ##{{text_color}}}",
	}
	if err := db.Create(&broken).Error; err != nil {
		t.Fatalf("seed broken template: %v", err)
	}
	clean := database.Template{
		Slug:        "clean",
		Name:        "Clean",
		HTMLContent: "<div></div>",
		CSSStyles:   "h1{color: #{{accent_color}}}",
	}
	if err := db.Create(&clean).Error; err != nil {
		t.Fatalf("seed clean template: %v", err)
	}

	w := doJSON(t, h.RepairTemplates, http.MethodPost, "/v1/admin/templates/repair", 1, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"repaired":1`) {
		t.Fatalf("expected exactly one repair: %s", w.Body.String())
	}

	var fixed database.Template
	if err := db.Where("slug = ?", "legacy").First(&fixed).Error; err != nil {
		t.Fatalf("load repaired: %v", err)
	}
	if strings.Contains(fixed.CSSStyles, ": {{accent_color}}") {
		t.Fatalf("unprefixed token survived repair: %s", fixed.CSSStyles)
	}
	if strings.Contains(fixed.CSSStyles, "##") {
		t.Fatalf("double hash survived repair: %s", fixed.CSSStyles)
	}
}

func TestPackageCRUD(t *testing.T) {
	db := newTestDB(t)
	h := NewAdminHandler(db, "admin@example.com", slog.Default())

	w := doJSON(t, h.CreatePackage, http.MethodPost, "/v1/admin/packages", 1, map[string]any{
		"name":        "Pro",
		"price_cents": 900,
		"credits":     100,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201 got %d body=%s", w.Code, w.Body.String())
	}

	pub := NewPackageHandler(db)
	w = doJSON(t, pub.ListPackages, http.MethodGet, "/v1/packages", 0, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"Pro"`) {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h.UpdatePackage, http.MethodPut, "/v1/admin/packages/x", 1, map[string]any{
		"name":        "Pro Annual",
		"price_cents": 9000,
		"credits":     1200,
	}, gin.Param{Key: "id", Value: "1"})
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(t, h.DeletePackage, http.MethodDelete, "/v1/admin/packages/x", 1, nil,
		gin.Param{Key: "id", Value: "1"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204 got %d", w.Code)
	}
}
