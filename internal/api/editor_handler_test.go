package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cvforge/internal/database"
	"cvforge/internal/handoff"
	"cvforge/internal/render"
)

type fakeSlotClient struct {
	values map[string]string
}

func newFakeSlotClient() *fakeSlotClient {
	return &fakeSlotClient{values: map[string]string{}}
}

func (f *fakeSlotClient) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeSlotClient) GetDel(ctx context.Context, key string) *redis.StringCmd {
	val, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	delete(f.values, key)
	return redis.NewStringResult(val, nil)
}

func newEditorTestHandler(db *gorm.DB, slot *handoff.Slot) *EditorHandler {
	return NewEditorHandler(db, slot, database.NewTemplateCatalog(db), render.NewEngine(slog.Default()))
}

type bootstrapResponse struct {
	Source      string          `json:"source"`
	CVData      json.RawMessage `json:"cv_data"`
	TemplateID  string          `json:"template_id"`
	PreviewHTML string          `json:"preview_html"`
	PreviewCSS  string          `json:"preview_css"`
}

func TestBootstrapDrainsHandoffSlot(t *testing.T) {
	db := newTestDB(t)
	seedTemplates(t, db)
	slot := handoff.NewSlot(newFakeSlotClient())
	h := newEditorTestHandler(db, slot)

	payload := `{"full_name":"Jane","suggested_skills":["Go","SQL"]}`
	if err := slot.Put(context.Background(), 5, []byte(payload)); err != nil {
		t.Fatalf("put: %v", err)
	}

	w := doJSON(t, h.Bootstrap, http.MethodGet, "/v1/editor/bootstrap", 5, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var resp bootstrapResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// snake_case 别名经调和归并到规范键
	if !strings.Contains(string(resp.CVData), `"fullName":"Jane"`) {
		t.Fatalf("record not reconciled: %s", resp.CVData)
	}
	if !strings.Contains(string(resp.CVData), `"skills":"Go, SQL"`) {
		t.Fatalf("skill list not coerced: %s", resp.CVData)
	}
	if resp.TemplateID != "modern" {
		t.Fatalf("template = %q", resp.TemplateID)
	}
	if !strings.Contains(resp.PreviewHTML, "Jane") {
		t.Fatalf("preview not rendered: %q", resp.PreviewHTML)
	}
	if !strings.Contains(resp.PreviewCSS, render.ContainerID) {
		t.Fatalf("preview css not scoped: %q", resp.PreviewCSS)
	}

	// 读即清：第二次为空
	w = doJSON(t, h.Bootstrap, http.MethodGet, "/v1/editor/bootstrap", 5, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on drained slot, got %d", w.Code)
	}
}

func TestBootstrapPremiumEnvelopeFallsBackForFreeUser(t *testing.T) {
	db := newTestDB(t)
	seedTemplates(t, db)
	slot := handoff.NewSlot(newFakeSlotClient())
	h := newEditorTestHandler(db, slot)

	free := database.User{Email: "free@example.com", SubscriptionPlan: "free"}
	if err := db.Create(&free).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	payload := `{"template_id":"startup_bold","data":{"full_name":"Jane","email":"jane@example.com"}}`
	if err := slot.Put(context.Background(), free.ID, []byte(payload)); err != nil {
		t.Fatalf("put: %v", err)
	}

	w := doJSON(t, h.Bootstrap, http.MethodGet, "/v1/editor/bootstrap", free.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var resp bootstrapResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// 高级模板被门禁拦下，记录照常应用，模板退回默认
	if resp.TemplateID != "modern" {
		t.Fatalf("free user got template %q", resp.TemplateID)
	}
	if !strings.Contains(string(resp.CVData), `"fullName":"Jane"`) {
		t.Fatalf("record dropped with the gated template: %s", resp.CVData)
	}
}

func TestBootstrapIsolatedPerUser(t *testing.T) {
	db := newTestDB(t)
	slot := handoff.NewSlot(newFakeSlotClient())
	h := newEditorTestHandler(db, slot)

	if err := slot.Put(context.Background(), 5, []byte(`{}`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	w := doJSON(t, h.Bootstrap, http.MethodGet, "/v1/editor/bootstrap", 6, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for other user, got %d", w.Code)
	}
}

func TestSelectTemplatePremiumGate(t *testing.T) {
	db := newTestDB(t)
	seedTemplates(t, db)
	slot := handoff.NewSlot(newFakeSlotClient())
	h := newEditorTestHandler(db, slot)

	free := database.User{Email: "free@example.com", SubscriptionPlan: "free"}
	if err := db.Create(&free).Error; err != nil {
		t.Fatalf("seed free user: %v", err)
	}
	pro := database.User{Email: "pro@example.com", SubscriptionPlan: "pro"}
	if err := db.Create(&pro).Error; err != nil {
		t.Fatalf("seed pro user: %v", err)
	}

	payload := map[string]any{"template_id": "startup_bold"}

	w := doJSON(t, h.SelectTemplate, http.MethodPost, "/v1/editor/select-template", free.ID, payload)
	if w.Code != http.StatusForbidden {
		t.Fatalf("free user: expected 403 got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "upgrade_required") {
		t.Fatalf("missing upgrade signal: %s", w.Body.String())
	}

	w = doJSON(t, h.SelectTemplate, http.MethodPost, "/v1/editor/select-template", pro.ID, payload)
	if w.Code != http.StatusOK {
		t.Fatalf("pro user: expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	// 免费模板不查用户
	w = doJSON(t, h.SelectTemplate, http.MethodPost, "/v1/editor/select-template", free.ID,
		map[string]any{"template_id": "classic"})
	if w.Code != http.StatusOK {
		t.Fatalf("free template: expected 200 got %d", w.Code)
	}
}

func TestSelectTemplateUnknownSlug(t *testing.T) {
	db := newTestDB(t)
	slot := handoff.NewSlot(newFakeSlotClient())
	h := newEditorTestHandler(db, slot)

	w := doJSON(t, h.SelectTemplate, http.MethodPost, "/v1/editor/select-template", 1,
		map[string]any{"template_id": "ghost"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}
