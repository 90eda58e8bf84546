package cv

import (
	"testing"
)

func TestUnwrapEnvelope(t *testing.T) {
	raw := map[string]any{
		"id":          "42",
		"template_id": "classic",
		"data":        map[string]any{"full_name": "Ada"},
	}
	env := UnwrapEnvelope(raw)
	if env.ID != "42" || env.TemplateID != "classic" {
		t.Fatalf("envelope meta = %+v", env)
	}
	if env.Data["full_name"] != "Ada" {
		t.Fatalf("inner data lost: %v", env.Data)
	}

	bare := UnwrapEnvelope(map[string]any{"full_name": "Ada"})
	if bare.ID != "" || bare.TemplateID != "" {
		t.Fatalf("bare record misread as envelope: %+v", bare)
	}
	if bare.Data["full_name"] != "Ada" {
		t.Fatalf("bare data lost")
	}
}

func TestApplyIngestsAIShapes(t *testing.T) {
	rc := NewReconciler(nil)
	out := rc.Apply(Event{
		Seq: 1,
		Payload: []byte(`{
			"full_name": "Ada Lovelace",
			"desired_job_title": "Engineer",
			"professional_summary": "Builds engines.",
			"experience_points": ["Led X", "Shipped Y"],
			"suggested_skills": ["Python", "Go", "Rust"],
			"accent_color": "2c3e50"
		}`),
	})
	if !out.Applied {
		t.Fatal("event not applied")
	}
	rec := out.Record
	if rec.FullName != "Ada Lovelace" || rec.JobTitle != "Engineer" {
		t.Fatalf("aliases not mapped: %+v", rec)
	}
	if rec.Experience != "• Led X\n• Shipped Y" {
		t.Fatalf("experience = %q", rec.Experience)
	}
	if rec.Skills != "Python, Go, Rust" {
		t.Fatalf("skills = %q", rec.Skills)
	}
	if rec.AccentColor != "#2c3e50" {
		t.Fatalf("accent color not stored with hash: %q", rec.AccentColor)
	}
}

func TestApplyCamelKeyWins(t *testing.T) {
	rc := NewReconciler(nil)
	out := rc.Apply(Event{
		Seq:     1,
		Payload: []byte(`{"fullName": "Camel", "full_name": "Snake"}`),
	})
	if out.Record.FullName != "Camel" {
		t.Fatalf("camel key should win, got %q", out.Record.FullName)
	}
}

func TestApplyKeepsHeldForAbsentFields(t *testing.T) {
	rc := NewReconciler(nil)
	rc.SetHeld(Record{FullName: "Ada", Email: "ada@example.com", Phone: "555"})

	out := rc.Apply(Event{Seq: 1, Payload: []byte(`{"phone": "777"}`)})
	rec := out.Record
	if rec.Phone != "777" {
		t.Fatalf("incoming value should override, got %q", rec.Phone)
	}
	if rec.FullName != "Ada" || rec.Email != "ada@example.com" {
		t.Fatalf("held values lost: %+v", rec)
	}
}

func TestApplyIsIdempotentPerEvent(t *testing.T) {
	rc := NewReconciler(nil)
	payload := []byte(`{"suggested_skills": ["Python", "Go"]}`)

	first := rc.Apply(Event{Seq: 5, Payload: payload})
	if first.Record.Skills != "Python, Go" {
		t.Fatalf("first apply = %q", first.Record.Skills)
	}

	// 用户随后编辑了技能栏
	edited := first.Record
	edited.Skills = "Python, Go, Zig"
	rc.SetHeld(edited)

	// 同一事件重放（迟到的重渲染）不得覆盖新编辑
	replay := rc.Apply(Event{Seq: 5, Payload: payload})
	if replay.Applied {
		t.Fatal("replayed event must be discarded")
	}
	if replay.Record.Skills != "Python, Go, Zig" {
		t.Fatalf("stale payload clobbered edits: %q", replay.Record.Skills)
	}

	// 乱序的更早事件同样被丢弃
	if out := rc.Apply(Event{Seq: 3, Payload: []byte(`{"skills":"old"}`)}); out.Applied {
		t.Fatal("out-of-order event must be discarded")
	}
}

func TestApplyNoDoubleCoercion(t *testing.T) {
	rc := NewReconciler(nil)
	payload := []byte(`{"experience_points": ["Led X", "Shipped Y"]}`)

	first := rc.Apply(Event{Seq: 1, Payload: payload})
	second := rc.Apply(Event{Seq: 2, Payload: payload})
	if second.Record.Experience != first.Record.Experience {
		t.Fatalf("re-ingestion changed display string: %q vs %q",
			first.Record.Experience, second.Record.Experience)
	}

	// 展示串回灌（已拼接形态）也必须原样通过
	third := rc.Apply(Event{Seq: 3, Payload: []byte(`{"experience": "• Led X\n• Shipped Y"}`)})
	if third.Record.Experience != "• Led X\n• Shipped Y" {
		t.Fatalf("display string re-coerced: %q", third.Record.Experience)
	}
}

func TestApplyDirectiveWins(t *testing.T) {
	rc := NewReconciler(nil)
	rc.SetHeld(Record{FullName: "Ada"})

	out := rc.Apply(Event{
		Seq:           1,
		ForceTemplate: "startup_bold",
		Payload:       []byte(`{"fullName": "Someone Else"}`),
	})
	if out.TemplateID != "startup_bold" {
		t.Fatalf("directive template not set: %q", out.TemplateID)
	}
	if out.Record.FullName != "Ada" {
		t.Fatalf("payload applied despite directive: %q", out.Record.FullName)
	}
}

func TestApplyMalformedPayload(t *testing.T) {
	rc := NewReconciler(nil)
	rc.SetHeld(Record{FullName: "Ada"})

	out := rc.Apply(Event{Seq: 1, Payload: []byte(`{not json`)})
	if !out.Applied {
		t.Fatal("malformed payload should still consume the event")
	}
	if out.Record.FullName != "Ada" {
		t.Fatalf("held record mutated: %+v", out.Record)
	}
}

func TestApplyEnvelopeTemplate(t *testing.T) {
	rc := NewReconciler(nil)
	out := rc.Apply(Event{
		Seq:     1,
		Payload: []byte(`{"id":"7","template_id":"modern","data":{"full_name":"Ada"}}`),
	})
	if out.TemplateID != "modern" {
		t.Fatalf("envelope template id lost: %q", out.TemplateID)
	}
	if out.Record.FullName != "Ada" {
		t.Fatalf("envelope data lost: %+v", out.Record)
	}
}

func TestValidate(t *testing.T) {
	if err := (Record{FullName: "Ada", Email: "a@b.c"}).Validate(); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}
	if err := (Record{Email: "a@b.c"}).Validate(); err != ErrMissingFullName {
		t.Fatalf("want ErrMissingFullName, got %v", err)
	}
	if err := (Record{FullName: "Ada"}).Validate(); err != ErrMissingEmail {
		t.Fatalf("want ErrMissingEmail, got %v", err)
	}
}

func TestFromJSONAcceptsLegacyKeys(t *testing.T) {
	rec, err := FromJSON([]byte(`{"full_name":"Ada","accent_color":"#2c3e50"}`))
	if err != nil {
		t.Fatal(err)
	}
	if rec.FullName != "Ada" || rec.AccentColor != "#2c3e50" {
		t.Fatalf("legacy keys not normalized: %+v", rec)
	}
}
