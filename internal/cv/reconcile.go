package cv

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Envelope 是入站载荷的显式标签联合：AI/存储侧可能把记录包在
// {id, template_id, data} 里，也可能直接给裸记录。
type Envelope struct {
	ID         string
	TemplateID string
	Data       map[string]any
}

// UnwrapEnvelope 做纯拆包：带对象型 data 键的按信封解释，
// 其余一律按裸记录处理。不修改入参。
func UnwrapEnvelope(raw map[string]any) Envelope {
	if inner, ok := raw["data"].(map[string]any); ok {
		return Envelope{
			ID:         asString(raw["id"]),
			TemplateID: firstNonEmpty(asString(raw["template_id"]), asString(raw["templateId"])),
			Data:       inner,
		}
	}
	return Envelope{Data: raw}
}

type fieldKind int

const (
	kindText fieldKind = iota
	kindBullets
	kindCommaList
	kindColor
)

// fieldSpecs 是双命名字段的别名表。规范键（camelCase）存在且非空时
// 优先，否则依次取 snake_case 别名。kind 决定摄入时的一次性形态归一。
var fieldSpecs = []struct {
	canon   string
	aliases []string
	kind    fieldKind
	slot    func(*Record) *string
}{
	{"fullName", []string{"full_name", "name"}, kindText, func(r *Record) *string { return &r.FullName }},
	{"email", nil, kindText, func(r *Record) *string { return &r.Email }},
	{"phone", nil, kindText, func(r *Record) *string { return &r.Phone }},
	{"jobTitle", []string{"job_title", "desired_job_title"}, kindText, func(r *Record) *string { return &r.JobTitle }},
	{"summary", []string{"professional_summary"}, kindText, func(r *Record) *string { return &r.Summary }},
	{"experience", []string{"experience_points"}, kindBullets, func(r *Record) *string { return &r.Experience }},
	{"education", []string{"education_formatted"}, kindText, func(r *Record) *string { return &r.Education }},
	{"skills", []string{"suggested_skills"}, kindCommaList, func(r *Record) *string { return &r.Skills }},
	{"location", nil, kindText, func(r *Record) *string { return &r.Location }},
	{"hobbies", nil, kindCommaList, func(r *Record) *string { return &r.Hobbies }},
	{"languages", nil, kindCommaList, func(r *Record) *string { return &r.Languages }},
	{"certifications", nil, kindCommaList, func(r *Record) *string { return &r.Certifications }},
	{"linkedin", []string{"linkedin_url"}, kindText, func(r *Record) *string { return &r.LinkedIn }},
	{"github", []string{"github_url"}, kindText, func(r *Record) *string { return &r.GitHub }},
	{"portfolio", []string{"portfolio_url"}, kindText, func(r *Record) *string { return &r.Portfolio }},
	{"profileImage", []string{"profile_image"}, kindText, func(r *Record) *string { return &r.ProfileImage }},
	{"accentColor", []string{"accent_color"}, kindColor, func(r *Record) *string { return &r.AccentColor }},
	{"textColor", []string{"text_color"}, kindColor, func(r *Record) *string { return &r.TextColor }},
	{"fontFamily", []string{"font_family"}, kindText, func(r *Record) *string { return &r.FontFamily }},
}

// applyFields 把入站 map 逐字段叠加到 held 之上并返回新记录。
// 优先级：入站显式值 > held 现值 > 空串。不修改入参。
func applyFields(held Record, source map[string]any) Record {
	out := held
	for _, spec := range fieldSpecs {
		raw, ok := pickValue(source, spec.canon, spec.aliases)
		if !ok {
			continue
		}
		var val string
		switch spec.kind {
		case kindBullets:
			val = CoerceBullets(raw)
		case kindCommaList:
			val = CoerceCommaList(raw)
		case kindColor:
			val = EnsureHash(asString(raw))
		default:
			val = asString(raw)
		}
		if strings.TrimSpace(val) == "" {
			continue
		}
		*spec.slot(&out) = val
	}
	return out
}

// pickValue 先取规范键，非空才算命中；否则按序尝试别名键。
func pickValue(source map[string]any, canon string, aliases []string) (any, bool) {
	if v, ok := source[canon]; ok && !isEmptyValue(v) {
		return v, true
	}
	for _, alias := range aliases {
		if v, ok := source[alias]; ok && !isEmptyValue(v) {
			return v, true
		}
	}
	return nil, false
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	default:
		return false
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Event 描述一次导航/生成事件。Seq 是单调的幂等键：
// 小于等于已处理序号的事件（含迟到的乱序完成）被整体丢弃。
// ForceTemplate 非空时指令胜出，Payload 被丢弃。
type Event struct {
	Seq           uint64
	ForceTemplate string
	Payload       []byte
}

// Outcome 是一次 Apply 的结果。Applied 为 false 表示事件被幂等
// 守卫丢弃，Record 保持原值。
type Outcome struct {
	Record     Record
	TemplateID string
	Applied    bool
}

// Reconciler 维护持有中的规范记录与最近处理的事件序号。
// 并发保护由调用方（editor.Session）负责。
type Reconciler struct {
	held    Record
	lastSeq uint64
	logger  *slog.Logger
}

// NewReconciler 以空记录初始化。
func NewReconciler(logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{logger: logger}
}

// Held 返回当前持有记录的副本。
func (rc *Reconciler) Held() Record {
	return rc.held
}

// SetHeld 覆盖持有记录（表单直接编辑走这里）。
func (rc *Reconciler) SetHeld(rec Record) {
	rc.held = rec
}

// Apply 处理一次导航/生成事件。每个事件只含一个入站数据源；
// 指令与数据同现时指令胜出，数据不再合并。载荷不是合法 JSON 时
// 视作无入站数据：记日志、照常推进序号、不报错。
func (rc *Reconciler) Apply(ev Event) Outcome {
	if ev.Seq <= rc.lastSeq {
		return Outcome{Record: rc.held, Applied: false}
	}
	rc.lastSeq = ev.Seq

	if ev.ForceTemplate != "" {
		return Outcome{Record: rc.held, TemplateID: ev.ForceTemplate, Applied: true}
	}

	if len(ev.Payload) == 0 {
		return Outcome{Record: rc.held, Applied: true}
	}

	var raw map[string]any
	if err := json.Unmarshal(ev.Payload, &raw); err != nil {
		rc.logger.Warn("丢弃无法解析的交接载荷", "seq", ev.Seq, "error", err)
		return Outcome{Record: rc.held, Applied: true}
	}

	env := UnwrapEnvelope(raw)
	rc.held = applyFields(rc.held, env.Data)
	return Outcome{Record: rc.held, TemplateID: env.TemplateID, Applied: true}
}
