package render

import (
	"strings"

	"cvforge/internal/cv"
)

// 渲染视图的默认值。记录里对应字段为空时顶上。
const (
	DefaultName        = "Your Name"
	DefaultJobTitle    = "Job Title"
	DefaultAccentColor = "#2c3e50"
	DefaultTextColor   = "#333333"
	DefaultFontFamily  = "sans-serif"
)

// BuildView 把规范记录投影成模板 token 期望的 snake_case 视图。
// 仅在渲染时使用：skills 等列表字段从展示串新鲜拆分（摄入拼接的
// 逆操作），颜色以不带 "#" 的形态暴露，换行转 <br/>。
func BuildView(rec cv.Record) map[string]any {
	return map[string]any{
		"full_name":          orDefault(rec.FullName, DefaultName),
		"job_title":          orDefault(rec.JobTitle, DefaultJobTitle),
		"email":              rec.Email,
		"phone":              rec.Phone,
		"location":           rec.Location,
		"full_name_initials": initials(rec.FullName),

		"summary":        rec.Summary,
		"experience":     nlToBreak(rec.Experience),
		"education":      nlToBreak(rec.Education),
		"skills":         cv.SplitCommaList(rec.Skills),
		"hobbies":        cv.SplitCommaList(rec.Hobbies),
		"languages":      cv.SplitCommaList(rec.Languages),
		"certifications": cv.SplitCommaList(rec.Certifications),

		"linkedin":      rec.LinkedIn,
		"github":        rec.GitHub,
		"portfolio":     rec.Portfolio,
		"profile_image": rec.ProfileImage,

		"accent_color": StripHash(orDefault(rec.AccentColor, DefaultAccentColor)),
		"text_color":   StripHash(orDefault(rec.TextColor, DefaultTextColor)),
		"font_family":  orDefault(rec.FontFamily, DefaultFontFamily),
	}
}

// initials 取姓名前两个词的首字母，空名用占位 "YN"。
func initials(name string) string {
	if strings.TrimSpace(name) == "" {
		name = "YN"
	}
	var b strings.Builder
	for i, word := range strings.Fields(name) {
		if i == 2 {
			break
		}
		b.WriteString(strings.ToUpper(string([]rune(word)[0])))
	}
	return b.String()
}

func nlToBreak(s string) string {
	return strings.ReplaceAll(s, "\n", "<br/>")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
