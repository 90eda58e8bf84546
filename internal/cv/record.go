package cv

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingFullName 表示保存前校验失败：缺少姓名。
	ErrMissingFullName = errors.New("full name is required")
	// ErrMissingEmail 表示保存前校验失败：缺少邮箱。
	ErrMissingEmail = errors.New("email is required")
)

// Record 是简历数据的规范形态。所有字段均为展示字符串；
// experience 以 "• 条目" 换行拼接，skills 以 ", " 拼接，
// 这两个拼接只在摄入时发生一次（见 reconcile.go），渲染时再拆分。
// 颜色以带 "#" 前缀的形式保存。
type Record struct {
	FullName       string `json:"fullName"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	JobTitle       string `json:"jobTitle"`
	Summary        string `json:"summary"`
	Experience     string `json:"experience"`
	Education      string `json:"education"`
	Skills         string `json:"skills"`
	Location       string `json:"location"`
	Hobbies        string `json:"hobbies"`
	Languages      string `json:"languages"`
	Certifications string `json:"certifications"`
	LinkedIn       string `json:"linkedin"`
	GitHub         string `json:"github"`
	Portfolio      string `json:"portfolio"`
	ProfileImage   string `json:"profileImage"`
	AccentColor    string `json:"accentColor"`
	TextColor      string `json:"textColor"`
	FontFamily     string `json:"fontFamily"`
}

// Validate 在任何持久化调用之前执行必填校验。
func (r Record) Validate() error {
	if strings.TrimSpace(r.FullName) == "" {
		return ErrMissingFullName
	}
	if strings.TrimSpace(r.Email) == "" {
		return ErrMissingEmail
	}
	return nil
}

// ToJSON 序列化为存储形态（camelCase 键）。
func (r Record) ToJSON() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return b, nil
}

// FromJSON 从存储形态反序列化。存储层写入的是规范键，
// 但历史数据可能混有 snake_case，因此走别名归并。
func FromJSON(raw []byte) (Record, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return Record{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return applyFields(Record{}, m), nil
}
