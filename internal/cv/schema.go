package cv

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// recordSchema 约束持久化边界上的 CV 数据：必须是对象，所有已知
// 字段均为字符串。未知键放行，由调和器的别名表决定取舍。
const recordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "fullName":       {"type": "string"},
    "jobTitle":       {"type": "string"},
    "email":          {"type": "string"},
    "phone":          {"type": "string"},
    "location":       {"type": "string"},
    "summary":        {"type": "string"},
    "experience":     {"type": "string"},
    "education":      {"type": "string"},
    "skills":         {"type": "string"},
    "hobbies":        {"type": "string"},
    "languages":      {"type": "string"},
    "certifications": {"type": "string"},
    "linkedin":       {"type": "string"},
    "github":         {"type": "string"},
    "portfolio":      {"type": "string"},
    "profileImage":   {"type": "string"},
    "accentColor":    {"type": "string"},
    "textColor":      {"type": "string"},
    "fontFamily":     {"type": "string"}
  }
}`

var recordSchemaLoader = gojsonschema.NewStringLoader(recordSchema)

// ValidateSchema 在落库前检查数据块的结构。返回的错误包含全部
// 违例点，便于一次性反馈给调用方。
func ValidateSchema(data []byte) error {
	result, err := gojsonschema.Validate(recordSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate cv data: %w", err)
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return fmt.Errorf("cv data schema violation: %s", strings.Join(issues, "; "))
}
