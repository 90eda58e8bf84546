package ai

import (
	"regexp"
	"strings"
)

// UploadTextLimit 是上传文档文本进入提示词前的截断长度，
// 截断后的文本在会话内留存，后续轮不必重新上传。
const UploadTextLimit = 3000

// PersonalInfo 是正则兜底抽取的身份字段。
type PersonalInfo struct {
	FullName string
	Email    string
	Phone    string
}

var (
	emailRe = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)
	phoneRe = regexp.MustCompile(`[+(]?[1-9][0-9 .\-()]{8,}[0-9]`)

	controlCharRe = regexp.MustCompile(`[^\x20-\x7E\n]`)

	// 模型从上传简历里臆造姓名时的常见污染词
	nameBlacklist = []string{
		"Curriculum", "Vitae", "Resume", "Page", "Contact",
		"Phone", "Email", "Address", "Education",
		"Mathematics", "Graduate", "Lecturer",
	}
)

// CleanDocumentText 去掉 NUL 与不可打印字符，供提示词使用。
func CleanDocumentText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.TrimSpace(controlCharRe.ReplaceAllString(text, ""))
}

// TruncateUploadText 截到有界前缀，控制后续提示体积。
func TruncateUploadText(text string) string {
	if len(text) <= UploadTextLimit {
		return text
	}
	return text[:UploadTextLimit]
}

// ExtractPersonalInfo 用正则从简历文本里抽身份字段，
// 作为模型输出的防幻觉兜底。
func ExtractPersonalInfo(text string) PersonalInfo {
	var info PersonalInfo

	if m := emailRe.FindString(text); m != "" {
		info.Email = m
	}
	if m := phoneRe.FindString(text); m != "" {
		info.Phone = strings.TrimSpace(m)
	}

	// 姓名启发：前五个非空行里找短、无数字、无 @、不含污染词的行
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, strings.TrimSpace(l))
		}
	}
	for i, line := range lines {
		if i == 5 {
			break
		}
		if len(strings.Fields(line)) > 4 || strings.ContainsAny(line, "0123456789@") {
			continue
		}
		if containsBlacklisted(line) {
			continue
		}
		info.FullName = line
		break
	}

	return info
}

// GuardIdentity 是身份防护：模型输出的姓名/邮箱/电话可疑时，
// 用正则抽取结果回填。原地修改 data。
func (s *Service) GuardIdentity(data map[string]any, extracted PersonalInfo) {
	name, _ := data["full_name"].(string)
	if (containsBlacklisted(name) || len(name) < 3) && extracted.FullName != "" {
		s.logger.Info("用正则姓名替换可疑的模型姓名", "bad", name, "good", extracted.FullName)
		data["full_name"] = extracted.FullName
	}

	if phone, _ := data["phone"].(string); phone == "" && extracted.Phone != "" {
		data["phone"] = extracted.Phone
	}

	if email, _ := data["email"].(string); !strings.Contains(email, "@") && extracted.Email != "" {
		data["email"] = extracted.Email
	}
}

func containsBlacklisted(s string) bool {
	upper := strings.ToUpper(s)
	for _, b := range nameBlacklist {
		if strings.Contains(upper, strings.ToUpper(b)) {
			return true
		}
	}
	return false
}
