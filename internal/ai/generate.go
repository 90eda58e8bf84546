package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// GenerationRequest 描述一次结构化生成。ResumeText 非空时按
// 上传模式走抽取路径，否则按表单参数从头生成。
type GenerationRequest struct {
	FullName        string   `json:"full_name"`
	Email           string   `json:"email"`
	DesiredJobTitle string   `json:"desired_job_title"`
	TopSkills       []string `json:"top_skills"`
	ResumeText      string   `json:"resume_text,omitempty"`
}

const uploadPromptFormat = `Read this resume text:
---
%s
---

Goal: Extract structured JSON.
Rules:
1. Extract the Candidate Name found in the text.
2. Summarize experience into impactful bullets.

OUTPUT JSON:
{
    "full_name": "%s",
    "email": "%s",
    "phone": "%s",
    "desired_job_title": "%s",
    "professional_summary": "Summary...",
    "experience_points": ["Achievement 1", "Achievement 2"],
    "education_formatted": "Education info...",
    "suggested_skills": ["Skill A", "Skill B"]
}`

const formPromptFormat = `Create a CV for: %s
Skills: %s

OUTPUT JSON:
{
    "full_name": "%s",
    "email": "%s",
    "phone": "",
    "desired_job_title": "%s",
    "professional_summary": "Professional summary...",
    "experience_points": ["Achieved X", "Led Y", "Built Z"],
    "education_formatted": "Education...",
    "suggested_skills": ["%s"]
}`

// Generate 调用模型产出结构化简历载荷（snake_case 键），上传模式
// 下先做正则身份抽取并在模型返回后执行身份防护。
func (s *Service) Generate(ctx context.Context, req GenerationRequest) (map[string]any, error) {
	var (
		prompt    string
		extracted PersonalInfo
		upload    = strings.TrimSpace(req.ResumeText) != ""
	)

	if upload {
		text := TruncateUploadText(CleanDocumentText(req.ResumeText))
		extracted = ExtractPersonalInfo(text)

		name := extracted.FullName
		if name == "" {
			name = "Candidate Name"
		}
		title := req.DesiredJobTitle
		if title == "" {
			title = "Professional"
		}
		prompt = fmt.Sprintf(uploadPromptFormat, text, name, extracted.Email, extracted.Phone, title)
	} else {
		skills := strings.Join(req.TopSkills, ", ")
		prompt = fmt.Sprintf(formPromptFormat,
			req.DesiredJobTitle, skills, req.FullName, req.Email, req.DesiredJobTitle, skills)
	}

	resp, err := s.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ai generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("ai generate: empty response")
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleanJSONResponse(resp.Choices[0].Message.Content)), &data); err != nil {
		return nil, fmt.Errorf("ai generate: parse response: %w", err)
	}

	if upload {
		s.GuardIdentity(data, extracted)
	}
	return data, nil
}
