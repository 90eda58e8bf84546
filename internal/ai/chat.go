package ai

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// 会话窗口：只转发最近这些轮，控制提示体积。
const historyLimit = 10

// buildTrigger 是助手完成信息收集后的生成触发标记，
// 其后跟随结构化 JSON。
const buildTrigger = "BUILDING_CV_NOW"

const (
	// ActionNone 表示普通对话轮。
	ActionNone = "none"
	// ActionGenerate 表示助手给出了可生成简历的结构化数据。
	ActionGenerate = "generate"
)

const chatSystemPrompt = `You are an expert Resume Architect.

If the user has NOT uploaded a CV yet, ask them for details conversationally.
If the user HAS uploaded (you see text context), start building.

FINAL TRIGGER:
When you have Name, Job, and Skills, output exactly:
BUILDING_CV_NOW
{
   "full_name": "...",
   "desired_job_title": "...",
   "top_skills": ["...", "..."],
   "experience_level": "...",
   "professional_summary": "Auto-generated summary..."
}`

// Turn 是会话中的一轮。
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResult 是一轮对话的结果。Action 为 ActionGenerate 时
// CVData 携带待交给调和器的载荷。
type ChatResult struct {
	Reply  string         `json:"reply"`
	Action string         `json:"action"`
	CVData map[string]any `json:"cv_data,omitempty"`
}

var jsonFenceRe = regexp.MustCompile("```(?:json)?\\s*")

// cleanJSONResponse 剥掉模型爱加的 markdown 代码围栏。
func cleanJSONResponse(text string) string {
	return strings.TrimSpace(jsonFenceRe.ReplaceAllString(text, ""))
}

// Chat 转发最近 historyLimit 轮加最新消息，解析回复中的生成触发。
// 触发后的 JSON 解析失败时降级为普通对话轮，不报错。
func (s *Service) Chat(ctx context.Context, history []Turn, message string) (ChatResult, error) {
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: chatSystemPrompt,
	})
	for _, turn := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	resp, err := s.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   600,
	})
	if err != nil {
		return ChatResult{}, err
	}
	if len(resp.Choices) == 0 {
		return ChatResult{Reply: "", Action: ActionNone}, nil
	}

	return parseChatReply(resp.Choices[0].Message.Content, s), nil
}

func parseChatReply(reply string, s *Service) ChatResult {
	idx := strings.Index(reply, buildTrigger)
	if idx < 0 {
		return ChatResult{Reply: reply, Action: ActionNone}
	}

	textPart := strings.TrimSpace(reply[:idx])
	jsonPart := cleanJSONResponse(reply[idx+len(buildTrigger):])

	var data map[string]any
	if err := json.Unmarshal([]byte(jsonPart), &data); err != nil {
		s.logger.Warn("生成触发后的 JSON 无法解析，按普通回复处理", "error", err)
		return ChatResult{Reply: reply, Action: ActionNone}
	}

	if textPart == "" {
		textPart = "Generative Process Started..."
	}
	return ChatResult{Reply: textPart, Action: ActionGenerate, CVData: data}
}
