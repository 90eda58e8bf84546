package ai

import (
	"context"
	"errors"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"cvforge/internal/config"
)

// Groq 的 OpenAI 兼容网关。设置了 GROQ_API_KEY 时优先走这里。
const groqBaseURL = "https://api.groq.com/openai/v1"

const (
	groqDefaultModel   = "llama-3.3-70b-versatile"
	openaiDefaultModel = "gpt-4o-mini"
)

// ErrNoAPIKey 表示未配置任何模型凭据。
var ErrNoAPIKey = errors.New("no ai api key configured")

type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Service 封装对话式摄入与结构化生成两条 AI 链路。
type Service struct {
	api    completionAPI
	model  string
	logger *slog.Logger
}

// NewService 按 Groq > OpenAI 的优先级挑选凭据与默认模型。
func NewService(cfg config.AIConfig, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		key     string
		baseURL string
		model   string
	)
	switch {
	case cfg.GroqKey != "":
		key, baseURL, model = cfg.GroqKey, groqBaseURL, groqDefaultModel
	case cfg.OpenAIKey != "":
		key, model = cfg.OpenAIKey, openaiDefaultModel
	default:
		return nil, ErrNoAPIKey
	}
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}
	if cfg.Model != "" {
		model = cfg.Model
	}

	conf := openai.DefaultConfig(key)
	if baseURL != "" {
		conf.BaseURL = baseURL
	}

	return &Service{
		api:    openai.NewClientWithConfig(conf),
		model:  model,
		logger: logger,
	}, nil
}
