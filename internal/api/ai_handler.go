package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvforge/internal/ai"
	"cvforge/internal/api/middleware"
	"cvforge/internal/handoff"
	"cvforge/internal/intake"
)

// AIHandler 暴露对话式生成与简历上传解析。
type AIHandler struct {
	ai             *ai.Service
	slot           *handoff.Slot
	scanner        *intake.Scanner
	maxUploadBytes int64
}

func NewAIHandler(aiService *ai.Service, slot *handoff.Slot, scanner *intake.Scanner, maxUploadBytes int64) *AIHandler {
	return &AIHandler{
		ai:             aiService,
		slot:           slot,
		scanner:        scanner,
		maxUploadBytes: maxUploadBytes,
	}
}

type chatRequest struct {
	Message string    `json:"message" binding:"required"`
	History []ai.Turn `json:"history"`
}

// POST /v1/ai/chat
// 一轮对话。回复携带生成触发时把载荷放进交接槽，编辑器入口
// 一次性取走。
func (h *AIHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	result, err := h.ai.Chat(ctx, req.History, req.Message)
	if err != nil {
		logger.Error("ai chat failed", slog.Any("error", err))
		Internal(c, "ai request failed")
		return
	}

	if result.Action == ai.ActionGenerate && result.CVData != nil {
		payload, err := json.Marshal(result.CVData)
		if err != nil {
			logger.Error("marshal generated cv data failed", slog.Any("error", err))
			Internal(c, "ai request failed")
			return
		}
		if err := h.slot.Put(ctx, userID, payload); err != nil {
			logger.Error("stash generated cv data failed", slog.Any("error", err))
			Internal(c, "ai request failed")
			return
		}
	}

	c.JSON(http.StatusOK, result)
}

type generateRequest struct {
	FullName        string   `json:"full_name" binding:"required"`
	Email           string   `json:"email" binding:"required"`
	DesiredJobTitle string   `json:"desired_job_title"`
	TopSkills       []string `json:"top_skills"`
	ResumeText      string   `json:"resume_text"`
}

// POST /v1/ai/generate
// 表单/上传文本直达生成。结果同样经交接槽流向编辑器。
func (h *AIHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	data, err := h.ai.Generate(ctx, ai.GenerationRequest{
		FullName:        req.FullName,
		Email:           req.Email,
		DesiredJobTitle: req.DesiredJobTitle,
		TopSkills:       req.TopSkills,
		ResumeText:      req.ResumeText,
	})
	if err != nil {
		logger.Error("ai generate failed", slog.Any("error", err))
		Internal(c, "ai request failed")
		return
	}

	payload, err := json.Marshal(data)
	if err != nil {
		logger.Error("marshal generated cv data failed", slog.Any("error", err))
		Internal(c, "ai request failed")
		return
	}
	if err := h.slot.Put(ctx, userID, payload); err != nil {
		logger.Error("stash generated cv data failed", slog.Any("error", err))
		Internal(c, "ai request failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "generated", "cv_data": data})
}

// POST /v1/ai/upload-resume
// multipart 上传：可选病毒扫描，PDF/DOCX/纯文本抽取，截断后返回。
func (h *AIHandler) UploadResume(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required")
		return
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		Error(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	logger := middleware.LoggerFromContext(c)

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error("open uploaded file failed", slog.Any("error", err))
		Internal(c, "failed to read upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		logger.Error("read uploaded file failed", slog.Any("error", err))
		Internal(c, "failed to read upload")
		return
	}
	if h.maxUploadBytes > 0 && int64(len(data)) > h.maxUploadBytes {
		Error(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	if h.scanner != nil {
		if err := h.scanner.Scan(data); err != nil {
			if errors.Is(err, intake.ErrMaliciousFile) {
				logger.Warn("malicious upload rejected", slog.String("filename", fileHeader.Filename))
				BadRequest(c, "file rejected by virus scan")
				return
			}
			logger.Error("virus scan failed", slog.Any("error", err))
			Internal(c, "failed to scan upload")
			return
		}
	}

	mime := fileHeader.Header.Get("Content-Type")
	text, err := intake.ExtractText(fileHeader.Filename, mime, data)
	if err != nil {
		if errors.Is(err, intake.ErrUnsupportedFormat) {
			BadRequest(c, "unsupported resume format")
			return
		}
		logger.Error("extract resume text failed", slog.Any("error", err))
		Internal(c, "failed to extract text")
		return
	}

	text = ai.TruncateUploadText(ai.CleanDocumentText(text))
	c.JSON(http.StatusOK, gin.H{"extracted_text": text})
}
