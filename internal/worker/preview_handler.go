package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cvforge/internal/cv"
	"cvforge/internal/database"
	"cvforge/internal/errcode"
	"cvforge/internal/render"
	"cvforge/internal/storage"
	"cvforge/internal/tasks"
)

// FallbackTemplateSlug 是被引用模板已删除时的回退模板。
const FallbackTemplateSlug = "modern"

// PreviewTaskHandler 负责消费预览缩略图生成任务：渲染简历、
// 截图、上传对象存储、把预签名链接写回记录并推送完成通知。
type PreviewTaskHandler struct {
	db          *gorm.DB
	storage     *storage.Client
	redisClient *redis.Client
	engine      *render.Engine
	logger      *slog.Logger
}

// NewPreviewTaskHandler 创建任务处理器。
func NewPreviewTaskHandler(
	db *gorm.DB,
	storageClient *storage.Client,
	redisClient *redis.Client,
	logger *slog.Logger,
) *PreviewTaskHandler {
	return &PreviewTaskHandler{
		db:          db,
		storage:     storageClient,
		redisClient: redisClient,
		engine:      render.NewEngine(logger),
		logger:      logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *PreviewTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.PreviewGeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Int("cv_id", int(payload.CVID)),
	)
	log.Info("Starting preview thumbnail task...")

	var record database.CV
	if err := h.db.WithContext(ctx).First(&record, payload.CVID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("cv not found, skipping task")
			return nil
		}
		log.Error("query cv failed", slog.Any("error", err))
		return err
	}

	log = log.With(slog.Uint64("user_id", uint64(record.UserID)))

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}
		notify := PreviewNotifyMessage{
			Status:        "error",
			CVID:          record.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := h.publishNotify(ctx, record.UserID, notify); err != nil {
			log.Error("publish preview error notification failed", slog.Any("error", err))
		}
	}()

	rec, err := cv.FromJSON(record.Data)
	if err != nil {
		log.Error("decode cv data failed", slog.Any("error", err))
		return err
	}

	tpl, fellBack, err := h.loadTemplate(ctx, record.TemplateID)
	if err != nil {
		log.Error("load template failed", slog.Any("error", err))
		return err
	}

	html, css := h.engine.Render(rec, tpl)
	document := render.BuildDocument(html, css)

	page, cleanup, err := renderDocumentPage(document)
	if err != nil {
		log.Error("render document page failed", slog.Any("error", err))
		return err
	}
	defer cleanup()

	const previewQuality = 80
	thumb, err := captureThumbnail(page, previewQuality)
	if err != nil {
		log.Error("capture thumbnail failed", slog.Any("error", err))
		return err
	}

	objectName := fmt.Sprintf("thumbnails/cv/%d/preview.jpg", record.ID)
	if _, err := h.storage.UploadFile(ctx, objectName, bytes.NewReader(thumb), int64(len(thumb)), "image/jpeg"); err != nil {
		log.Error("upload thumbnail failed", slog.Any("error", err))
		return err
	}

	const presignTTL = 7 * 24 * time.Hour
	previewURL, err := h.storage.GeneratePresignedURL(ctx, objectName, presignTTL)
	if err != nil {
		log.Error("generate thumbnail presigned url failed", slog.Any("error", err))
		return err
	}

	if err := h.db.WithContext(ctx).Model(&record).Update("preview_url", previewURL).Error; err != nil {
		log.Error("update cv preview url failed", slog.Any("error", err))
		return err
	}

	notify := PreviewNotifyMessage{
		Status:        "completed",
		CVID:          record.ID,
		CorrelationID: payload.CorrelationID,
		PreviewURL:    previewURL,
		ErrorCode:     errcode.OK,
	}
	if fellBack {
		notify.ErrorCode = errcode.TemplateFellBack
		notify.ErrorMessage = "引用的模板已不存在，已用默认模板生成预览"
	}
	if err := h.publishNotify(ctx, record.UserID, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	log.Info("Preview thumbnail task completed successfully.")
	return nil
}

// loadTemplate 按 slug 取模板；不存在时回退默认模板。
func (h *PreviewTaskHandler) loadTemplate(ctx context.Context, slug string) (render.Template, bool, error) {
	if slug == "" {
		slug = FallbackTemplateSlug
	}

	var tpl database.Template
	err := h.db.WithContext(ctx).Where("slug = ?", slug).First(&tpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) && slug != FallbackTemplateSlug {
		if err := h.db.WithContext(ctx).Where("slug = ?", FallbackTemplateSlug).First(&tpl).Error; err != nil {
			return render.Template{}, false, fmt.Errorf("load fallback template: %w", err)
		}
		return render.Template{Slug: tpl.Slug, HTMLContent: tpl.HTMLContent, CSSStyles: tpl.CSSStyles}, true, nil
	}
	if err != nil {
		return render.Template{}, false, fmt.Errorf("load template %q: %w", slug, err)
	}
	return render.Template{Slug: tpl.Slug, HTMLContent: tpl.HTMLContent, CSSStyles: tpl.CSSStyles}, false, nil
}

func (h *PreviewTaskHandler) publishNotify(ctx context.Context, userID uint, notify PreviewNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := fmt.Sprintf("user_notify:%d", userID)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
