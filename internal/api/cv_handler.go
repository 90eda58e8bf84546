package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cvforge/internal/api/middleware"
	"cvforge/internal/cv"
	"cvforge/internal/database"
	"cvforge/internal/editor"
	"cvforge/internal/export"
	"cvforge/internal/render"
	"cvforge/internal/tasks"
)

// defaultTemplateSlug 是未指定或已失效模板时的回退。
const defaultTemplateSlug = "modern"

// CVHandler 负责简历记录的增删改查与导出。
type CVHandler struct {
	db          *gorm.DB
	asynqClient *asynq.Client
	saver       *editor.Saver
	engine      *render.Engine
}

// NewCVHandler 构造 CVHandler。保存经由 saver 串行化，
// 同一记录 id 最多一个变更在途。
func NewCVHandler(db *gorm.DB, asynqClient *asynq.Client, saver *editor.Saver, engine *render.Engine) *CVHandler {
	return &CVHandler{
		db:          db,
		asynqClient: asynqClient,
		saver:       saver,
		engine:      engine,
	}
}

var errInvalidCVID = errors.New("invalid cv id")

type saveCVRequest struct {
	Title      string         `json:"title" binding:"required"`
	TemplateID string         `json:"template_id"`
	Data       datatypes.JSON `json:"data" binding:"required"`
	// Silent 保存不触发预览任务与用户通知，id/错误照常返回。
	Silent bool `json:"silent"`
}

type cvListItem struct {
	ID         uint      `json:"id"`
	Title      string    `json:"title"`
	TemplateID string    `json:"template_id"`
	PreviewURL string    `json:"preview_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type cvResponse struct {
	ID         uint           `json:"id"`
	Title      string         `json:"title"`
	TemplateID string         `json:"template_id"`
	Data       datatypes.JSON `json:"data"`
	PreviewURL string         `json:"preview_url,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// CreateCV 保存一份新简历。数据块先过 schema 与必填校验，
// 任何校验失败都不会触碰存储。
func (h *CVHandler) CreateCV(c *gin.Context) {
	var req saveCVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	rec, err := h.decodeRecord(req.Data)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	id, err := h.saver.Save(ctx, editor.SaveRequest{
		UserID:     userID,
		Title:      req.Title,
		TemplateID: req.TemplateID,
		Record:     rec,
		Silent:     req.Silent,
	})
	if err != nil {
		h.replySaveError(c, err)
		return
	}

	var model database.CV
	if err := h.db.WithContext(ctx).First(&model, id).Error; err != nil {
		Internal(c, "failed to reload cv")
		return
	}

	if !req.Silent {
		h.enqueuePreview(c, id)
	}

	c.JSON(http.StatusCreated, newCVResponse(model))
}

// UpdateCV 覆盖指定简历。
func (h *CVHandler) UpdateCV(c *gin.Context) {
	var req saveCVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	model, err := h.getCVForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyLookupError(c, err)
		return
	}

	rec, err := h.decodeRecord(req.Data)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	if _, err := h.saver.Save(ctx, editor.SaveRequest{
		UserID:     userID,
		RecordID:   model.ID,
		Title:      req.Title,
		TemplateID: req.TemplateID,
		Record:     rec,
		Silent:     req.Silent,
	}); err != nil {
		h.replySaveError(c, err)
		return
	}

	if err := h.db.WithContext(ctx).First(model, model.ID).Error; err != nil {
		Internal(c, "failed to reload cv")
		return
	}

	if !req.Silent {
		h.enqueuePreview(c, model.ID)
	}

	c.JSON(http.StatusOK, newCVResponse(*model))
}

// ListCVs 列出用户全部简历。
func (h *CVHandler) ListCVs(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var models []database.CV
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&models).Error; err != nil {
		Internal(c, "failed to list cvs")
		return
	}

	items := make([]cvListItem, 0, len(models))
	for _, m := range models {
		items = append(items, cvListItem{
			ID:         m.ID,
			Title:      m.Title,
			TemplateID: m.TemplateID,
			PreviewURL: m.PreviewURL,
			CreatedAt:  m.CreatedAt,
			UpdatedAt:  m.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, items)
}

// GetCV 返回指定简历。
func (h *CVHandler) GetCV(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	model, err := h.getCVForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, newCVResponse(*model))
}

// DeleteCV 删除指定简历。
func (h *CVHandler) DeleteCV(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	model, err := h.getCVForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyLookupError(c, err)
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Delete(&database.CV{}, model.ID).Error; err != nil {
		Internal(c, "failed to delete cv")
		return
	}

	c.Status(http.StatusNoContent)
}

// ExportPDF 同步渲染并打印为 PDF。引用的模板不存在时回退默认模板。
func (h *CVHandler) ExportPDF(c *gin.Context) {
	doc, title, ok := h.assembleDocument(c)
	if !ok {
		return
	}

	data, err := export.PDFFromHTML(doc)
	if err != nil {
		middleware.LoggerFromContext(c).Error("pdf export failed", "error", err)
		Internal(c, "failed to generate pdf")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", title+".pdf"))
	c.Data(http.StatusOK, "application/pdf", data)
}

// ExportDOCX 从记录直接组装 Word 文档。
func (h *CVHandler) ExportDOCX(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	model, err := h.getCVForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyLookupError(c, err)
		return
	}

	rec, err := cv.FromJSON(model.Data)
	if err != nil {
		Internal(c, "failed to decode cv data")
		return
	}

	data, err := export.DOCXFromRecord(rec)
	if err != nil {
		middleware.LoggerFromContext(c).Error("docx export failed", "error", err)
		Internal(c, "failed to generate docx")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", model.Title+".docx"))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", data)
}

// ExportHTML 返回组装好的独立 HTML 文档。
func (h *CVHandler) ExportHTML(c *gin.Context) {
	doc, title, ok := h.assembleDocument(c)
	if !ok {
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", title+".html"))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc))
}

// assembleDocument 加载记录与模板并渲染为独立文档。
func (h *CVHandler) assembleDocument(c *gin.Context) (doc, title string, ok bool) {
	userID, idOK := userIDFromContext(c)
	if !idOK {
		AbortUnauthorized(c)
		return "", "", false
	}

	model, err := h.getCVForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyLookupError(c, err)
		return "", "", false
	}

	rec, err := cv.FromJSON(model.Data)
	if err != nil {
		Internal(c, "failed to decode cv data")
		return "", "", false
	}

	tpl, err := h.loadRenderTemplate(c.Request.Context(), model.TemplateID)
	if err != nil {
		Internal(c, "failed to load template")
		return "", "", false
	}

	html, css := h.engine.Render(rec, tpl)
	return render.BuildDocument(html, css), model.Title, true
}

// loadRenderTemplate 按 slug 取模板，缺失时回退默认模板。
func (h *CVHandler) loadRenderTemplate(ctx context.Context, slug string) (render.Template, error) {
	if slug == "" {
		slug = defaultTemplateSlug
	}

	var tpl database.Template
	err := h.db.WithContext(ctx).Where("slug = ?", slug).First(&tpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) && slug != defaultTemplateSlug {
		err = h.db.WithContext(ctx).Where("slug = ?", defaultTemplateSlug).First(&tpl).Error
	}
	if err != nil {
		return render.Template{}, fmt.Errorf("load template %q: %w", slug, err)
	}
	return render.Template{Slug: tpl.Slug, HTMLContent: tpl.HTMLContent, CSSStyles: tpl.CSSStyles}, nil
}

// decodeRecord 执行 schema 校验并归并别名键。
func (h *CVHandler) decodeRecord(data datatypes.JSON) (cv.Record, error) {
	if err := cv.ValidateSchema(data); err != nil {
		return cv.Record{}, err
	}
	return cv.FromJSON(data)
}

func (h *CVHandler) enqueuePreview(c *gin.Context, cvID uint) {
	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewPreviewGenerateTask(cvID, correlationID)
	if err != nil {
		middleware.LoggerFromContext(c).Error("create preview task failed", "error", err)
		return
	}
	// 缩略图失败不影响保存结果，只记录。
	if _, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(5)); err != nil {
		middleware.LoggerFromContext(c).Error("enqueue preview task failed", "error", err)
	}
}

func (h *CVHandler) replySaveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cv.ErrMissingFullName), errors.Is(err, cv.ErrMissingEmail):
		BadRequest(c, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "cv not found")
	default:
		Internal(c, "failed to save cv")
	}
}

func (h *CVHandler) replyLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errInvalidCVID):
		BadRequest(c, "invalid cv id")
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "cv not found")
	default:
		Internal(c, "failed to query cv")
	}
}

func (h *CVHandler) getCVForUser(ctx context.Context, idParam string, userID uint) (*database.CV, error) {
	id, err := strconv.ParseUint(idParam, 10, 64)
	if err != nil {
		return nil, errInvalidCVID
	}

	var model database.CV
	if err := h.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", uint(id), userID).
		First(&model).Error; err != nil {
		return nil, err
	}
	return &model, nil
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}

func newCVResponse(model database.CV) cvResponse {
	return cvResponse{
		ID:         model.ID,
		Title:      model.Title,
		TemplateID: model.TemplateID,
		Data:       model.Data,
		PreviewURL: model.PreviewURL,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}
