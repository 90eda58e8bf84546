package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cvforge/internal/api/middleware"
	"cvforge/internal/cv"
	"cvforge/internal/database"
	"cvforge/internal/editor"
	"cvforge/internal/handoff"
	"cvforge/internal/render"
)

// EditorHandler 服务编辑器入口：交接槽消费、调和、模板选择门禁。
type EditorHandler struct {
	db      *gorm.DB
	slot    *handoff.Slot
	catalog editor.Catalog
	engine  *render.Engine
}

func NewEditorHandler(db *gorm.DB, slot *handoff.Slot, catalog editor.Catalog, engine *render.Engine) *EditorHandler {
	return &EditorHandler{db: db, slot: slot, catalog: catalog, engine: engine}
}

// GET /v1/editor/bootstrap
// 一次性取走交接槽里的 AI 载荷并走调和流程：别名归并、形态归一、
// 信封 template_id 经权限门激活（高级模板 + 免费用户时退回默认
// 模板）。返回规范记录与首次渲染输出。槽为空返回 204。
func (h *EditorHandler) Bootstrap(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	payload, found, err := h.slot.Take(ctx, userID)
	if err != nil {
		logger.Error("take handoff slot failed", slog.Any("error", err))
		Internal(c, "failed to read handoff slot")
		return
	}
	if !found {
		c.Status(http.StatusNoContent)
		return
	}

	premium := false
	var user database.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err == nil {
		premium = user.IsPro()
	}

	sess := editor.NewSession(h.catalog, h.engine, premium, logger)
	out, err := sess.ApplyEvent(ctx, cv.Event{Seq: 1, Payload: payload})
	if err != nil {
		// 记录已应用；高级模板被门禁拦下或获取失败时退回默认模板。
		if !errors.Is(err, editor.ErrUpgradeRequired) {
			logger.Warn("activate handoff template failed", slog.Any("error", err))
		}
	}
	if sess.State() != editor.StateReady {
		if err := sess.SelectTemplate(ctx, defaultTemplateSlug); err != nil {
			logger.Warn("activate default template failed", slog.Any("error", err))
		}
	}

	html, css := sess.Preview()
	c.JSON(http.StatusOK, gin.H{
		"source":       "ai",
		"cv_data":      out.Record,
		"template_id":  sess.ActiveTemplate(),
		"preview_html": html,
		"preview_css":  css,
	})
}

type selectTemplateRequest struct {
	TemplateID string `json:"template_id" binding:"required"`
}

// POST /v1/editor/select-template
// 高级模板 + 非付费用户：选择不生效，403 upgrade_required。
// 通过门禁后返回模板源文本供编辑器激活。
func (h *EditorHandler) SelectTemplate(c *gin.Context) {
	var req selectTemplateRequest
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

	var tpl database.Template
	if err := h.db.WithContext(ctx).Where("slug = ?", req.TemplateID).First(&tpl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "template not found")
		} else {
			Internal(c, "failed to query template")
		}
		return
	}

	if tpl.IsPremium {
		var user database.User
		if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
			Internal(c, "failed to query user")
			return
		}
		if !user.IsPro() {
			Forbidden(c, "upgrade_required")
			return
		}
	}

	c.JSON(http.StatusOK, templateDetailResponse{
		ID:              tpl.Slug,
		Name:            tpl.Name,
		Category:        tpl.Category,
		IsPremium:       tpl.IsPremium,
		HTMLContent:     tpl.HTMLContent,
		CSSStyles:       tpl.CSSStyles,
		PreviewImageURL: tpl.PreviewImageURL,
	})
}
