package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cvforge/internal/cv"
	"cvforge/internal/database"
	"cvforge/internal/render"
)

// TemplateHandler 负责模板画廊相关的 API。
type TemplateHandler struct {
	db     *gorm.DB
	engine *render.Engine
}

func NewTemplateHandler(db *gorm.DB, engine *render.Engine) *TemplateHandler {
	return &TemplateHandler{db: db, engine: engine}
}

type templateListItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	IsPremium       bool   `json:"is_premium"`
	PreviewImageURL string `json:"preview_image_url,omitempty"`
}

type templateDetailResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	IsPremium       bool   `json:"is_premium"`
	HTMLContent     string `json:"html_content"`
	CSSStyles       string `json:"css_styles"`
	PreviewImageURL string `json:"preview_image_url,omitempty"`
}

// GET /v1/templates
// 画廊列表：不含模板源文本。
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	var templates []database.Template
	if err := h.db.WithContext(c.Request.Context()).
		Order("id ASC").
		Find(&templates).Error; err != nil {
		Internal(c, "failed to list templates")
		return
	}

	items := make([]templateListItem, 0, len(templates))
	for _, t := range templates {
		items = append(items, templateListItem{
			ID:              t.Slug,
			Name:            t.Name,
			Category:        t.Category,
			IsPremium:       t.IsPremium,
			PreviewImageURL: t.PreviewImageURL,
		})
	}
	c.JSON(http.StatusOK, items)
}

// GET /v1/templates/:id
// 详情：返回 Mustache 源文本，供编辑器本地渲染。
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	model, ok := h.findBySlug(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, templateDetailResponse{
		ID:              model.Slug,
		Name:            model.Name,
		Category:        model.Category,
		IsPremium:       model.IsPremium,
		HTMLContent:     model.HTMLContent,
		CSSStyles:       model.CSSStyles,
		PreviewImageURL: model.PreviewImageURL,
	})
}

// GET /v1/templates/:id/preview
// 用固定示例数据渲染模板，返回独立 HTML 文档。
func (h *TemplateHandler) PreviewTemplate(c *gin.Context) {
	model, ok := h.findBySlug(c)
	if !ok {
		return
	}

	tpl := render.Template{Slug: model.Slug, HTMLContent: model.HTMLContent, CSSStyles: model.CSSStyles}
	html, css := h.engine.Render(sampleRecord(), tpl)
	doc := render.BuildDocument(html, css)

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc))
}

func (h *TemplateHandler) findBySlug(c *gin.Context) (database.Template, bool) {
	slug := c.Param("id")
	var model database.Template
	if err := h.db.WithContext(c.Request.Context()).
		Where("slug = ?", slug).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "template not found")
		} else {
			Internal(c, "failed to query template")
		}
		return database.Template{}, false
	}
	return model, true
}

// sampleRecord 是模板预览用的展示数据。
func sampleRecord() cv.Record {
	return cv.Record{
		FullName:   "Alex Morgan",
		JobTitle:   "Senior Product Designer",
		Email:      "alex.morgan@example.com",
		Phone:      "+1 555 010 2030",
		Location:   "Berlin, Germany",
		Summary:    "Product designer with eight years of experience shipping consumer and B2B tools.",
		Experience: "• Led the redesign of the core editor used by 2M people\n• Built and mentored a team of five designers\n• Introduced a design token pipeline adopted company-wide",
		Education:  "MA Interaction Design, Umeå Institute of Design (2016)\nBA Visual Communication, UdK Berlin (2014)",
		Skills:     "Figma, Prototyping, Design Systems, User Research, HTML/CSS",
		Languages:  "English, German",
	}
}
