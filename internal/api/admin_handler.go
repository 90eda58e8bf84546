package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cvforge/internal/api/middleware"
	"cvforge/internal/database"
	"cvforge/internal/render"
)

// AdminHandler 暴露模板与套餐的管理面。门禁按配置的管理员邮箱
// 比对访问令牌里的邮箱声明，不查库。
type AdminHandler struct {
	db         *gorm.DB
	adminEmail string
	logger     *slog.Logger
}

func NewAdminHandler(db *gorm.DB, adminEmail string, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{db: db, adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)), logger: logger}
}

// RequireAdmin 是管理面的门禁中间件。未配置管理员邮箱时整个
// 管理面关闭。
func (h *AdminHandler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.adminEmail == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access disabled"})
			return
		}
		email, _ := c.Get("userEmail")
		if s, ok := email.(string); !ok || !strings.EqualFold(s, h.adminEmail) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

type upsertTemplateRequest struct {
	Slug            string `json:"slug" binding:"required,max=64"`
	Name            string `json:"name" binding:"required,max=255"`
	Category        string `json:"category" binding:"max=64"`
	HTMLContent     string `json:"html_content" binding:"required"`
	CSSStyles       string `json:"css_styles" binding:"required"`
	IsPremium       bool   `json:"is_premium"`
	PreviewImageURL string `json:"preview_image_url"`
}

// UpsertTemplate 按 slug 创建或覆盖模板。写入前对 CSS 源做一次
// 颜色 token 归一，坏前缀不落库。
func (h *AdminHandler) UpsertTemplate(c *gin.Context) {
	var req upsertTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	css := render.RewriteColorTokens(req.CSSStyles)

	ctx := c.Request.Context()
	var model database.Template
	err := h.db.WithContext(ctx).Where("slug = ?", req.Slug).First(&model).Error
	switch {
	case err == nil:
		model.Name = req.Name
		model.Category = req.Category
		model.HTMLContent = req.HTMLContent
		model.CSSStyles = css
		model.IsPremium = req.IsPremium
		model.PreviewImageURL = req.PreviewImageURL
		if err := h.db.WithContext(ctx).Save(&model).Error; err != nil {
			Internal(c, "failed to update template")
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": model.Slug})
	case errors.Is(err, gorm.ErrRecordNotFound):
		model = database.Template{
			Slug:            req.Slug,
			Name:            req.Name,
			Category:        req.Category,
			HTMLContent:     req.HTMLContent,
			CSSStyles:       css,
			IsPremium:       req.IsPremium,
			PreviewImageURL: req.PreviewImageURL,
		}
		if err := h.db.WithContext(ctx).Create(&model).Error; err != nil {
			Internal(c, "failed to create template")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": model.Slug})
	default:
		Internal(c, "failed to query template")
	}
}

// DeleteTemplate 删除模板。引用它的简历在渲染时回退默认模板。
func (h *AdminHandler) DeleteTemplate(c *gin.Context) {
	slug := c.Param("id")
	res := h.db.WithContext(c.Request.Context()).Where("slug = ?", slug).Delete(&database.Template{})
	if res.Error != nil {
		Internal(c, "failed to delete template")
		return
	}
	if res.RowsAffected == 0 {
		NotFound(c, "template not found")
		return
	}
	c.Status(http.StatusNoContent)
}

// RepairTemplates 对所有存量模板的 CSS 跑一遍颜色归一，修复历史
// 坏数据（缺前缀或重复 "#"）。返回被修改的模板数。
func (h *AdminHandler) RepairTemplates(c *gin.Context) {
	ctx := c.Request.Context()
	var templates []database.Template
	if err := h.db.WithContext(ctx).Find(&templates).Error; err != nil {
		Internal(c, "failed to list templates")
		return
	}

	logger := middleware.LoggerFromContext(c)
	repaired := 0
	for i := range templates {
		fixed := render.RewriteColorTokens(templates[i].CSSStyles)
		if fixed == templates[i].CSSStyles {
			continue
		}
		if err := h.db.WithContext(ctx).Model(&templates[i]).Update("css_styles", fixed).Error; err != nil {
			logger.Error("repair template failed", slog.String("slug", templates[i].Slug), slog.Any("error", err))
			Internal(c, "failed to repair templates")
			return
		}
		logger.Info("template css repaired", slog.String("slug", templates[i].Slug))
		repaired++
	}

	c.JSON(http.StatusOK, gin.H{"checked": len(templates), "repaired": repaired})
}

type upsertPackageRequest struct {
	Name        string         `json:"name" binding:"required,max=255"`
	PriceCents  int            `json:"price_cents" binding:"min=0"`
	Currency    string         `json:"currency" binding:"max=8"`
	Credits     int            `json:"credits" binding:"min=0"`
	Features    datatypes.JSON `json:"features"`
	PaymentLink string         `json:"payment_link" binding:"max=512"`
	IsActive    *bool          `json:"is_active"`
}

// CreatePackage 新建套餐。
func (h *AdminHandler) CreatePackage(c *gin.Context) {
	var req upsertPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	model := database.PricingPackage{
		Name:        req.Name,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
		Credits:     req.Credits,
		Features:    req.Features,
		PaymentLink: req.PaymentLink,
		IsActive:    true,
	}
	if req.Currency == "" {
		model.Currency = "USD"
	}
	if req.IsActive != nil {
		model.IsActive = *req.IsActive
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&model).Error; err != nil {
		Internal(c, "failed to create package")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": model.ID})
}

// UpdatePackage 覆盖套餐。
func (h *AdminHandler) UpdatePackage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "invalid package id")
		return
	}

	var req upsertPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	var model database.PricingPackage
	if err := h.db.WithContext(ctx).First(&model, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "package not found")
		} else {
			Internal(c, "failed to query package")
		}
		return
	}

	model.Name = req.Name
	model.PriceCents = req.PriceCents
	if req.Currency != "" {
		model.Currency = req.Currency
	}
	model.Credits = req.Credits
	if req.Features != nil {
		model.Features = req.Features
	}
	model.PaymentLink = req.PaymentLink
	if req.IsActive != nil {
		model.IsActive = *req.IsActive
	}

	if err := h.db.WithContext(ctx).Save(&model).Error; err != nil {
		Internal(c, "failed to update package")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": model.ID})
}

// DeletePackage 删除套餐。
func (h *AdminHandler) DeletePackage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "invalid package id")
		return
	}

	res := h.db.WithContext(c.Request.Context()).Delete(&database.PricingPackage{}, uint(id))
	if res.Error != nil {
		Internal(c, "failed to delete package")
		return
	}
	if res.RowsAffected == 0 {
		NotFound(c, "package not found")
		return
	}
	c.Status(http.StatusNoContent)
}
