package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"cvforge/internal/editor"
	"cvforge/internal/render"
)

// TemplateCatalog 用数据库支撑编辑会话的模板目录。
type TemplateCatalog struct {
	db *gorm.DB
}

func NewTemplateCatalog(db *gorm.DB) *TemplateCatalog {
	return &TemplateCatalog{db: db}
}

func (c *TemplateCatalog) List(ctx context.Context) ([]editor.TemplateInfo, error) {
	var models []Template
	if err := c.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	infos := make([]editor.TemplateInfo, 0, len(models))
	for _, m := range models {
		infos = append(infos, editor.TemplateInfo{
			Slug:            m.Slug,
			Name:            m.Name,
			Category:        m.Category,
			IsPremium:       m.IsPremium,
			PreviewImageURL: m.PreviewImageURL,
		})
	}
	return infos, nil
}

func (c *TemplateCatalog) Fetch(ctx context.Context, slug string) (render.Template, error) {
	var m Template
	if err := c.db.WithContext(ctx).Where("slug = ?", slug).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return render.Template{}, editor.ErrTemplateNotFound
		}
		return render.Template{}, fmt.Errorf("fetch template %q: %w", slug, err)
	}
	return render.Template{Slug: m.Slug, HTMLContent: m.HTMLContent, CSSStyles: m.CSSStyles}, nil
}
