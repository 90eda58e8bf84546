package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cvforge/internal/database"
)

// PackageHandler 负责付费套餐的公开查询。
type PackageHandler struct {
	db *gorm.DB
}

func NewPackageHandler(db *gorm.DB) *PackageHandler {
	return &PackageHandler{db: db}
}

type packageItem struct {
	ID          uint           `json:"id"`
	Name        string         `json:"name"`
	PriceCents  int            `json:"price_cents"`
	Currency    string         `json:"currency"`
	Credits     int            `json:"credits"`
	Features    datatypes.JSON `json:"features"`
	PaymentLink string         `json:"payment_link,omitempty"`
}

// GET /v1/packages
// 仅返回激活的套餐，展示顺序按价格从低到高。
func (h *PackageHandler) ListPackages(c *gin.Context) {
	var models []database.PricingPackage
	if err := h.db.WithContext(c.Request.Context()).
		Where("is_active = ?", true).
		Order("price_cents ASC").
		Find(&models).Error; err != nil {
		Internal(c, "failed to list packages")
		return
	}

	items := make([]packageItem, 0, len(models))
	for _, m := range models {
		items = append(items, packageItem{
			ID:          m.ID,
			Name:        m.Name,
			PriceCents:  m.PriceCents,
			Currency:    m.Currency,
			Credits:     m.Credits,
			Features:    m.Features,
			PaymentLink: m.PaymentLink,
		})
	}
	c.JSON(http.StatusOK, items)
}
