package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Email            string `gorm:"uniqueIndex;size:255"`
	PasswordHash     string `gorm:"size:255"`
	FullName         string `gorm:"size:255"`
	SubscriptionPlan string `gorm:"size:32;default:free"`
	Credits          int    `gorm:"default:3"`
	CVs              []CV   `gorm:"constraint:OnDelete:CASCADE"`
}

// IsPro 表示用户是否具备高级模板权限。
func (u *User) IsPro() bool {
	return u.SubscriptionPlan == "pro"
}

// CV 表示用户保存的一份简历。
// Data 以 JSONB 存储规范化后的字段集合（见 internal/cv）。
type CV struct {
	gorm.Model
	Title      string         `gorm:"size:255"`
	TemplateID string         `gorm:"size:64;index"`
	Data       datatypes.JSON `gorm:"type:jsonb"`
	UserID     uint           `gorm:"index"`
	User       User           `gorm:"constraint:OnDelete:CASCADE"`
	PreviewURL string         `gorm:"size:512"`
}

// Template 表示画廊中的简历模板。
// Slug 是稳定标识（modern/classic/...），HTMLContent 与 CSSStyles 为
// Mustache 模板源文本。
type Template struct {
	gorm.Model
	Slug            string `gorm:"uniqueIndex;size:64"`
	Name            string `gorm:"size:255"`
	Category        string `gorm:"size:64"`
	HTMLContent     string `gorm:"type:text"`
	CSSStyles       string `gorm:"type:text"`
	IsPremium       bool   `gorm:"default:false"`
	PreviewImageURL string `gorm:"size:512"`
}

// PricingPackage 表示付费套餐的展示信息。
// 仅承载商品元数据，支付链接是不透明字符串。
type PricingPackage struct {
	gorm.Model
	Name        string         `gorm:"size:255"`
	PriceCents  int            `gorm:"default:0"`
	Currency    string         `gorm:"size:8;default:USD"`
	Credits     int            `gorm:"default:0"`
	Features    datatypes.JSON `gorm:"type:jsonb"`
	PaymentLink string         `gorm:"size:512"`
	IsActive    bool           `gorm:"default:true"`
}
