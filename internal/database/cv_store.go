package database

import (
	"context"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cvforge/internal/cv"
)

// CVStore 是简历记录的 gorm 持久化后端，归属校验放在 WHERE 里，
// 避免读-改-写窗口。
type CVStore struct {
	db *gorm.DB
}

func NewCVStore(db *gorm.DB) *CVStore {
	return &CVStore{db: db}
}

func (s *CVStore) Create(ctx context.Context, userID uint, title, templateID string, rec cv.Record) (uint, error) {
	data, err := rec.ToJSON()
	if err != nil {
		return 0, err
	}

	if templateID == "" {
		templateID = "modern"
	}

	model := CV{
		Title:      title,
		TemplateID: templateID,
		Data:       datatypes.JSON(data),
		UserID:     userID,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return 0, fmt.Errorf("insert cv: %w", err)
	}
	return model.ID, nil
}

func (s *CVStore) Update(ctx context.Context, userID, id uint, title, templateID string, rec cv.Record) error {
	data, err := rec.ToJSON()
	if err != nil {
		return err
	}

	updates := map[string]any{
		"title": title,
		"data":  datatypes.JSON(data),
	}
	if templateID != "" {
		updates["template_id"] = templateID
	}

	res := s.db.WithContext(ctx).Model(&CV{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update cv: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
