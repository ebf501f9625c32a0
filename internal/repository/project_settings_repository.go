package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"teamkb/internal/model"
)

type ProjectSettingsRepository struct {
	db *gorm.DB
}

func NewProjectSettingsRepository(db *gorm.DB) *ProjectSettingsRepository {
	return &ProjectSettingsRepository{db: db}
}

func (r *ProjectSettingsRepository) GetByProjectID(projectID uint) (*model.ProjectSettings, error) {
	var settings model.ProjectSettings
	if err := r.db.Where("project_id = ?", projectID).First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get project settings failed: %w", err)
	}
	return &settings, nil
}

func (r *ProjectSettingsRepository) Create(settings *model.ProjectSettings) error {
	if err := r.db.Create(settings).Error; err != nil {
		return fmt.Errorf("create project settings failed: %w", err)
	}
	return nil
}

func (r *ProjectSettingsRepository) Save(settings *model.ProjectSettings) error {
	if err := r.db.Save(settings).Error; err != nil {
		return fmt.Errorf("save project settings failed: %w", err)
	}
	return nil
}
