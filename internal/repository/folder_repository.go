package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"teamkb/internal/model"
)

type FolderRepository struct {
	db *gorm.DB
}

func NewFolderRepository(db *gorm.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

func (r *FolderRepository) Create(folder *model.Folder) error {
	if err := r.db.Create(folder).Error; err != nil {
		return fmt.Errorf("create folder failed: %w", err)
	}
	return nil
}

func (r *FolderRepository) GetByIDAndTeamID(id, teamID uint) (*model.Folder, error) {
	var folder model.Folder
	if err := r.db.Where("id = ? AND team_id = ?", id, teamID).First(&folder).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get folder failed: %w", err)
	}
	return &folder, nil
}

func (r *FolderRepository) ListByTeamID(teamID uint) ([]model.Folder, error) {
	var folders []model.Folder
	if err := r.db.Where("team_id = ?", teamID).Order("name ASC").Find(&folders).Error; err != nil {
		return nil, fmt.Errorf("list folders failed: %w", err)
	}
	return folders, nil
}

func (r *FolderRepository) ListChildren(parentID uint) ([]model.Folder, error) {
	var folders []model.Folder
	if err := r.db.Where("parent_folder_id = ?", parentID).Find(&folders).Error; err != nil {
		return nil, fmt.Errorf("list child folders failed: %w", err)
	}
	return folders, nil
}

// FindTranscriptFolder returns the reserved transcripts folder for a project,
// nil when it has not been created yet.
func (r *FolderRepository) FindTranscriptFolder(teamID, projectID uint) (*model.Folder, error) {
	var folder model.Folder
	err := r.db.
		Where("team_id = ? AND project_id = ? AND type = ?", teamID, projectID, model.FolderTypeTranscripts).
		First(&folder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find transcript folder failed: %w", err)
	}
	return &folder, nil
}

func (r *FolderRepository) Save(folder *model.Folder) error {
	if err := r.db.Save(folder).Error; err != nil {
		return fmt.Errorf("save folder failed: %w", err)
	}
	return nil
}

func (r *FolderRepository) Delete(id uint) error {
	if err := r.db.Delete(&model.Folder{}, id).Error; err != nil {
		return fmt.Errorf("delete folder failed: %w", err)
	}
	return nil
}
