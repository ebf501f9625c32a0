package repository

import (
	"fmt"

	"gorm.io/gorm"

	"teamkb/internal/model"
)

type DocumentVersionRepository struct {
	db *gorm.DB
}

func NewDocumentVersionRepository(db *gorm.DB) *DocumentVersionRepository {
	return &DocumentVersionRepository{db: db}
}

// Create writes an immutable snapshot. Must complete before the live document
// row is mutated (snapshot-before-mutate).
func (r *DocumentVersionRepository) Create(version *model.DocumentVersion) error {
	if err := r.db.Create(version).Error; err != nil {
		return fmt.Errorf("create document version failed: %w", err)
	}
	return nil
}

func (r *DocumentVersionRepository) ListByDocumentID(documentID uint) ([]model.DocumentVersion, error) {
	var versions []model.DocumentVersion
	if err := r.db.Where("document_id = ?", documentID).
		Order("version_number DESC").
		Find(&versions).Error; err != nil {
		return nil, fmt.Errorf("list document versions failed: %w", err)
	}
	return versions, nil
}

func (r *DocumentVersionRepository) CountByDocumentID(documentID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&model.DocumentVersion{}).
		Where("document_id = ?", documentID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count document versions failed: %w", err)
	}
	return count, nil
}
