package repository

import (
	"fmt"

	"gorm.io/gorm"

	"teamkb/internal/model"
)

type FavoriteRepository struct {
	db *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

func (r *FavoriteRepository) Create(fav *model.Favorite) error {
	if err := r.db.Create(fav).Error; err != nil {
		return fmt.Errorf("create favorite failed: %w", err)
	}
	return nil
}

func (r *FavoriteRepository) Delete(userID, documentID uint) error {
	if err := r.db.
		Where("user_id = ? AND document_id = ?", userID, documentID).
		Delete(&model.Favorite{}).Error; err != nil {
		return fmt.Errorf("delete favorite failed: %w", err)
	}
	return nil
}

func (r *FavoriteRepository) Exists(userID, documentID uint) (bool, error) {
	var count int64
	if err := r.db.Model(&model.Favorite{}).
		Where("user_id = ? AND document_id = ?", userID, documentID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check favorite failed: %w", err)
	}
	return count > 0, nil
}

func (r *FavoriteRepository) ListDocumentIDsByUser(userID, teamID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&model.Favorite{}).
		Where("user_id = ? AND team_id = ?", userID, teamID).
		Pluck("document_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list favorite document ids failed: %w", err)
	}
	return ids, nil
}
