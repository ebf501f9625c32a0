package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"teamkb/internal/model"
)

type KnowledgeBaseRepository struct {
	db *gorm.DB
}

func NewKnowledgeBaseRepository(db *gorm.DB) *KnowledgeBaseRepository {
	return &KnowledgeBaseRepository{db: db}
}

func (r *KnowledgeBaseRepository) Create(kb *model.KnowledgeBase) error {
	if err := r.db.Create(kb).Error; err != nil {
		return fmt.Errorf("create knowledge base failed: %w", err)
	}
	return nil
}

// GetByTeamID returns the team's knowledge base, nil when team setup has not
// created one yet.
func (r *KnowledgeBaseRepository) GetByTeamID(teamID uint) (*model.KnowledgeBase, error) {
	var kb model.KnowledgeBase
	if err := r.db.Where("team_id = ?", teamID).First(&kb).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get knowledge base failed: %w", err)
	}
	return &kb, nil
}

// GetOrCreateByTeamID lazily provisions the team's knowledge base.
func (r *KnowledgeBaseRepository) GetOrCreateByTeamID(teamID uint, name string) (*model.KnowledgeBase, error) {
	kb, err := r.GetByTeamID(teamID)
	if err != nil {
		return nil, err
	}
	if kb != nil {
		return kb, nil
	}
	kb = &model.KnowledgeBase{TeamID: teamID, Name: name}
	if err := r.Create(kb); err != nil {
		return nil, err
	}
	return kb, nil
}

func (r *KnowledgeBaseRepository) Save(kb *model.KnowledgeBase) error {
	if err := r.db.Save(kb).Error; err != nil {
		return fmt.Errorf("save knowledge base failed: %w", err)
	}
	return nil
}
