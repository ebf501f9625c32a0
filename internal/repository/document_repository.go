package repository

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"teamkb/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

// GetByIDAndTeamID returns nil when the document is absent or belongs to
// another team.
func (r *DocumentRepository) GetByIDAndTeamID(id, teamID uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("id = ? AND team_id = ?", id, teamID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) Save(doc *model.Document) error {
	if err := r.db.Save(doc).Error; err != nil {
		return fmt.Errorf("save document failed: %w", err)
	}
	return nil
}

// SetContent persists extracted text as soon as extraction succeeds, so a
// failure later in the pipeline does not lose the work.
func (r *DocumentRepository) SetContent(id uint, content string) error {
	if err := r.db.Model(&model.Document{}).Where("id = ?", id).
		Update("content", content).Error; err != nil {
		return fmt.Errorf("set document content failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) SetVectorPointer(id uint, pointer string) error {
	if err := r.db.Model(&model.Document{}).Where("id = ?", id).
		Update("vector_pointer", pointer).Error; err != nil {
		return fmt.Errorf("set vector pointer failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) ListByTeamID(teamID uint, folderID *uint) ([]model.Document, error) {
	q := r.db.Where("team_id = ? AND is_archived = ?", teamID, false)
	if folderID != nil {
		q = q.Where("folder_id = ?", *folderID)
	}
	var docs []model.Document
	if err := q.Order("updated_at DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) ListByFolderID(folderID uint) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.Where("folder_id = ?", folderID).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents by folder failed: %w", err)
	}
	return docs, nil
}

// ListUnindexed returns non-archived documents with no vector pointer, which
// is the batch reprocessor's work list.
func (r *DocumentRepository) ListUnindexed(teamID uint) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.
		Where("team_id = ? AND is_archived = ? AND vector_pointer IS NULL", teamID, false).
		Order("id ASC").
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list unindexed documents failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) ListByIDsAndTeamID(ids []uint, teamID uint) ([]model.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var docs []model.Document
	if err := r.db.
		Where("id IN ? AND team_id = ? AND is_archived = ?", ids, teamID, false).
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents by ids failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) Archive(id, teamID uint) error {
	res := r.db.Model(&model.Document{}).
		Where("id = ? AND team_id = ?", id, teamID).
		Update("is_archived", true)
	if res.Error != nil {
		return fmt.Errorf("archive document failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete hard-deletes a single row. Used to roll back a freshly created
// document whose blob upload failed; cascade cleanup goes through
// DeleteByFolderID.
func (r *DocumentRepository) Delete(id uint) error {
	if err := r.db.Delete(&model.Document{}, id).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}

// DeleteByFolderID hard-deletes documents (and their version rows) during
// folder cascade. Blob and vector cleanup is the caller's job.
func (r *DocumentRepository) DeleteByFolderID(folderID uint) error {
	var ids []uint
	if err := r.db.Model(&model.Document{}).Where("folder_id = ?", folderID).
		Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("list document ids by folder failed: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.Where("document_id IN ?", ids).Delete(&model.DocumentVersion{}).Error; err != nil {
		return fmt.Errorf("delete document versions by folder failed: %w", err)
	}
	if err := r.db.Where("document_id IN ?", ids).Delete(&model.Favorite{}).Error; err != nil {
		return fmt.Errorf("delete favorites by folder failed: %w", err)
	}
	if err := r.db.Where("id IN ?", ids).Delete(&model.Document{}).Error; err != nil {
		return fmt.Errorf("delete documents by folder failed: %w", err)
	}
	return nil
}

// KeywordFilter narrows a keyword search.
type KeywordFilter struct {
	FolderID  *uint
	FileTypes []string
	Tags      []string
}

// KeywordSearch runs the constant-confidence tier: case-insensitive substring
// match over title/description/content plus tag-token overlap, scoped to the
// team, ordered by recency.
func (r *DocumentRepository) KeywordSearch(teamID uint, query string, tokens []string, filter KeywordFilter, limit int) ([]model.Document, error) {
	q := r.db.Where("team_id = ? AND is_archived = ?", teamID, false)
	if filter.FolderID != nil {
		q = q.Where("folder_id = ?", *filter.FolderID)
	}
	if len(filter.FileTypes) > 0 {
		q = q.Where("file_type IN ?", filter.FileTypes)
	}
	// Any-match on the tag filter, same as the semantic tier.
	if len(filter.Tags) > 0 {
		tagQ := r.db.Where("LOWER(tags) LIKE ?", tagPattern(filter.Tags[0]))
		for _, tag := range filter.Tags[1:] {
			tagQ = tagQ.Or("LOWER(tags) LIKE ?", tagPattern(tag))
		}
		q = q.Where(tagQ)
	}

	like := "%" + strings.ToLower(query) + "%"
	match := r.db.
		Where("LOWER(title) LIKE ?", like).
		Or("LOWER(description) LIKE ?", like).
		Or("content IS NOT NULL AND LOWER(content) LIKE ?", like)
	for _, tok := range tokens {
		match = match.Or("LOWER(tags) LIKE ?", tagPattern(tok))
	}
	q = q.Where(match)

	var docs []model.Document
	if err := q.Order("updated_at DESC").Limit(limit).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	return docs, nil
}

// tagPattern matches one exact tag inside the JSON-encoded tag array.
func tagPattern(tag string) string {
	return `%"` + strings.ToLower(tag) + `"%`
}
