package model

import "time"

// Folder types. The transcripts folder is reserved for the auto-save path.
const (
	FolderTypeGeneral     = "general"
	FolderTypeTranscripts = "transcripts"
)

type Folder struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	TeamID          uint      `gorm:"not null;index" json:"team_id"`
	KnowledgeBaseID uint      `gorm:"not null;index" json:"knowledge_base_id"`
	ParentFolderID  *uint     `gorm:"index" json:"parent_folder_id,omitempty"` // nil = root level
	ProjectID       *uint     `gorm:"index" json:"project_id,omitempty"`
	Name            string    `gorm:"size:256;not null" json:"name"`
	Type            string    `gorm:"size:32;not null;default:general" json:"type"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
