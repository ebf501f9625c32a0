package model

import "time"

// ProjectSettings holds per-project knowledge base configuration. Created
// lazily; the transcript folder it points at is created on first use.
type ProjectSettings struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	TeamID              uint      `gorm:"not null;index" json:"team_id"`
	KnowledgeBaseID     uint      `gorm:"not null;index" json:"knowledge_base_id"`
	ProjectID           uint      `gorm:"not null;uniqueIndex" json:"project_id"`
	AutoSaveTranscripts bool      `gorm:"not null;default:true" json:"auto_save_transcripts"`
	TranscriptFolderID  *uint     `json:"transcript_folder_id,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
