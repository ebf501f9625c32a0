package model

import "time"

// DocumentVersion is an immutable snapshot of a document's state, written
// before the live row is overwritten by a new upload.
type DocumentVersion struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	DocumentID    uint      `gorm:"not null;index" json:"document_id"`
	TeamID        uint      `gorm:"not null;index" json:"team_id"`
	VersionNumber int       `gorm:"not null" json:"version_number"` // the version being superseded
	Content       *string   `gorm:"type:longtext" json:"-"`
	StorageKey    string    `gorm:"size:512" json:"storage_key"`
	FileSize      int64     `json:"file_size"`
	VectorPointer *string   `gorm:"size:128" json:"vector_pointer,omitempty"`
	ChangeNote    string    `gorm:"size:1024" json:"change_note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
