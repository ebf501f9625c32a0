package model

import (
	"encoding/json"
	"time"
)

// FileType tags drive the text-extraction dispatch.
const (
	FileTypePDF      = "pdf"
	FileTypeText     = "text"
	FileTypeMarkdown = "markdown"
	FileTypeImage    = "image"
	FileTypeAudio    = "audio"
	FileTypeOther    = "other"
)

// Document source.
const (
	SourceUpload            = "UPLOAD"
	SourceMeetingTranscript = "MEETING_TRANSCRIPT"
)

// IndexState is the document's position in the ingestion lifecycle,
// derived from the nullability of Content and VectorPointer.
type IndexState string

const (
	StateUnindexed IndexState = "UNINDEXED"
	StateExtracted IndexState = "EXTRACTED"
	StateIndexed   IndexState = "INDEXED"
)

type Document struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	TeamID            uint      `gorm:"not null;index" json:"team_id"`
	KnowledgeBaseID   uint      `gorm:"not null;index" json:"knowledge_base_id"`
	FolderID          uint      `gorm:"not null;index" json:"folder_id"`
	Title             string    `gorm:"size:256;not null" json:"title"`
	Description       string    `gorm:"size:1024" json:"description,omitempty"`
	FileType          string    `gorm:"size:32;not null" json:"file_type"`
	MimeType          string    `gorm:"size:128" json:"mime_type"`
	FileSize          int64     `json:"file_size"`
	StorageKey        string    `gorm:"size:512" json:"storage_key"`
	FileURL           string    `gorm:"size:1024" json:"file_url"`
	Content           *string   `gorm:"type:longtext" json:"-"`
	CurrentVersion    int       `gorm:"not null;default:1" json:"current_version"`
	VectorPointer     *string   `gorm:"size:128" json:"vector_pointer,omitempty"`
	Tags              string    `gorm:"type:text" json:"-"` // JSON array of strings
	Source            string    `gorm:"size:32;not null;default:UPLOAD" json:"source"`
	SourceReferenceID string    `gorm:"size:128" json:"source_reference_id,omitempty"`
	Attributes        string    `gorm:"type:text" json:"-"` // JSON DocumentAttributes
	IsArchived        bool      `gorm:"not null;default:false;index" json:"is_archived"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DocumentAttributes is the typed replacement for an open-ended metadata blob.
type DocumentAttributes struct {
	SchemaVersion int    `json:"schema_version"`
	Language      string `json:"language,omitempty"`
	PageCount     int    `json:"page_count,omitempty"`
	UploadedBy    uint   `json:"uploaded_by,omitempty"`
}

// IndexState reports the lifecycle state implied by Content/VectorPointer.
func (d *Document) IndexState() IndexState {
	switch {
	case d.VectorPointer != nil:
		return StateIndexed
	case d.Content != nil:
		return StateExtracted
	default:
		return StateUnindexed
	}
}

// SetExtracted records extracted text, moving the document to EXTRACTED.
func (d *Document) SetExtracted(text string) {
	d.Content = &text
}

// SetIndexed records the vector pointer. A document cannot be indexed
// without extracted content.
func (d *Document) SetIndexed(pointer string) bool {
	if d.Content == nil {
		return false
	}
	d.VectorPointer = &pointer
	return true
}

// ClearIndex resets the document to UNINDEXED (used when a new version
// supersedes the current blob).
func (d *Document) ClearIndex() {
	d.Content = nil
	d.VectorPointer = nil
}

// TagList returns the parsed tag set; empty on parse error.
func (d *Document) TagList() []string {
	if d.Tags == "" {
		return nil
	}
	var tags []string
	_ = json.Unmarshal([]byte(d.Tags), &tags)
	return tags
}

// SetTagList stores the tag set as JSON.
func (d *Document) SetTagList(tags []string) {
	if len(tags) == 0 {
		d.Tags = "[]"
		return
	}
	b, _ := json.Marshal(tags)
	d.Tags = string(b)
}

// Attrs returns the parsed attributes; zero value on parse error.
func (d *Document) Attrs() DocumentAttributes {
	var a DocumentAttributes
	if d.Attributes != "" {
		_ = json.Unmarshal([]byte(d.Attributes), &a)
	}
	return a
}

// SetAttrs stores the attributes as JSON.
func (d *Document) SetAttrs(a DocumentAttributes) {
	if a.SchemaVersion == 0 {
		a.SchemaVersion = 1
	}
	b, _ := json.Marshal(a)
	d.Attributes = string(b)
}
