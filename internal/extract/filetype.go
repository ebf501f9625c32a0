package extract

import (
	"path/filepath"
	"strings"

	"teamkb/internal/model"
)

// DetectFileType maps a filename and declared mime type to the file-type tag
// the extractor dispatches on. Extension wins over mime when both are present.
func DetectFileType(filename, mimeType string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return model.FileTypePDF
	case ".md", ".markdown":
		return model.FileTypeMarkdown
	case ".txt", ".text", ".csv", ".log":
		return model.FileTypeText
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp":
		return model.FileTypeImage
	case ".mp3", ".wav", ".m4a", ".ogg", ".flac":
		return model.FileTypeAudio
	}

	mime := strings.ToLower(mimeType)
	switch {
	case mime == "application/pdf":
		return model.FileTypePDF
	case mime == "text/markdown":
		return model.FileTypeMarkdown
	case strings.HasPrefix(mime, "text/"):
		return model.FileTypeText
	case strings.HasPrefix(mime, "image/"):
		return model.FileTypeImage
	case strings.HasPrefix(mime, "audio/"):
		return model.FileTypeAudio
	}
	return model.FileTypeOther
}
