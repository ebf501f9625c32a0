package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"teamkb/internal/model"
)

var (
	// ErrUnsupported marks file types with no text to extract (image, audio).
	// Callers treat this as "skip", never as a pipeline failure.
	ErrUnsupported = errors.New("unsupported file type for extraction")

	// ErrMalformed marks a blob that claims an extractable type but cannot
	// be parsed.
	ErrMalformed = errors.New("malformed file")
)

// Extractor turns a blob into plain text based on its file-type tag.
// Pure function of the bytes; no side effects.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(data []byte, fileType string) (string, error) {
	switch fileType {
	case model.FileTypeText, model.FileTypeMarkdown:
		return decodeUTF8(data)
	case model.FileTypePDF:
		return extractPDF(data)
	case model.FileTypeImage, model.FileTypeAudio:
		return "", ErrUnsupported
	default:
		return "", ErrUnsupported
	}
}

func decodeUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: not valid utf-8", ErrMalformed)
	}
	return string(data), nil
}

// recoverMalformed converts a parser panic into ErrMalformed. The pdf library
// panics on some corrupt inputs (bad xref offsets, truncated streams) instead
// of returning an error, and ingestion runs outside any HTTP recovery layer.
func recoverMalformed(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: pdf parser panic: %v", ErrMalformed, r)
	}
}

// extractPDF converts the byte stream to plain text. The pdf reader holds no
// file handles here (it reads from memory), so there is nothing to release on
// the error paths beyond letting the reader go out of scope.
func extractPDF(data []byte) (text string, err error) {
	defer recoverMalformed(&err)
	if len(data) == 0 {
		return "", nil
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", ErrMalformed, err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: pdf to text: %v", ErrMalformed, err)
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("%w: read pdf text: %v", ErrMalformed, err)
	}
	return string(out), nil
}
