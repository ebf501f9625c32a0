package chunker

import (
	"fmt"
	"strings"
)

const (
	defaultChunkSize    = 512
	defaultChunkOverlap = 64
)

// Chunk is a bounded slice of a document's extracted text. Index starts at 0
// and increases by 1 with no gaps; the same input always yields the same
// boundaries and indices, which is what makes re-indexing idempotent.
type Chunk struct {
	Index int
	Text  string
}

// Chunker splits text into overlapping fixed-size rune windows.
type Chunker struct {
	size    int
	overlap int
}

func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 8
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split returns the ordered chunk sequence for text. Whitespace-only input
// yields no chunks.
func (c *Chunker) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	step := c.size - c.overlap

	var chunks []Chunk
	for i, idx := 0, 0; i < len(runes); idx++ {
		end := i + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{Index: idx, Text: string(runes[i:end])})
		if end == len(runes) {
			break
		}
		i += step
	}
	return chunks
}

// ChunkKey is the stable identifier for one chunk of one document. Vector
// records derive their ids from it, so re-running ingestion overwrites
// instead of duplicating.
func ChunkKey(documentID uint, index int) string {
	return fmt.Sprintf("%d_chunk_%d", documentID, index)
}
