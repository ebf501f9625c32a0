package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"teamkb/internal/chunker"
	"teamkb/internal/extract"
	"teamkb/internal/model"
	"teamkb/internal/vectorindex"
)

// Status of one document's ingestion attempt.
const (
	StatusIndexed = "indexed"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// Result is the per-document outcome. Err is non-nil only for StatusError.
type Result struct {
	DocumentID uint   `json:"id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	Err        error  `json:"-"`
}

// DocumentStore is the slice of the relational store the pipeline needs.
type DocumentStore interface {
	GetByIDAndTeamID(id, teamID uint) (*model.Document, error)
	SetContent(id uint, content string) error
	SetVectorPointer(id uint, pointer string) error
	ListUnindexed(teamID uint) ([]model.Document, error)
}

// BlobStore is the download side of the object store.
type BlobStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// Embedder turns chunk texts into vectors, batched.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Options tune chunking and embedding batches.
type Options struct {
	ChunkSize      int
	ChunkOverlap   int
	EmbedBatchSize int
	PreviewLength  int
}

func (o Options) withDefaults() Options {
	if o.EmbedBatchSize <= 0 {
		o.EmbedBatchSize = 10
	}
	if o.PreviewLength <= 0 {
		o.PreviewLength = 200
	}
	return o
}

// Pipeline drives one document through extract → chunk → embed → upsert.
// Errors are captured per document so a batch driver can keep going.
type Pipeline struct {
	docs      DocumentStore
	blobs     BlobStore
	extractor *extract.Extractor
	chunker   *chunker.Chunker
	embedder  Embedder
	index     vectorindex.Index
	logger    *zap.Logger
	opts      Options
}

func NewPipeline(
	docs DocumentStore,
	blobs BlobStore,
	embedder Embedder,
	index vectorindex.Index,
	logger *zap.Logger,
	opts Options,
) *Pipeline {
	opts = opts.withDefaults()
	return &Pipeline{
		docs:      docs,
		blobs:     blobs,
		extractor: extract.New(),
		chunker:   chunker.New(opts.ChunkSize, opts.ChunkOverlap),
		embedder:  embedder,
		index:     index,
		logger:    logger,
		opts:      opts,
	}
}

// Process ingests one document. It never panics or propagates an error as a
// throw: the Result carries the outcome so callers decide continue vs abort.
func (p *Pipeline) Process(ctx context.Context, teamID, documentID uint) Result {
	doc, err := p.docs.GetByIDAndTeamID(documentID, teamID)
	if err != nil {
		return errResult(documentID, "", err)
	}
	if doc == nil {
		return errResult(documentID, "", fmt.Errorf("document %d not found", documentID))
	}

	content, res, done := p.resolveContent(ctx, doc)
	if done {
		return res
	}

	chunks := p.chunker.Split(content)
	if len(chunks) == 0 {
		p.logger.Info("ingest skipped: empty content",
			zap.Uint("document_id", doc.ID))
		return Result{DocumentID: doc.ID, Title: doc.Title, Status: StatusSkipped}
	}

	vectors, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return errResult(doc.ID, doc.Title, fmt.Errorf("embed chunks: %w", err))
	}

	records := p.buildRecords(doc, chunks, vectors)
	namespace := vectorindex.Namespace(teamID)

	// Re-chunking a shorter version leaves stale high-index points behind;
	// clear the document's points before upserting.
	if err := p.index.DeleteDocument(ctx, namespace, doc.ID); err != nil {
		return errResult(doc.ID, doc.Title, fmt.Errorf("clear stale vectors: %w", err))
	}
	if err := p.index.Upsert(ctx, namespace, records); err != nil {
		// No pointer is written on upsert failure: the document stays
		// UNINDEXED and the next batch pass retries it.
		return errResult(doc.ID, doc.Title, fmt.Errorf("upsert vectors: %w", err))
	}

	pointer := chunker.ChunkKey(doc.ID, 0)
	if err := p.docs.SetVectorPointer(doc.ID, pointer); err != nil {
		return errResult(doc.ID, doc.Title, err)
	}

	p.logger.Info("ingest indexed",
		zap.Uint("document_id", doc.ID),
		zap.Int("chunks", len(records)))
	return Result{DocumentID: doc.ID, Title: doc.Title, Status: StatusIndexed}
}

// resolveContent returns the text to index. Content supplied upstream (e.g.
// meeting transcripts) is used as-is; otherwise the blob is downloaded and
// extracted, and the text persisted immediately.
func (p *Pipeline) resolveContent(ctx context.Context, doc *model.Document) (string, Result, bool) {
	if doc.Content != nil {
		return *doc.Content, Result{}, false
	}

	data, err := p.blobs.Download(ctx, doc.StorageKey)
	if err != nil {
		return "", errResult(doc.ID, doc.Title, fmt.Errorf("download blob: %w", err)), true
	}

	text, err := p.extractor.Extract(data, doc.FileType)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupported) {
			p.logger.Info("ingest skipped: unsupported file type",
				zap.Uint("document_id", doc.ID),
				zap.String("file_type", doc.FileType))
			return "", Result{DocumentID: doc.ID, Title: doc.Title, Status: StatusSkipped}, true
		}
		return "", errResult(doc.ID, doc.Title, fmt.Errorf("extract text: %w", err)), true
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", Result{DocumentID: doc.ID, Title: doc.Title, Status: StatusSkipped}, true
	}

	if err := p.docs.SetContent(doc.ID, text); err != nil {
		return "", errResult(doc.ID, doc.Title, err), true
	}
	doc.SetExtracted(text)
	return text, Result{}, false
}

func (p *Pipeline) embedChunks(ctx context.Context, chunks []chunker.Chunk) ([][]float32, error) {
	var vectors [][]float32
	for i := 0; i < len(chunks); i += p.opts.EmbedBatchSize {
		end := i + p.opts.EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-i)
		for _, c := range chunks[i:end] {
			texts = append(texts, c.Text)
		}
		batch, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: want %d got %d", len(chunks), len(vectors))
	}
	return vectors, nil
}

func (p *Pipeline) buildRecords(doc *model.Document, chunks []chunker.Chunk, vectors [][]float32) []vectorindex.Record {
	records := make([]vectorindex.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vectorindex.Record{
			ChunkKey: chunker.ChunkKey(doc.ID, c.Index),
			Vector:   vectors[i],
			Meta: vectorindex.RecordMeta{
				DocumentID:      doc.ID,
				KnowledgeBaseID: doc.KnowledgeBaseID,
				FolderID:        doc.FolderID,
				ChunkIndex:      c.Index,
				FileType:        doc.FileType,
				Title:           doc.Title,
				Tags:            doc.TagList(),
				Preview:         truncate(c.Text, p.opts.PreviewLength),
			},
		}
	}
	return records
}

func errResult(documentID uint, title string, err error) Result {
	return Result{DocumentID: documentID, Title: title, Status: StatusError, Err: err}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
