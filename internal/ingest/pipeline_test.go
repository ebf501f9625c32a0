package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"teamkb/internal/chunker"
	"teamkb/internal/model"
	"teamkb/internal/vectorindex"
)

type fakeDocStore struct {
	docs       map[uint]*model.Document
	contents   map[uint]string
	pointers   map[uint]string
	pointerErr error
}

func newFakeDocStore(docs ...*model.Document) *fakeDocStore {
	s := &fakeDocStore{
		docs:     map[uint]*model.Document{},
		contents: map[uint]string{},
		pointers: map[uint]string{},
	}
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return s
}

func (s *fakeDocStore) GetByIDAndTeamID(id, teamID uint) (*model.Document, error) {
	doc, ok := s.docs[id]
	if !ok || doc.TeamID != teamID {
		return nil, nil
	}
	return doc, nil
}

func (s *fakeDocStore) SetContent(id uint, content string) error {
	s.contents[id] = content
	return nil
}

func (s *fakeDocStore) SetVectorPointer(id uint, pointer string) error {
	if s.pointerErr != nil {
		return s.pointerErr
	}
	s.pointers[id] = pointer
	return nil
}

func (s *fakeDocStore) ListUnindexed(teamID uint) ([]model.Document, error) {
	var out []model.Document
	for _, d := range s.docs {
		if d.TeamID == teamID && d.VectorPointer == nil && !d.IsArchived {
			out = append(out, *d)
		}
	}
	return out, nil
}

type fakeBlobStore struct {
	blobs map[string][]byte
	err   error
}

func (s *fakeBlobStore) Download(_ context.Context, key string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	data, ok := s.blobs[key]
	if !ok {
		return nil, errors.New("blob missing")
	}
	return data, nil
}

type fakeEmbedder struct {
	calls  int
	failOn string
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if e.failOn != "" && strings.Contains(text, e.failOn) {
			return nil, errors.New("embedding backend down")
		}
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

type fakeIndex struct {
	upserts     map[string]map[string]vectorindex.Record // namespace -> chunk key -> record
	deleteCalls []uint
	upsertErr   error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{upserts: map[string]map[string]vectorindex.Record{}}
}

func (f *fakeIndex) Upsert(_ context.Context, namespace string, records []vectorindex.Record) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if f.upserts[namespace] == nil {
		f.upserts[namespace] = map[string]vectorindex.Record{}
	}
	for _, rec := range records {
		f.upserts[namespace][rec.ChunkKey] = rec
	}
	return nil
}

func (f *fakeIndex) Query(context.Context, string, []float32, int, *vectorindex.Filter) ([]vectorindex.Match, error) {
	return nil, nil
}

func (f *fakeIndex) DeleteDocument(_ context.Context, namespace string, documentID uint) error {
	f.deleteCalls = append(f.deleteCalls, documentID)
	prefix := fmt.Sprintf("%d_chunk_", documentID)
	for key := range f.upserts[namespace] {
		if strings.HasPrefix(key, prefix) {
			delete(f.upserts[namespace], key)
		}
	}
	return nil
}

func newTestPipeline(docs *fakeDocStore, blobs *fakeBlobStore, embedder *fakeEmbedder, index *fakeIndex) *Pipeline {
	return NewPipeline(docs, blobs, embedder, index, zap.NewNop(), Options{
		ChunkSize:      20,
		ChunkOverlap:   4,
		EmbedBatchSize: 2,
		PreviewLength:  10,
	})
}

func textDoc(id, teamID uint, key string) *model.Document {
	return &model.Document{
		ID:         id,
		TeamID:     teamID,
		FolderID:   1,
		Title:      "doc",
		FileType:   model.FileTypeText,
		StorageKey: key,
	}
}

func TestProcessIndexesDocument(t *testing.T) {
	doc := textDoc(1, 7, "k1")
	docs := newFakeDocStore(doc)
	blobs := &fakeBlobStore{blobs: map[string][]byte{"k1": []byte(strings.Repeat("knowledge base text ", 5))}}
	index := newFakeIndex()

	p := newTestPipeline(docs, blobs, &fakeEmbedder{}, index)
	res := p.Process(context.Background(), 7, 1)

	if res.Status != StatusIndexed {
		t.Fatalf("status = %s, err = %v", res.Status, res.Err)
	}
	if docs.contents[1] == "" {
		t.Error("extracted content was not persisted")
	}
	want := chunker.ChunkKey(1, 0)
	if docs.pointers[1] != want {
		t.Errorf("pointer = %q, want %q", docs.pointers[1], want)
	}
	records := index.upserts[vectorindex.Namespace(7)]
	if len(records) == 0 {
		t.Fatal("no vector records upserted")
	}
	for key, rec := range records {
		if rec.Meta.DocumentID != 1 {
			t.Errorf("record %s has document id %d", key, rec.Meta.DocumentID)
		}
		if want := chunker.ChunkKey(1, rec.Meta.ChunkIndex); key != want {
			t.Errorf("chunk key %q, want %q", key, want)
		}
	}
}

func TestProcessInlineContentSkipsDownload(t *testing.T) {
	doc := textDoc(2, 7, "")
	doc.SetExtracted("inline transcript content that is long enough to chunk")
	docs := newFakeDocStore(doc)
	blobs := &fakeBlobStore{err: errors.New("must not be called")}
	index := newFakeIndex()

	p := newTestPipeline(docs, blobs, &fakeEmbedder{}, index)
	res := p.Process(context.Background(), 7, 2)

	if res.Status != StatusIndexed {
		t.Fatalf("status = %s, err = %v", res.Status, res.Err)
	}
}

func TestProcessSkipsUnsupportedFileType(t *testing.T) {
	doc := textDoc(3, 7, "k3")
	doc.FileType = model.FileTypeImage
	docs := newFakeDocStore(doc)
	blobs := &fakeBlobStore{blobs: map[string][]byte{"k3": {0x1, 0x2}}}
	index := newFakeIndex()

	p := newTestPipeline(docs, blobs, &fakeEmbedder{}, index)
	res := p.Process(context.Background(), 7, 3)

	if res.Status != StatusSkipped {
		t.Fatalf("status = %s, want skipped", res.Status)
	}
	if _, ok := docs.pointers[3]; ok {
		t.Error("skipped document must not get a vector pointer")
	}
}

func TestProcessSkipsEmptyContent(t *testing.T) {
	doc := textDoc(4, 7, "k4")
	docs := newFakeDocStore(doc)
	blobs := &fakeBlobStore{blobs: map[string][]byte{"k4": []byte("   \n\t ")}}

	p := newTestPipeline(docs, blobs, &fakeEmbedder{}, newFakeIndex())
	res := p.Process(context.Background(), 7, 4)

	if res.Status != StatusSkipped {
		t.Fatalf("status = %s, want skipped", res.Status)
	}
}

func TestProcessUpsertFailureKeepsContentDropsPointer(t *testing.T) {
	doc := textDoc(5, 7, "k5")
	docs := newFakeDocStore(doc)
	blobs := &fakeBlobStore{blobs: map[string][]byte{"k5": []byte("some indexable body text")}}
	index := newFakeIndex()
	index.upsertErr = errors.New("qdrant unavailable")

	p := newTestPipeline(docs, blobs, &fakeEmbedder{}, index)
	res := p.Process(context.Background(), 7, 5)

	if res.Status != StatusError {
		t.Fatalf("status = %s, want error", res.Status)
	}
	if docs.contents[5] == "" {
		t.Error("extraction succeeded, content must survive the vector failure")
	}
	if _, ok := docs.pointers[5]; ok {
		t.Error("pointer must not be written when upsert fails")
	}
}

func TestProcessEmbedFailure(t *testing.T) {
	doc := textDoc(6, 7, "k6")
	docs := newFakeDocStore(doc)
	blobs := &fakeBlobStore{blobs: map[string][]byte{"k6": []byte("poison text")}}

	p := newTestPipeline(docs, blobs, &fakeEmbedder{failOn: "poison"}, newFakeIndex())
	res := p.Process(context.Background(), 7, 6)

	if res.Status != StatusError {
		t.Fatalf("status = %s, want error", res.Status)
	}
	if _, ok := docs.pointers[6]; ok {
		t.Error("pointer must not be written when embedding fails")
	}
}

func TestProcessReindexOverwrites(t *testing.T) {
	doc := textDoc(8, 7, "k8")
	docs := newFakeDocStore(doc)
	blobs := &fakeBlobStore{blobs: map[string][]byte{"k8": []byte(strings.Repeat("stable content ", 4))}}
	index := newFakeIndex()

	p := newTestPipeline(docs, blobs, &fakeEmbedder{}, index)
	if res := p.Process(context.Background(), 7, 8); res.Status != StatusIndexed {
		t.Fatalf("first run: %s, err %v", res.Status, res.Err)
	}
	first := len(index.upserts[vectorindex.Namespace(7)])

	if res := p.Process(context.Background(), 7, 8); res.Status != StatusIndexed {
		t.Fatalf("second run: %s, err %v", res.Status, res.Err)
	}
	second := len(index.upserts[vectorindex.Namespace(7)])

	if first != second {
		t.Errorf("re-indexing changed record count: %d vs %d", first, second)
	}
	if len(index.deleteCalls) != 2 {
		t.Errorf("stale points cleared %d times, want 2", len(index.deleteCalls))
	}
}

func TestProcessUnknownDocument(t *testing.T) {
	p := newTestPipeline(newFakeDocStore(), &fakeBlobStore{}, &fakeEmbedder{}, newFakeIndex())
	res := p.Process(context.Background(), 7, 99)
	if res.Status != StatusError {
		t.Fatalf("status = %s, want error", res.Status)
	}
}
