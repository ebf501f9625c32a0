package app

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"teamkb/internal/model"
	"teamkb/internal/repository"
	"teamkb/internal/vectorindex"
)

type fakeSearchDocRepo struct {
	keywordDocs  []model.Document
	keywordErr   error
	docsByID     map[uint]model.Document
	gotLimit     int
	gotTokens    []string
	gotKeyFilter repository.KeywordFilter
}

func (r *fakeSearchDocRepo) Create(*model.Document) error { return nil }
func (r *fakeSearchDocRepo) Save(*model.Document) error   { return nil }
func (r *fakeSearchDocRepo) Archive(_, _ uint) error      { return nil }
func (r *fakeSearchDocRepo) Delete(uint) error            { return nil }
func (r *fakeSearchDocRepo) DeleteByFolderID(uint) error  { return nil }

func (r *fakeSearchDocRepo) GetByIDAndTeamID(id, teamID uint) (*model.Document, error) {
	if doc, ok := r.docsByID[id]; ok && doc.TeamID == teamID {
		return &doc, nil
	}
	return nil, nil
}
func (r *fakeSearchDocRepo) ListByTeamID(uint, *uint) ([]model.Document, error) { return nil, nil }
func (r *fakeSearchDocRepo) ListByFolderID(uint) ([]model.Document, error)      { return nil, nil }

func (r *fakeSearchDocRepo) ListByIDsAndTeamID(ids []uint, teamID uint) ([]model.Document, error) {
	var out []model.Document
	for _, id := range ids {
		if doc, ok := r.docsByID[id]; ok && doc.TeamID == teamID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *fakeSearchDocRepo) KeywordSearch(_ uint, _ string, tokens []string, filter repository.KeywordFilter, limit int) ([]model.Document, error) {
	r.gotTokens = tokens
	r.gotKeyFilter = filter
	r.gotLimit = limit
	if r.keywordErr != nil {
		return nil, r.keywordErr
	}
	return r.keywordDocs, nil
}

type fakeQueryEmbedder struct {
	err error
}

func (e *fakeQueryEmbedder) Embed(context.Context, string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.1, 0.2}, nil
}

type fakeQueryIndex struct {
	matches  []vectorindex.Match
	err      error
	gotTopK  int
	gotNS    string
	gotQuery bool
}

func (f *fakeQueryIndex) Upsert(context.Context, string, []vectorindex.Record) error { return nil }
func (f *fakeQueryIndex) DeleteDocument(context.Context, string, uint) error         { return nil }

func (f *fakeQueryIndex) Query(_ context.Context, namespace string, _ []float32, topK int, _ *vectorindex.Filter) ([]vectorindex.Match, error) {
	f.gotQuery = true
	f.gotNS = namespace
	f.gotTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

func searchDoc(id uint) model.Document {
	return model.Document{ID: id, TeamID: 5, FolderID: 1, Title: "doc", Tags: "[]"}
}

func match(docID uint, chunk int, score float32) vectorindex.Match {
	return vectorindex.Match{
		ChunkKey: "x",
		Score:    score,
		Meta:     vectorindex.RecordMeta{DocumentID: docID, ChunkIndex: chunk},
	}
}

func newTestSearchService(docs *fakeSearchDocRepo, embedder *fakeQueryEmbedder, index *fakeQueryIndex) *SearchService {
	return NewSearchService(docs, embedder, index, nil, zap.NewNop(), SearchOptions{})
}

func TestSearchEmptyQuery(t *testing.T) {
	s := newTestSearchService(&fakeSearchDocRepo{}, &fakeQueryEmbedder{}, &fakeQueryIndex{})
	for _, q := range []string{"", "   \t"} {
		if _, err := s.Search(context.Background(), SearchInput{TeamID: 5, Query: q}); !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("query %q: want ErrEmptyQuery, got %v", q, err)
		}
	}
}

func TestSearchInvalidMode(t *testing.T) {
	s := newTestSearchService(&fakeSearchDocRepo{}, &fakeQueryEmbedder{}, &fakeQueryIndex{})
	_, err := s.Search(context.Background(), SearchInput{TeamID: 5, Query: "q", Mode: "fuzzy"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("want ErrInvalidInput, got %v", err)
	}
}

func TestSearchKeywordConstantScore(t *testing.T) {
	docs := &fakeSearchDocRepo{keywordDocs: []model.Document{searchDoc(1), searchDoc(2)}}
	s := newTestSearchService(docs, &fakeQueryEmbedder{}, &fakeQueryIndex{})

	out, err := s.Search(context.Background(), SearchInput{TeamID: 5, Query: "API Design", Mode: ModeKeyword})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if out.Mode != ModeKeyword || out.Total != 2 {
		t.Fatalf("out = %+v", out)
	}
	for _, item := range out.Results {
		if item.SearchScore != 0.8 {
			t.Errorf("keyword score = %v, want 0.8", item.SearchScore)
		}
		if item.SearchType != ModeKeyword {
			t.Errorf("search type = %s", item.SearchType)
		}
	}
	if len(docs.gotTokens) != 2 || docs.gotTokens[0] != "api" || docs.gotTokens[1] != "design" {
		t.Errorf("tokens = %v", docs.gotTokens)
	}
}

func TestSearchHybridFusion(t *testing.T) {
	docs := &fakeSearchDocRepo{
		keywordDocs: []model.Document{searchDoc(1), searchDoc(2)},
		docsByID: map[uint]model.Document{
			1: searchDoc(1), 2: searchDoc(2), 3: searchDoc(3),
		},
	}
	index := &fakeQueryIndex{matches: []vectorindex.Match{
		match(3, 0, 0.95), // semantic-only doc, beats the keyword score
		match(1, 2, 0.91), // overlaps keyword tier: keyword entry must win
		match(1, 0, 0.85),
	}}
	s := newTestSearchService(docs, &fakeQueryEmbedder{}, index)

	out, err := s.Search(context.Background(), SearchInput{TeamID: 5, Query: "roadmap"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if out.Mode != ModeHybrid {
		t.Errorf("mode = %s", out.Mode)
	}
	if out.Total != 3 {
		t.Fatalf("total = %d, results %+v", out.Total, out.Results)
	}
	if out.Results[0].Document.ID != 3 || out.Results[0].SearchType != ModeSemantic {
		t.Errorf("top result = %+v, want semantic doc 3", out.Results[0])
	}
	seen := map[uint]int{}
	for _, item := range out.Results {
		seen[item.Document.ID]++
		if item.Document.ID == 1 && item.SearchType != ModeKeyword {
			t.Errorf("doc 1 present in both tiers must surface as keyword, got %s", item.SearchType)
		}
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("doc %d appears %d times", id, n)
		}
	}
	for i := 1; i < len(out.Results); i++ {
		if out.Results[i].SearchScore > out.Results[i-1].SearchScore {
			t.Errorf("results not sorted by score: %v then %v",
				out.Results[i-1].SearchScore, out.Results[i].SearchScore)
		}
	}
	if index.gotNS != vectorindex.Namespace(5) {
		t.Errorf("query namespace = %q", index.gotNS)
	}
}

func TestSearchHybridDegradesOnEmbedFailure(t *testing.T) {
	docs := &fakeSearchDocRepo{keywordDocs: []model.Document{searchDoc(1)}}
	s := newTestSearchService(docs, &fakeQueryEmbedder{err: errors.New("backend down")}, &fakeQueryIndex{})

	out, err := s.Search(context.Background(), SearchInput{TeamID: 5, Query: "plan"})
	if err != nil {
		t.Fatalf("degradation must not fail the request: %v", err)
	}
	if out.Total != 1 || out.Results[0].SearchType != ModeKeyword {
		t.Errorf("out = %+v, want keyword-only result", out)
	}
}

func TestSearchHybridDegradesOnIndexFailure(t *testing.T) {
	docs := &fakeSearchDocRepo{keywordDocs: []model.Document{searchDoc(1)}}
	index := &fakeQueryIndex{err: errors.New("collection gone")}
	s := newTestSearchService(docs, &fakeQueryEmbedder{}, index)

	out, err := s.Search(context.Background(), SearchInput{TeamID: 5, Query: "plan"})
	if err != nil {
		t.Fatalf("degradation must not fail the request: %v", err)
	}
	if out.Total != 1 {
		t.Errorf("total = %d", out.Total)
	}
}

func TestSearchSemanticModeFailureGivesEmpty(t *testing.T) {
	s := newTestSearchService(&fakeSearchDocRepo{}, &fakeQueryEmbedder{err: errors.New("down")}, &fakeQueryIndex{})

	out, err := s.Search(context.Background(), SearchInput{TeamID: 5, Query: "plan", Mode: ModeSemantic})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if out.Total != 0 {
		t.Errorf("total = %d, want 0", out.Total)
	}
}

func TestSearchBestChunkPerDocument(t *testing.T) {
	docs := &fakeSearchDocRepo{docsByID: map[uint]model.Document{1: searchDoc(1)}}
	index := &fakeQueryIndex{matches: []vectorindex.Match{
		match(1, 3, 0.75),
		match(1, 0, 0.5),
	}}
	s := newTestSearchService(docs, &fakeQueryEmbedder{}, index)

	out, err := s.Search(context.Background(), SearchInput{TeamID: 5, Query: "q", Mode: ModeSemantic})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if out.Total != 1 {
		t.Fatalf("total = %d", out.Total)
	}
	if out.Results[0].SearchScore != 0.75 {
		t.Errorf("score = %v, want the best chunk's 0.75", out.Results[0].SearchScore)
	}
}

func TestSearchLimitClampAndTopKFactor(t *testing.T) {
	docs := &fakeSearchDocRepo{}
	index := &fakeQueryIndex{}
	s := newTestSearchService(docs, &fakeQueryEmbedder{}, index)

	if _, err := s.Search(context.Background(), SearchInput{TeamID: 5, Query: "q", Limit: 1000}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if docs.gotLimit != 100 {
		t.Errorf("keyword limit = %d, want clamp to 100", docs.gotLimit)
	}
	if index.gotTopK != 400 {
		t.Errorf("semantic topK = %d, want 100*4", index.gotTopK)
	}

	if _, err := s.Search(context.Background(), SearchInput{TeamID: 5, Query: "q"}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if docs.gotLimit != 20 {
		t.Errorf("default limit = %d, want 20", docs.gotLimit)
	}
}

func TestSearchSemanticTagFilter(t *testing.T) {
	tagged := searchDoc(1)
	tagged.SetTagList([]string{"infra"})
	untagged := searchDoc(2)
	docs := &fakeSearchDocRepo{docsByID: map[uint]model.Document{1: tagged, 2: untagged}}
	index := &fakeQueryIndex{matches: []vectorindex.Match{match(1, 0, 0.9), match(2, 0, 0.8)}}
	s := newTestSearchService(docs, &fakeQueryEmbedder{}, index)

	out, err := s.Search(context.Background(), SearchInput{
		TeamID: 5, Query: "q", Mode: ModeSemantic, Tags: []string{"Infra"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if out.Total != 1 || out.Results[0].Document.ID != 1 {
		t.Errorf("out = %+v, want only the tagged doc", out.Results)
	}
}

func TestSearchTagFilterAnyMatch(t *testing.T) {
	infra := searchDoc(1)
	infra.SetTagList([]string{"infra"})
	billing := searchDoc(2)
	billing.SetTagList([]string{"billing"})
	untagged := searchDoc(3)
	docs := &fakeSearchDocRepo{docsByID: map[uint]model.Document{1: infra, 2: billing, 3: untagged}}
	index := &fakeQueryIndex{matches: []vectorindex.Match{
		match(1, 0, 0.9), match(2, 0, 0.85), match(3, 0, 0.8),
	}}
	s := newTestSearchService(docs, &fakeQueryEmbedder{}, index)

	// A document carrying any one of the filter tags qualifies; it does not
	// need to carry all of them.
	out, err := s.Search(context.Background(), SearchInput{
		TeamID: 5, Query: "q", Mode: ModeSemantic, Tags: []string{"infra", "billing"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if out.Total != 2 {
		t.Fatalf("total = %d, want both single-tag docs", out.Total)
	}
	for _, item := range out.Results {
		if item.Document.ID == 3 {
			t.Error("untagged doc must be filtered out")
		}
	}
}
