package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"teamkb/internal/cache"
	"teamkb/internal/model"
	"teamkb/internal/repository"
	"teamkb/internal/vectorindex"
)

// Search modes.
const (
	ModeKeyword  = "keyword"
	ModeSemantic = "semantic"
	ModeHybrid   = "hybrid"
)

// SearchOptions carry the tunable scoring policy. The keyword tier is
// constant-confidence: every substring match gets the same score.
type SearchOptions struct {
	KeywordScore       float64
	SemanticTopKFactor int
	DefaultLimit       int
	MaxLimit           int
	SemanticTimeout    time.Duration
}

func (o SearchOptions) withDefaults() SearchOptions {
	if o.KeywordScore <= 0 {
		o.KeywordScore = 0.8
	}
	if o.SemanticTopKFactor <= 0 {
		o.SemanticTopKFactor = 4
	}
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = 20
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = 100
	}
	if o.SemanticTimeout <= 0 {
		o.SemanticTimeout = 3 * time.Second
	}
	return o
}

type SearchInput struct {
	TeamID    uint
	Query     string
	Mode      string
	FolderID  *uint
	FileTypes []string
	Tags      []string
	Limit     int
}

type SearchResultItem struct {
	Document    model.Document `json:"document"`
	SearchScore float64        `json:"search_score"`
	SearchType  string         `json:"search_type"`
}

type SearchOutput struct {
	Results []SearchResultItem `json:"results"`
	Total   int                `json:"total"`
	Mode    string             `json:"mode"`
}

// SearchService is the stateless per-request retrieval engine: keyword and
// semantic tiers fan out concurrently, results are deduplicated by document
// and ranked by score.
type SearchService struct {
	docs     DocumentRepo
	embedder QueryEmbedder
	index    vectorindex.Index
	cache    *cache.SearchCache // optional
	logger   *zap.Logger
	opts     SearchOptions
}

func NewSearchService(
	docs DocumentRepo,
	embedder QueryEmbedder,
	index vectorindex.Index,
	searchCache *cache.SearchCache,
	logger *zap.Logger,
	opts SearchOptions,
) *SearchService {
	return &SearchService{
		docs:     docs,
		embedder: embedder,
		index:    index,
		cache:    searchCache,
		logger:   logger,
		opts:     opts.withDefaults(),
	}
}

func (s *SearchService) Search(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	if input.TeamID == 0 {
		return nil, ErrInvalidInput
	}
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	mode := input.Mode
	if mode == "" {
		mode = ModeHybrid
	}
	if mode != ModeKeyword && mode != ModeSemantic && mode != ModeHybrid {
		return nil, ErrInvalidInput
	}

	limit := input.Limit
	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}
	if limit > s.opts.MaxLimit {
		limit = s.opts.MaxLimit
	}

	cacheKey := ""
	if s.cache != nil {
		cacheKey = s.cache.Key(input.TeamID, s.fingerprint(query, mode, input, limit))
		var cached SearchOutput
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	var (
		wg       sync.WaitGroup
		keyword  []SearchResultItem
		semantic []SearchResultItem
		kwErr    error
	)

	if mode == ModeKeyword || mode == ModeHybrid {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keyword, kwErr = s.keywordTier(input.TeamID, query, input, limit)
		}()
	}
	if mode == ModeSemantic || mode == ModeHybrid {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// A semantic failure or timeout degrades the search, it
			// never fails the request.
			tierCtx, cancel := context.WithTimeout(ctx, s.opts.SemanticTimeout)
			defer cancel()
			matches, err := s.semanticTier(tierCtx, input.TeamID, query, input, limit)
			if err != nil {
				s.logger.Warn("semantic tier degraded",
					zap.Uint("team_id", input.TeamID), zap.Error(err))
				return
			}
			semantic = matches
		}()
	}
	wg.Wait()

	if kwErr != nil {
		return nil, kwErr
	}

	results := fuse(keyword, semantic, limit)
	output := &SearchOutput{Results: results, Total: len(results), Mode: mode}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, output); err != nil {
			s.logger.Warn("cache search result failed", zap.Error(err))
		}
	}
	return output, nil
}

func (s *SearchService) fingerprint(query, mode string, input SearchInput, limit int) string {
	folder := uint(0)
	if input.FolderID != nil {
		folder = *input.FolderID
	}
	return fmt.Sprintf("%s|%s|%d|%s|%s|%d",
		mode, strings.ToLower(query), folder,
		strings.Join(input.FileTypes, ","), strings.Join(input.Tags, ","), limit)
}

func (s *SearchService) keywordTier(teamID uint, query string, input SearchInput, limit int) ([]SearchResultItem, error) {
	tokens := strings.Fields(strings.ToLower(query))
	filter := repository.KeywordFilter{
		FolderID:  input.FolderID,
		FileTypes: input.FileTypes,
		Tags:      input.Tags,
	}
	docs, err := s.docs.KeywordSearch(teamID, query, tokens, filter, limit)
	if err != nil {
		return nil, err
	}
	items := make([]SearchResultItem, len(docs))
	for i, doc := range docs {
		items[i] = SearchResultItem{
			Document:    doc,
			SearchScore: s.opts.KeywordScore,
			SearchType:  ModeKeyword,
		}
	}
	return items, nil
}

func (s *SearchService) semanticTier(ctx context.Context, teamID uint, query string, input SearchInput, limit int) ([]SearchResultItem, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var filter *vectorindex.Filter
	if input.FolderID != nil || len(input.FileTypes) > 0 {
		filter = &vectorindex.Filter{
			FolderID:  input.FolderID,
			FileTypes: input.FileTypes,
		}
	}
	matches, err := s.index.Query(ctx, vectorindex.Namespace(teamID),
		vector, limit*s.opts.SemanticTopKFactor, filter)
	if err != nil {
		return nil, err
	}

	// Best chunk per document: matches arrive score-ordered, so the first
	// occurrence wins.
	scores := map[uint]float64{}
	var order []uint
	for _, m := range matches {
		docID := m.Meta.DocumentID
		if docID == 0 {
			continue
		}
		if _, seen := scores[docID]; seen {
			continue
		}
		scores[docID] = float64(m.Score)
		order = append(order, docID)
	}
	if len(order) == 0 {
		return nil, nil
	}

	docs, err := s.docs.ListByIDsAndTeamID(order, teamID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]model.Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}

	var items []SearchResultItem
	for _, docID := range order {
		doc, ok := byID[docID]
		if !ok {
			continue // archived or deleted since indexing
		}
		if !matchesTags(&doc, input.Tags) {
			continue
		}
		items = append(items, SearchResultItem{
			Document:    doc,
			SearchScore: scores[docID],
			SearchType:  ModeSemantic,
		})
	}
	return items, nil
}

// matchesTags applies the tag filter on the semantic tier; the vector payload
// filter covers folder and file type only.
func matchesTags(doc *model.Document, want []string) bool {
	if len(want) == 0 {
		return true
	}
	have := map[string]bool{}
	for _, t := range doc.TagList() {
		have[strings.ToLower(t)] = true
	}
	for _, t := range want {
		if have[strings.ToLower(t)] {
			return true
		}
	}
	return false
}

// fuse deduplicates by document id (the keyword tier wins ties), then sorts
// by score descending and truncates.
func fuse(keyword, semantic []SearchResultItem, limit int) []SearchResultItem {
	seen := map[uint]bool{}
	merged := make([]SearchResultItem, 0, len(keyword)+len(semantic))
	for _, item := range keyword {
		if seen[item.Document.ID] {
			continue
		}
		seen[item.Document.ID] = true
		merged = append(merged, item)
	}
	for _, item := range semantic {
		if seen[item.Document.ID] {
			continue
		}
		seen[item.Document.ID] = true
		merged = append(merged, item)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].SearchScore > merged[j].SearchScore
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
