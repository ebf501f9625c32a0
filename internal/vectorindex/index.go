package vectorindex

import (
	"context"
	"fmt"
)

// Record is one chunk's entry in the vector index. ChunkKey is deterministic
// per (document, chunk index), so upserting the same content twice overwrites
// instead of duplicating.
type Record struct {
	ChunkKey string
	Vector   []float32
	Meta     RecordMeta
}

// RecordMeta is carried as payload so search results can be displayed without
// a second content fetch.
type RecordMeta struct {
	DocumentID      uint
	KnowledgeBaseID uint
	FolderID        uint
	ChunkIndex      int
	FileType        string
	Title           string
	Tags            []string
	Preview         string
}

// Match is one scored chunk returned by a similarity query.
type Match struct {
	ChunkKey string
	Score    float32
	Meta     RecordMeta
}

// Filter narrows a query within a namespace.
type Filter struct {
	FolderID  *uint
	FileTypes []string
}

// Index is the per-tenant namespaced nearest-neighbor store. Every call is
// scoped to a namespace; crossing namespaces is a data leak, not a bug to
// paper over.
type Index interface {
	Upsert(ctx context.Context, namespace string, records []Record) error
	Query(ctx context.Context, namespace string, vector []float32, topK int, filter *Filter) ([]Match, error)
	DeleteDocument(ctx context.Context, namespace string, documentID uint) error
}

// Namespace returns the tenant isolation key for a team.
func Namespace(teamID uint) string {
	return fmt.Sprintf("team_%d", teamID)
}
