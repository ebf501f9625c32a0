package vectorindex

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantIndex implements Index on a Qdrant cluster. Each namespace maps to
// its own collection, created on first upsert.
type QdrantIndex struct {
	client     *qdrant.Client
	vectorSize uint64
}

func NewQdrantIndex(client *qdrant.Client, vectorSize int) *QdrantIndex {
	return &QdrantIndex{
		client:     client,
		vectorSize: uint64(vectorSize),
	}
}

func (q *QdrantIndex) ensureCollection(ctx context.Context, namespace string) error {
	exists, err := q.client.CollectionExists(ctx, namespace)
	if err != nil {
		return fmt.Errorf("check collection %s failed: %w", namespace, err)
	}
	if exists {
		return nil
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: namespace,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s failed: %w", namespace, err)
	}
	return nil
}

func (q *QdrantIndex) Upsert(ctx context.Context, namespace string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := q.ensureCollection(ctx, namespace); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, rec := range records {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(rec.ChunkKey)),
			Vectors: qdrant.NewVectors(rec.Vector...),
			Payload: recordPayload(rec),
		}
	}

	wait := true
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: namespace,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points into %s failed: %w", len(points), namespace, err)
	}
	return nil
}

func (q *QdrantIndex) Query(ctx context.Context, namespace string, vector []float32, topK int, filter *Filter) ([]Match, error) {
	exists, err := q.client.CollectionExists(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("check collection %s failed: %w", namespace, err)
	}
	if !exists {
		// Nothing indexed for this tenant yet.
		return nil, nil
	}

	limit := uint64(topK)
	res, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: namespace,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		Filter:         queryFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query %s failed: %w", namespace, err)
	}

	matches := make([]Match, 0, len(res))
	for _, hit := range res {
		matches = append(matches, Match{
			ChunkKey: payloadString(hit.Payload, "chunk_key"),
			Score:    hit.Score,
			Meta:     payloadMeta(hit.Payload),
		})
	}
	return matches, nil
}

func (q *QdrantIndex) DeleteDocument(ctx context.Context, namespace string, documentID uint) error {
	exists, err := q.client.CollectionExists(ctx, namespace)
	if err != nil {
		return fmt.Errorf("check collection %s failed: %w", namespace, err)
	}
	if !exists {
		return nil
	}
	_, err = q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: namespace,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatchInt("document_id", int64(documentID)),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("delete points for document %d in %s failed: %w", documentID, namespace, err)
	}
	return nil
}

// pointID derives a stable UUID from the chunk key. Qdrant point ids must be
// UUIDs or integers; hashing the key keeps the id deterministic across runs.
func pointID(chunkKey string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkKey)).String()
}

func recordPayload(rec Record) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		"chunk_key":         qdrant.NewValueString(rec.ChunkKey),
		"chunk_index":       qdrant.NewValueInt(int64(rec.Meta.ChunkIndex)),
		"document_id":       qdrant.NewValueInt(int64(rec.Meta.DocumentID)),
		"knowledge_base_id": qdrant.NewValueInt(int64(rec.Meta.KnowledgeBaseID)),
		"folder_id":         qdrant.NewValueInt(int64(rec.Meta.FolderID)),
		"file_type":         qdrant.NewValueString(rec.Meta.FileType),
		"title":             qdrant.NewValueString(rec.Meta.Title),
		"tags":              qdrant.NewValueString(strings.Join(rec.Meta.Tags, ",")),
		"preview":           qdrant.NewValueString(rec.Meta.Preview),
	}
}

func queryFilter(filter *Filter) *qdrant.Filter {
	if filter == nil {
		return nil
	}
	var must []*qdrant.Condition
	if filter.FolderID != nil {
		must = append(must, qdrant.NewMatchInt("folder_id", int64(*filter.FolderID)))
	}
	if len(filter.FileTypes) > 0 {
		must = append(must, qdrant.NewMatchKeywords("file_type", filter.FileTypes...))
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func payloadInt(payload map[string]*qdrant.Value, key string) int64 {
	if v, ok := payload[key]; ok {
		return v.GetIntegerValue()
	}
	return 0
}

func payloadMeta(payload map[string]*qdrant.Value) RecordMeta {
	meta := RecordMeta{
		DocumentID:      uint(payloadInt(payload, "document_id")),
		KnowledgeBaseID: uint(payloadInt(payload, "knowledge_base_id")),
		FolderID:        uint(payloadInt(payload, "folder_id")),
		ChunkIndex:      int(payloadInt(payload, "chunk_index")),
		FileType:        payloadString(payload, "file_type"),
		Title:           payloadString(payload, "title"),
		Preview:         payloadString(payload, "preview"),
	}
	if raw := payloadString(payload, "tags"); raw != "" {
		meta.Tags = strings.Split(raw, ",")
	}
	return meta
}
