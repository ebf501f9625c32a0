package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// IngestLock serializes ingestion per document. The deterministic chunk-id
// scheme already makes concurrent runs idempotent; the lock exists to avoid
// paying for duplicate embedding calls when triggers race.
type IngestLock struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewIngestLock(client *redisv9.Client, ttl time.Duration) *IngestLock {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &IngestLock{client: client, ttl: ttl}
}

// Acquire returns false when another ingestion run holds the document.
func (l *IngestLock) Acquire(ctx context.Context, documentID uint) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(documentID), "1", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis acquire ingest lock failed: %w", err)
	}
	return ok, nil
}

func (l *IngestLock) Release(ctx context.Context, documentID uint) error {
	if err := l.client.Del(ctx, l.key(documentID)).Err(); err != nil {
		return fmt.Errorf("redis release ingest lock failed: %w", err)
	}
	return nil
}

func (l *IngestLock) key(documentID uint) string {
	return fmt.Sprintf("kb:ingest:lock:%d", documentID)
}
