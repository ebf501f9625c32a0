package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// SearchCache keeps recent search responses in redis for a short TTL so that
// repeated identical queries skip the embedding call and the index round trip.
type SearchCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewSearchCache(client *redisv9.Client, ttl time.Duration) *SearchCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SearchCache{client: client, ttl: ttl}
}

// Key builds a cache key from the full request shape; any differing filter
// produces a different key.
func (c *SearchCache) Key(teamID uint, requestFingerprint string) string {
	sum := sha256.Sum256([]byte(requestFingerprint))
	return fmt.Sprintf("kb:search:%d:%s", teamID, hex.EncodeToString(sum[:16]))
}

func (c *SearchCache) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if err == redisv9.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get search cache failed: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("unmarshal cached search result failed: %w", err)
	}
	return true, nil
}

func (c *SearchCache) Set(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal search cache failed: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set search cache failed: %w", err)
	}
	return nil
}

// InvalidateTeam drops all cached searches for a team. Called after ingestion
// changes what a search would return.
func (c *SearchCache) InvalidateTeam(ctx context.Context, teamID uint) error {
	pattern := fmt.Sprintf("kb:search:%d:*", teamID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis delete search cache failed: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan search cache failed: %w", err)
	}
	return nil
}
