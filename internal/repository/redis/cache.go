package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// EmbeddingCache stores query embeddings in Redis. Keys are built by
// llm.EmbeddingKey and already carry their own prefix.
type EmbeddingCache struct {
	client *Client
}

// NewEmbeddingCache creates a new embedding cache
func NewEmbeddingCache(client *Client) *EmbeddingCache {
	return &EmbeddingCache{client: client}
}

// GetVector returns a cached vector. Any Redis error is treated as a miss.
func (c *EmbeddingCache) GetVector(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.client.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("Embedding cache read failed")
		}
		return nil, false
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil || len(vec) == 0 {
		return nil, false
	}
	return vec, true
}

// SetVector caches a vector for ttl
func (c *EmbeddingCache) SetVector(ctx context.Context, key string, vec []float32, ttl time.Duration) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}
	return c.client.rdb.Set(ctx, key, data, ttl).Err()
}

// Flush removes every cached embedding and returns the number of keys deleted
func (c *EmbeddingCache) Flush(ctx context.Context) (int64, error) {
	var cursor uint64
	var deleted int64

	for {
		keys, next, err := c.client.rdb.Scan(ctx, cursor, "embedding:*", 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			n, err := c.client.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete keys: %w", err)
			}
			deleted += n
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return deleted, nil
}
