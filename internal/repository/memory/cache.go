package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// EmbeddingCache keeps query embeddings in process memory. It is used when
// Redis is disabled.
type EmbeddingCache struct {
	c *cache.Cache
}

// NewEmbeddingCache creates a cache with the given default TTL
func NewEmbeddingCache(ttl time.Duration) *EmbeddingCache {
	return &EmbeddingCache{c: cache.New(ttl, 2*ttl)}
}

func (e *EmbeddingCache) GetVector(_ context.Context, key string) ([]float32, bool) {
	v, ok := e.c.Get(key)
	if !ok {
		return nil, false
	}
	vec, ok := v.([]float32)
	return vec, ok
}

func (e *EmbeddingCache) SetVector(_ context.Context, key string, vec []float32, ttl time.Duration) error {
	stored := make([]float32, len(vec))
	copy(stored, vec)
	e.c.Set(key, stored, ttl)
	return nil
}

// Len returns the number of cached vectors, including expired ones not yet
// purged
func (e *EmbeddingCache) Len() int {
	return e.c.ItemCount()
}
