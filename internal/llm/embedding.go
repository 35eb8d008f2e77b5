package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-assistant/internal/domain"
)

// VectorCache stores embedding vectors by key
type VectorCache interface {
	GetVector(ctx context.Context, key string) ([]float32, bool)
	SetVector(ctx context.Context, key string, vec []float32, ttl time.Duration) error
}

// CachedEmbedder memoizes an Embedder's vectors
type CachedEmbedder struct {
	inner Embedder
	model string
	cache VectorCache
	ttl   time.Duration
}

// NewCachedEmbedder wraps inner with cache. Vectors for different models never
// share keys.
func NewCachedEmbedder(inner Embedder, model string, cache VectorCache, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, model: model, cache: cache, ttl: ttl}
}

func (e *CachedEmbedder) Name() string {
	return e.inner.Name()
}

// Embed returns the cached vector for text or computes and stores it. Cache
// write failures are logged and ignored.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := EmbeddingKey(e.model, text)
	if vec, ok := e.cache.GetVector(ctx, key); ok {
		return vec, nil
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, &domain.EmbeddingError{Provider: e.inner.Name(), Err: errEmptyVector}
	}

	if err := e.cache.SetVector(ctx, key, vec, e.ttl); err != nil {
		log.Warn().Err(err).Str("provider", e.inner.Name()).Msg("Failed to cache embedding")
	}
	return vec, nil
}

// EmbeddingKey builds the cache key for a model/text pair
func EmbeddingKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:" + model + ":" + hex.EncodeToString(sum[:])
}

var errEmptyVector = errors.New("empty embedding vector")
