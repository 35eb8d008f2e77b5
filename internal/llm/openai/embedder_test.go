package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/rag-assistant/internal/config"
	"github.com/Rrens/rag-assistant/internal/domain"
)

func TestEmbedder_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","model":"text-embedding-ada-002",
			"data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}],
			"usage":{"prompt_tokens":1,"total_tokens":1}}`))
	}))
	defer srv.Close()

	e := NewEmbedder(config.OpenAIConfig{APIKey: "key"}, "text-embedding-ada-002", option.WithBaseURL(srv.URL))
	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vec)
}

func TestEmbedder_Embed_RequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	e := NewEmbedder(config.OpenAIConfig{APIKey: "key"}, "m",
		option.WithBaseURL(srv.URL),
		option.WithRequestTimeout(50*time.Millisecond),
	)

	start := time.Now()
	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)

	var embErr *domain.EmbeddingError
	assert.True(t, errors.As(err, &embErr))
}

func TestDefaultRequestTimeout(t *testing.T) {
	assert.LessOrEqual(t, DefaultRequestTimeout, 30*time.Second)
}
