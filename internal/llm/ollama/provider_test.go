package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/rag-assistant/internal/llm"
)

func TestProvider_Generate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":{"role":"assistant","content":"Hi there"},"done":true,"eval_count":7}`))
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, "llama3")
	resp, err := p.Generate(context.Background(), llm.Request{
		Turns:   []llm.Turn{{Role: llm.RoleSystem, Text: "sys"}, {Role: llm.RoleUser, Text: "hello"}},
		Options: llm.Options{Temperature: llm.Float(0.5)},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "llama3", got.Model)
	assert.Len(t, got.Messages, 2)
	assert.Equal(t, 0.5, got.Options["temperature"])
	assert.Equal(t, 7, resp.TokensUsed)
	assert.Equal(t, "Hi there", llm.Normalize(resp.Raw))
}

func TestProvider_Generate_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewProvider(srv.URL, "").Generate(context.Background(), llm.Request{}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestEmbedder_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	}))
	defer srv.Close()

	vec, err := NewEmbedder(srv.URL, "").Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
}

func TestEmbedder_SearchPathTimeout(t *testing.T) {
	e := NewEmbedder("http://localhost:11434", "")
	assert.Equal(t, 30*time.Second, e.client.Timeout)
	assert.Equal(t, "nomic-embed-text", e.model)
}
