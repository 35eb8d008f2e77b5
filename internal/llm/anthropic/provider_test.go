package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/rag-assistant/internal/llm"
)

func TestProvider_Generate_FoldsSystemTurns(t *testing.T) {
	var got messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"role":"assistant","content":[{"type":"text","text":"Answer"}],"usage":{"input_tokens":3,"output_tokens":4}}`))
	}))
	defer srv.Close()

	p := NewProvider("key", "")
	p.baseURL = srv.URL

	resp, err := p.Generate(context.Background(), llm.Request{Turns: []llm.Turn{
		{Role: llm.RoleSystem, Text: "sys"},
		{Role: llm.RoleUser, Text: "q"},
	}}, "")
	require.NoError(t, err)

	assert.Equal(t, "sys", got.System)
	assert.Len(t, got.Messages, 1)
	assert.Equal(t, defaultMaxTokens, got.MaxTokens)
	assert.Equal(t, 7, resp.TokensUsed)
	assert.Equal(t, "Answer", llm.Normalize(resp.Raw))
}

func TestProvider_Generate_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	p := NewProvider("key", "")
	p.baseURL = srv.URL

	resp, err := p.Generate(context.Background(), llm.Request{}, "")
	require.NoError(t, err)
	assert.Nil(t, resp.Raw)
	assert.Equal(t, llm.NoResponseMessage, llm.Normalize(resp.Raw))
}
