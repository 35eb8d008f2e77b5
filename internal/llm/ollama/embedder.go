package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Rrens/rag-assistant/internal/domain"
	"github.com/Rrens/rag-assistant/internal/llm"
)

// embedTimeout bounds one embedding call on the search path
const embedTimeout = 30 * time.Second

// Embedder implements llm.Embedder with /api/embeddings
type Embedder struct {
	host   string
	model  string
	client *http.Client
}

func NewEmbedder(host, model string) *Embedder {
	if model == "" {
		model = "nomic-embed-text"
	}
	return &Embedder{
		host:   host,
		model:  model,
		client: &http.Client{Timeout: embedTimeout},
	}
}

func (e *Embedder) Name() string {
	return "ollama"
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embed(ctx, text)
	if err != nil {
		return nil, &domain.EmbeddingError{Provider: e.Name(), Err: err}
	}
	return vec, nil
}

func (e *Embedder) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, llm.StatusError("ollama", resp)
	}

	var er embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(er.Embedding) == 0 {
		return nil, errors.New("no embedding returned")
	}
	return er.Embedding, nil
}
