package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Rrens/rag-assistant/internal/config"
	"github.com/Rrens/rag-assistant/internal/domain"
)

// Embedder implements llm.Embedder with the embeddings endpoint
type Embedder struct {
	model  string
	client openai.Client
}

// NewEmbedder creates an embedder for the given model (or Azure deployment)
func NewEmbedder(cfg config.OpenAIConfig, model string, opts ...option.RequestOption) *Embedder {
	return &Embedder{
		model:  model,
		client: openai.NewClient(clientOptions(cfg, opts)...),
	}
}

func (e *Embedder) Name() string {
	return "openai"
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return nil, &domain.EmbeddingError{Provider: e.Name(), Err: err}
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, &domain.EmbeddingError{Provider: e.Name(), Err: errors.New("no embedding returned")}
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
