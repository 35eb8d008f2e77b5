package gemini

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Rrens/rag-assistant/internal/domain"
)

// Embedder implements llm.Embedder with Gemini embedding models
type Embedder struct {
	apiKey string
	model  string
}

func NewEmbedder(apiKey, model string) *Embedder {
	if model == "" {
		model = "text-embedding-004"
	}
	return &Embedder{apiKey: apiKey, model: model}
}

func (e *Embedder) Name() string {
	return "gemini"
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(e.apiKey))
	if err != nil {
		return nil, &domain.EmbeddingError{Provider: e.Name(), Err: err}
	}
	defer client.Close()

	res, err := client.EmbeddingModel(e.model).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, &domain.EmbeddingError{Provider: e.Name(), Err: err}
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, &domain.EmbeddingError{Provider: e.Name(), Err: errors.New("no embedding returned")}
	}
	return res.Embedding.Values, nil
}
