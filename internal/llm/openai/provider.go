package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/Rrens/rag-assistant/internal/config"
	"github.com/Rrens/rag-assistant/internal/llm"
)

// Provider implements llm.Provider for OpenAI and Azure OpenAI
type Provider struct {
	name         string
	configured   bool
	defaultModel string
	client       openai.Client
}

// NewProvider creates a new OpenAI provider. A configured endpoint selects
// Azure OpenAI, where the model is the deployment name. Extra options are
// appended after the credentials.
func NewProvider(cfg config.OpenAIConfig, opts ...option.RequestOption) *Provider {
	defaultModel := cfg.Model
	if defaultModel == "" {
		defaultModel = "gpt-4o-mini"
	}
	return &Provider{
		name:         "openai",
		configured:   cfg.APIKey != "",
		defaultModel: defaultModel,
		client:       openai.NewClient(clientOptions(cfg, opts)...),
	}
}

// DefaultRequestTimeout bounds each API call, including query embeddings made
// on the search path. Callers may override it with option.WithRequestTimeout.
const DefaultRequestTimeout = 30 * time.Second

func clientOptions(cfg config.OpenAIConfig, extra []option.RequestOption) []option.RequestOption {
	var opts []option.RequestOption
	if cfg.Endpoint != "" {
		opts = append(opts,
			azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion),
			azure.WithAPIKey(cfg.APIKey),
		)
	} else {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	opts = append(opts, option.WithRequestTimeout(DefaultRequestTimeout), option.WithMaxRetries(0))
	return append(opts, extra...)
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return p.name
}

// AvailableModels returns list of supported models
func (p *Provider) AvailableModels() []string {
	return []string{
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4.1",
		"o3-mini",
		"o4-mini",
	}
}

// DefaultModel returns the default model
func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

// IsConfigured checks if provider has valid credentials
func (p *Provider) IsConfigured() bool {
	return p.configured
}

// Generate runs a chat completion. Nil sampling options are omitted from the
// request entirely.
func (p *Provider) Generate(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	if model == "" {
		model = p.defaultModel
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: toMessages(req.Turns),
	}
	if o := req.Options; o.Temperature != nil {
		params.Temperature = openai.Float(*o.Temperature)
	}
	if o := req.Options; o.TopP != nil {
		params.TopP = openai.Float(*o.TopP)
	}
	if o := req.Options; o.FrequencyPenalty != nil {
		params.FrequencyPenalty = openai.Float(*o.FrequencyPenalty)
	}
	if o := req.Options; o.PresencePenalty != nil {
		params.PresencePenalty = openai.Float(*o.PresencePenalty)
	}
	if req.Options.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.Options.MaxTokens))
	}

	start := time.Now()
	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	out := &llm.Response{
		Model:      model,
		TokensUsed: int(completion.Usage.TotalTokens),
		LatencyMs:  time.Since(start).Milliseconds(),
	}
	if len(completion.Choices) > 0 {
		out.Raw = llm.Message{
			Role:    llm.RoleAssistant,
			Content: completion.Choices[0].Message.Content,
		}
	}

	return out, nil
}

func toMessages(turns []llm.Turn) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case llm.RoleSystem:
			messages = append(messages, openai.SystemMessage(t.Text))
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(t.Text))
		default:
			messages = append(messages, openai.UserMessage(t.Text))
		}
	}
	return messages
}
