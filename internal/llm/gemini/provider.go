package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Rrens/rag-assistant/internal/config"
	"github.com/Rrens/rag-assistant/internal/llm"
)

type Provider struct {
	apiKey string
	model  string
}

func NewProvider(cfg config.GeminiConfig) *Provider {
	return &Provider{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) AvailableModels() []string {
	return []string{
		"gemini-2.5-flash",
		"gemini-1.5-flash",
		"gemini-1.5-pro",
	}
}

func (p *Provider) DefaultModel() string {
	if p.model != "" {
		return p.model
	}
	return "gemini-2.5-flash"
}

func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

// Generate replays the history as a chat session and sends the final user
// turn. A reply with no candidates yields a nil payload.
func (p *Provider) Generate(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("gemini provider is not configured (missing API key)")
	}
	if model == "" {
		model = p.DefaultModel()
	}
	if len(req.Turns) == 0 {
		return nil, fmt.Errorf("no turns to send")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	gm := client.GenerativeModel(model)
	applyOptions(gm, req.Options)

	history, last := splitTurns(req.Turns)
	system, contents := foldHistory(history)
	if system != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	cs := gm.StartChat()
	cs.History = contents

	start := time.Now()
	resp, err := cs.SendMessage(ctx, genai.Text(last.Text))
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}

	out := &llm.Response{Model: model, LatencyMs: latency}
	if resp.UsageMetadata != nil {
		out.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out, nil
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	out.Raw = text.String()

	return out, nil
}

func applyOptions(gm *genai.GenerativeModel, o llm.Options) {
	if o.Temperature != nil {
		gm.SetTemperature(float32(*o.Temperature))
	}
	if o.TopP != nil {
		gm.SetTopP(float32(*o.TopP))
	}
	if o.MaxTokens > 0 {
		gm.SetMaxOutputTokens(int32(o.MaxTokens))
	}
}

// splitTurns separates the final turn from the preceding history
func splitTurns(turns []llm.Turn) ([]llm.Turn, llm.Turn) {
	return turns[:len(turns)-1], turns[len(turns)-1]
}

// foldHistory joins system turns into one instruction and maps the rest onto
// Gemini's user/model roles
func foldHistory(history []llm.Turn) (string, []*genai.Content) {
	var system []string
	var contents []*genai.Content
	for _, t := range history {
		switch t.Role {
		case llm.RoleSystem:
			system = append(system, t.Text)
		case llm.RoleAssistant:
			contents = append(contents, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(t.Text)}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(t.Text)}})
		}
	}
	return strings.Join(system, "\n\n"), contents
}
