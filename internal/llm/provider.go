package llm

import "context"

// Roles used in conversation turns
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of the conversation sent to a model
type Turn struct {
	Role string
	Text string
}

// Options are the sampling parameters for a generation call. Nil fields are
// not sent upstream.
type Options struct {
	Temperature      *float64
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
	MaxTokens        int
}

// Request contains the turns and sampling options for one generation
type Request struct {
	Turns   []Turn
	Options Options
}

// Message is an assistant message in provider-neutral form. Content is
// whatever the provider returned and is not guaranteed to be a string.
type Message struct {
	Role    string
	Content any
}

// Response contains an LLM generation result. Raw is the provider-shaped
// payload and should be passed through Normalize before display.
type Response struct {
	Raw        any
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Generate produces the assistant reply for the request turns
	Generate(ctx context.Context, req Request, model string) (*Response, error)
}

// Embedder turns text into a vector
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Float returns a pointer to v, for building Options
func Float(v float64) *float64 {
	return &v
}
