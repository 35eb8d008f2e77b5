package api

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-assistant/internal/api/middleware"
	"github.com/Rrens/rag-assistant/internal/config"
	"github.com/Rrens/rag-assistant/internal/files"
	"github.com/Rrens/rag-assistant/internal/llm"
	"github.com/Rrens/rag-assistant/internal/llm/anthropic"
	"github.com/Rrens/rag-assistant/internal/llm/deepseek"
	"github.com/Rrens/rag-assistant/internal/llm/gemini"
	"github.com/Rrens/rag-assistant/internal/llm/ollama"
	"github.com/Rrens/rag-assistant/internal/llm/openai"
	"github.com/Rrens/rag-assistant/internal/repository/memory"
	"github.com/Rrens/rag-assistant/internal/repository/redis"
	"github.com/Rrens/rag-assistant/internal/repository/sqlite"
	"github.com/Rrens/rag-assistant/internal/retrieval"
	"github.com/Rrens/rag-assistant/internal/service"
	"github.com/Rrens/rag-assistant/internal/session"
)

// Deps holds the long-lived components shared by the router and the
// background jobs
type Deps struct {
	Chat      *service.ChatService
	LLM       *llm.Router
	Retrieval *retrieval.Chain
	Files     *files.Store
	Memory    *session.Memory
	Limiter   middleware.Limiter

	redis *redis.Client
	index *sqlite.Index
}

// NewDeps builds every component from configuration. redisClient may be nil,
// in which case caches and rate limits stay in process.
func NewDeps(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (*Deps, error) {
	d := &Deps{redis: redisClient}

	d.LLM = newLLMRouter(cfg.LLM)

	var vectorCache llm.VectorCache
	if redisClient != nil {
		vectorCache = redis.NewEmbeddingCache(redisClient)
		d.Limiter = redis.NewRateLimiter(redisClient, cfg.Security.RateLimit.RequestsPerMinute, cfg.Security.RateLimit.Burst)
	} else {
		vectorCache = memory.NewEmbeddingCache(cfg.LLM.Embedding.CacheTTL)
		d.Limiter = memory.NewRateLimiter(cfg.Security.RateLimit.RequestsPerMinute, cfg.Security.RateLimit.Burst)
	}

	var embedder llm.Embedder
	if inner := newEmbedder(cfg.LLM); inner != nil {
		embedder = llm.NewCachedEmbedder(inner, cfg.LLM.Embedding.Model, vectorCache, cfg.LLM.Embedding.CacheTTL)
	}

	// A nil *sqlite.Index must not become a non-nil ChunkStore
	var store retrieval.ChunkStore
	if embedder != nil && !cfg.Search.Remote.Only {
		index, err := sqlite.Open(ctx, cfg.Search.Local.IndexPath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Search.Local.IndexPath).Msg("Local vector index unavailable, using keyword search")
		} else {
			d.index = index
			store = index
		}
	}
	d.Retrieval = retrieval.New(cfg.Search, embedder, cfg.LLM.Embedding.Model, store)

	fileStore, err := files.NewStore(cfg.Files, files.DefaultExtractor{})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to create file store: %w", err)
	}
	d.Files = fileStore

	d.Memory = session.NewMemory(
		cfg.Session.MaxExchanges,
		cfg.Session.MaxSessions,
		cfg.Session.Timeout,
		session.WithEvictionHandler(service.EvictFiles(fileStore)),
	)

	d.Chat = service.NewChatService(service.ChatOptionsFromConfig(cfg), d.Retrieval, d.LLM, d.Files, d.Memory)

	return d, nil
}

// Close releases the local index. The Redis client is owned by the caller.
func (d *Deps) Close() error {
	if d.index != nil {
		return d.index.Close()
	}
	return nil
}

func newLLMRouter(cfg config.LLMConfig) *llm.Router {
	router := llm.NewRouter(cfg.DefaultProvider, cfg.RestrictedModels)

	log.Info().Str("default", cfg.DefaultProvider).Msg("Initializing LLM providers")

	if cfg.OpenAI.APIKey != "" {
		log.Info().Bool("azure", cfg.OpenAI.Endpoint != "").Msg("Registering OpenAI provider")
		router.RegisterProvider(openai.NewProvider(cfg.OpenAI, openaiTimeout(cfg)...))
	}
	if cfg.Anthropic.APIKey != "" {
		router.RegisterProvider(anthropic.NewProvider(cfg.Anthropic.APIKey, cfg.Anthropic.Model))
	}
	if cfg.DeepSeek.APIKey != "" {
		router.RegisterProvider(deepseek.NewProvider(cfg.DeepSeek.APIKey, cfg.DeepSeek.Model))
	}
	if cfg.Gemini.APIKey != "" {
		router.RegisterProvider(gemini.NewProvider(cfg.Gemini))
	}
	if cfg.Ollama.Host != "" {
		log.Info().Str("host", cfg.Ollama.Host).Msg("Registering Ollama provider")
		router.RegisterProvider(ollama.NewProvider(cfg.Ollama.Host, cfg.Ollama.DefaultModel))
	}

	if _, err := router.GetProvider(cfg.DefaultProvider); err != nil {
		log.Warn().Err(err).Msg("Default LLM provider is not registered")
	}
	return router
}

// newEmbedder returns nil when the configured embedding provider has no
// credentials
func newEmbedder(cfg config.LLMConfig) llm.Embedder {
	switch cfg.Embedding.Provider {
	case "openai", "azure":
		if cfg.OpenAI.APIKey != "" {
			return openai.NewEmbedder(cfg.OpenAI, cfg.Embedding.Model, openaiTimeout(cfg)...)
		}
	case "gemini":
		if cfg.Gemini.APIKey != "" {
			return gemini.NewEmbedder(cfg.Gemini.APIKey, cfg.Embedding.Model)
		}
	case "ollama":
		if cfg.Ollama.Host != "" {
			return ollama.NewEmbedder(cfg.Ollama.Host, cfg.Embedding.Model)
		}
	}

	log.Warn().Str("provider", cfg.Embedding.Provider).Msg("No embedding provider configured, vector search disabled")
	return nil
}

// openaiTimeout applies llm.timeout to the OpenAI client when it is set
func openaiTimeout(cfg config.LLMConfig) []option.RequestOption {
	if cfg.Timeout <= 0 {
		return nil
	}
	return []option.RequestOption{option.WithRequestTimeout(cfg.Timeout)}
}
