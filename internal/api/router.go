package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Rrens/rag-assistant/internal/api/handler"
	customMiddleware "github.com/Rrens/rag-assistant/internal/api/middleware"
	"github.com/Rrens/rag-assistant/internal/config"
	"github.com/Rrens/rag-assistant/internal/metrics"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))

	chatHandler := handler.NewChatHandler(deps.Chat)
	fileHandler := handler.NewFileHandler(deps.Chat, cfg.Files.MaxSize)
	rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(deps.Limiter)

	// Typed-nil clients must not reach the handler as a non-nil Pinger
	var redisPinger handler.Pinger
	if deps.redis != nil {
		redisPinger = deps.redis
	}

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Chat, redisPinger))
		r.Get("/llm-providers", handler.ListLLMProviders(deps.LLM))
		r.Get("/debug/sessions", chatHandler.DebugSessions)
		r.Get("/sessions/{sessionID}/stats", chatHandler.Stats)

		r.Group(func(r chi.Router) {
			r.Use(rateLimitMiddleware.Limit)

			r.Post("/chat", chatHandler.Chat)
			r.Post("/new-conversation", chatHandler.NewConversation)

			r.Route("/files", func(r chi.Router) {
				r.Get("/", fileHandler.List)
				r.Post("/", fileHandler.Upload)
				r.Delete("/", fileHandler.Clear)
				r.Delete("/{name}", fileHandler.Delete)
			})
		})
	})

	return r
}
