package handler

import (
	"context"
	"net/http"

	"github.com/Rrens/rag-assistant/internal/api/response"
	"github.com/Rrens/rag-assistant/internal/llm"
	"github.com/Rrens/rag-assistant/internal/service"
)

// Pinger checks an external dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// ReadyCheck reports readiness. Retrieval levels that are down mark the
// service degraded but still ready; an unreachable Redis makes it not ready.
func ReadyCheck(chatService *service.ChatService, redis Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redis != nil {
			if err := redis.Ping(r.Context()); err != nil {
				response.ServiceUnavailable(w, "redis not ready")
				return
			}
		}

		status := chatService.Status()
		degraded := false
		for _, level := range status.Retrieval {
			if !level.Available {
				degraded = true
			}
		}

		response.OK(w, map[string]any{
			"status":   "ready",
			"degraded": degraded,
			"service":  status,
		})
	}
}

// ListLLMProviders returns registered LLM providers
func ListLLMProviders(router *llm.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providers := router.GetProvidersInfo()
		if providers == nil {
			providers = []llm.ProviderInfo{}
		}

		response.OK(w, map[string]any{
			"providers":        providers,
			"default_provider": router.DefaultProvider(),
		})
	}
}
