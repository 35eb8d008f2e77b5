package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-assistant/internal/domain"
)

// Router manages LLM providers and routing
type Router struct {
	providers        map[string]Provider
	defaultProvider  string
	restrictedModels []string
	mu               sync.RWMutex
}

// NewRouter creates a new LLM router. A nil restricted list uses
// DefaultRestrictedModels.
func NewRouter(defaultProvider string, restrictedModels []string) *Router {
	if restrictedModels == nil {
		restrictedModels = DefaultRestrictedModels
	}
	return &Router{
		providers:        make(map[string]Provider),
		defaultProvider:  defaultProvider,
		restrictedModels: restrictedModels,
	}
}

// RegisterProvider registers an LLM provider
func (r *Router) RegisterProvider(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// GetProvider returns a provider by name
func (r *Router) GetProvider(name string) (Provider, error) {
	if name == "" {
		name = r.defaultProvider
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}

	if !p.IsConfigured() {
		return nil, fmt.Errorf("provider not configured: %s", name)
	}

	return p, nil
}

// Generate sends req to the named provider (default when empty). Restricted
// models always get the minimal parameter set; any other model is retried
// once in minimal mode if the provider rejects a sampling parameter.
func (r *Router) Generate(ctx context.Context, providerName, model string, req Request) (*Response, error) {
	p, err := r.GetProvider(providerName)
	if err != nil {
		return nil, &domain.ProviderError{Provider: providerName, Model: model, Err: err}
	}
	if model == "" {
		model = p.DefaultModel()
	}

	minimal := IsRestricted(model, r.restrictedModels)
	if minimal {
		req.Options = req.Options.Minimal()
	}

	resp, err := p.Generate(ctx, req, model)
	if err != nil && !minimal && isUnsupportedParam(err) && ctx.Err() == nil {
		log.Warn().
			Err(err).
			Str("provider", p.Name()).
			Str("model", model).
			Msg("Provider rejected sampling parameters, retrying with minimal parameters")

		req.Options = req.Options.Minimal()
		resp, err = p.Generate(ctx, req, model)
	}
	if err != nil {
		return nil, &domain.ProviderError{Provider: p.Name(), Model: model, Err: err}
	}

	return resp, nil
}

// ListProviders returns list of configured provider names
func (r *Router) ListProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var providers []string
	for name, p := range r.providers {
		if p.IsConfigured() {
			providers = append(providers, name)
		}
	}
	sort.Strings(providers)
	return providers
}

// DefaultProvider returns the default provider name
func (r *Router) DefaultProvider() string {
	return r.defaultProvider
}

// ProviderInfo contains information about an LLM provider
type ProviderInfo struct {
	Name       string   `json:"name"`
	Models     []string `json:"models"`
	Default    bool     `json:"default"`
	Configured bool     `json:"configured"`
}

// GetProvidersInfo returns information about all providers
func (r *Router) GetProvidersInfo() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var infos []ProviderInfo
	for name, p := range r.providers {
		infos = append(infos, ProviderInfo{
			Name:       name,
			Models:     p.AvailableModels(),
			Default:    name == r.defaultProvider,
			Configured: p.IsConfigured(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
