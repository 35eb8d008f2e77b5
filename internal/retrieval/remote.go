package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-assistant/internal/config"
	"github.com/Rrens/rag-assistant/internal/domain"
	"github.com/Rrens/rag-assistant/internal/llm"
)

const defaultSearchAPIVersion = "2024-07-01"

// Candidate record fields, in priority order
var (
	contentFields = []string{"content", "content_text", "chunk", "text", "body", "page_content"}
	titleFields   = []string{"title", "document_title", "name", "heading"}
	typeFields    = []string{"type", "category", "doc_type"}
)

// RemoteSource queries an Azure AI Search index
type RemoteSource struct {
	cfg      config.RemoteConfig
	embedder llm.Embedder
	client   *http.Client
}

// NewRemoteSource creates the remote level. embedder may be nil, in which
// case only text queries are sent.
func NewRemoteSource(cfg config.RemoteConfig, embedder llm.Embedder) *RemoteSource {
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultSearchAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.VectorField == "" {
		cfg.VectorField = "content_embedding"
	}
	return &RemoteSource{
		cfg:      cfg,
		embedder: embedder,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (s *RemoteSource) Name() string {
	return domain.ProvenanceSearch
}

// Search sends one query. Vector mode falls back to a text query for this
// call when the query cannot be embedded. A successful empty result is
// returned as-is.
func (s *RemoteSource) Search(ctx context.Context, query string, k int) ([]domain.Snippet, error) {
	payload := s.payload(ctx, query, k)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s",
		strings.TrimRight(s.cfg.Endpoint, "/"), url.PathEscape(s.cfg.Index), url.QueryEscape(s.cfg.APIVersion))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("search returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result struct {
		Value []map[string]any `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	snippets := make([]domain.Snippet, 0, len(result.Value))
	for _, record := range result.Value {
		snippets = append(snippets, s.toSnippet(record))
	}

	log.Debug().Int("results", len(snippets)).Str("index", s.cfg.Index).Msg("Remote search returned")
	return snippets, nil
}

func (s *RemoteSource) payload(ctx context.Context, query string, k int) map[string]any {
	if s.cfg.UseVector && s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, query)
		if err == nil && len(vec) > 0 {
			p := map[string]any{
				"vectorQueries": []map[string]any{{
					"kind":   "vector",
					"vector": vec,
					"fields": s.cfg.VectorField,
					"k":      k,
				}},
				"top":    k,
				"select": "*",
			}
			if s.cfg.UseHybrid {
				p["search"] = query
				p["searchMode"] = "any"
				p["queryType"] = "simple"
			}
			return p
		}
		log.Warn().Err(err).Msg("Query embedding unavailable, using text search")
	}

	p := map[string]any{
		"search":     query,
		"top":        k,
		"select":     "*",
		"searchMode": "any",
		"queryType":  "simple",
	}
	if s.cfg.SemanticConfig != "" {
		p["queryType"] = "semantic"
		p["semanticConfiguration"] = s.cfg.SemanticConfig
		p["captions"] = "extractive"
		p["answers"] = "extractive"
	}
	return p
}

func (s *RemoteSource) toSnippet(record map[string]any) domain.Snippet {
	return domain.Snippet{
		Content:    firstString(record, contentFields),
		Title:      firstString(record, titleFields),
		Type:       firstString(record, typeFields),
		Score:      recordScore(record),
		Provenance: domain.ProvenanceSearch,
		Metadata:   record,
	}
}

func firstString(record map[string]any, candidates []string) string {
	for _, field := range candidates {
		if v, ok := record[field].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func recordScore(record map[string]any) float64 {
	for _, field := range []string{"@search.score", "searchScore"} {
		if v, ok := record[field].(float64); ok && v != 0 {
			return v
		}
	}
	return 0
}
