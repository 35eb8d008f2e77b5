package retrieval

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Rrens/rag-assistant/internal/domain"
)

// KeywordSource ranks local documents by word overlap with the query
type KeywordSource struct {
	dir string

	mu     sync.Mutex
	docs   []domain.Document
	loaded bool
}

// NewKeywordSource creates a keyword level over the JSON documents in dir
func NewKeywordSource(dir string) *KeywordSource {
	return &KeywordSource{dir: dir}
}

func (s *KeywordSource) Name() string {
	return domain.ProvenanceLocalKeyword
}

func (s *KeywordSource) Search(ctx context.Context, query string, k int) ([]domain.Snippet, error) {
	docs, err := s.documents()
	if err != nil {
		return nil, err
	}
	return RankByKeywords(docs, query, k), nil
}

// Rebuild drops the cached documents so the next search reloads them
func (s *KeywordSource) Rebuild(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs, s.loaded = nil, false
	return nil
}

func (s *KeywordSource) documents() ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.docs, nil
	}
	docs, err := LoadDocuments(s.dir)
	if err != nil {
		return nil, err
	}
	s.docs, s.loaded = docs, true
	return docs, nil
}

// RankByKeywords scores each document by the number of distinct query words
// in its content plus twice the number in its title. Zero scores are dropped
// and ties keep document order.
func RankByKeywords(docs []domain.Document, query string, k int) []domain.Snippet {
	queryWords := wordSet(query)
	if len(queryWords) == 0 {
		return nil
	}

	var out []domain.Snippet
	for _, d := range docs {
		score := overlap(queryWords, wordSet(d.Content)) + 2*overlap(queryWords, wordSet(d.Title))
		if score == 0 {
			continue
		}
		out = append(out, domain.Snippet{
			Content:    d.Content,
			Title:      d.Title,
			Type:       d.Type,
			Score:      float64(score),
			Provenance: domain.ProvenanceLocalKeyword,
			Metadata:   documentMetadata(d),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}

func documentMetadata(d domain.Document) map[string]any {
	return map[string]any{
		"source":   d.Source,
		"title":    d.Title,
		"type":     d.Type,
		"category": d.Category,
	}
}
