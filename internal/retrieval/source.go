package retrieval

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-assistant/internal/domain"
	"github.com/Rrens/rag-assistant/internal/metrics"
)

// DefaultK is the number of snippets requested when the caller passes k <= 0
const DefaultK = 15

// Source is one retrieval level
type Source interface {
	Name() string
	Search(ctx context.Context, query string, k int) ([]domain.Snippet, error)
}

// Rebuilder is implemented by levels that keep a derived index
type Rebuilder interface {
	Rebuild(ctx context.Context) error
}

// Warmer is implemented by levels that prepare state before first use
type Warmer interface {
	Warm(ctx context.Context) error
}

// Availability is implemented by levels that can be temporarily unusable
type Availability interface {
	Available() bool
}

// Chain tries its levels strictly in order. A level that errors hands over to
// the next; the first level that succeeds answers, even with no results.
type Chain struct {
	levels   []Source
	defaultK int
}

// NewChain creates a chain over levels in priority order
func NewChain(defaultK int, levels ...Source) *Chain {
	if defaultK <= 0 {
		defaultK = DefaultK
	}
	return &Chain{levels: levels, defaultK: defaultK}
}

// Search returns snippets from the first level that answers. It never fails;
// when every level errors the result is empty.
func (c *Chain) Search(ctx context.Context, query string, k int) []domain.Snippet {
	if k <= 0 {
		k = c.defaultK
	}

	for _, level := range c.levels {
		snippets, err := level.Search(ctx, query, k)
		if err != nil {
			metrics.RetrievalFallbacks.WithLabelValues(level.Name()).Inc()
			log.Warn().
				Err(err).
				Str("backend", level.Name()).
				Msg("Retrieval level failed, falling back")
			continue
		}

		metrics.RetrievalServed.WithLabelValues(level.Name()).Inc()
		log.Debug().
			Str("backend", level.Name()).
			Int("results", len(snippets)).
			Msg("Retrieval served")
		return snippets
	}

	return nil
}

// Rebuild forces every indexed level to re-ingest its documents
func (c *Chain) Rebuild(ctx context.Context) error {
	for _, level := range c.levels {
		if r, ok := level.(Rebuilder); ok {
			if err := r.Rebuild(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Warm prepares every level that keeps state. Failures are logged and leave
// the level to its usual fallback.
func (c *Chain) Warm(ctx context.Context) {
	for _, level := range c.levels {
		w, ok := level.(Warmer)
		if !ok {
			continue
		}
		if err := w.Warm(ctx); err != nil {
			log.Warn().Err(err).Str("backend", level.Name()).Msg("Retrieval level warm-up failed")
		}
	}
}

// LevelStatus describes one level for readiness reporting
type LevelStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Status reports the configured levels in order
func (c *Chain) Status() []LevelStatus {
	out := make([]LevelStatus, 0, len(c.levels))
	for _, level := range c.levels {
		st := LevelStatus{Name: level.Name(), Available: true}
		if a, ok := level.(Availability); ok {
			st.Available = a.Available()
		}
		out = append(out, st)
	}
	return out
}

// Backend returns the provenance shared by snippets, or "" when empty
func Backend(snippets []domain.Snippet) string {
	if len(snippets) == 0 {
		return ""
	}
	return snippets[0].Provenance
}
