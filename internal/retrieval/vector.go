package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-assistant/internal/domain"
	"github.com/Rrens/rag-assistant/internal/llm"
)

// ChunkStore persists the embedded chunks of the local index
type ChunkStore interface {
	Load(ctx context.Context) (string, []domain.Chunk, error)
	Replace(ctx context.Context, fingerprint string, chunks []domain.Chunk) error
}

// unavailableCooldown is how long a failed build keeps the level disabled
const unavailableCooldown = 10 * time.Minute

// buildTimeout bounds an index build started on behalf of a search
const buildTimeout = 15 * time.Minute

var (
	errIndexBuilding    = errors.New("vector index is being built")
	errIndexUnavailable = errors.New("vector index unavailable")
)

// VectorSource is the local semantic search level. The index is loaded (or
// built) once and rebuilt when the documents or embedding model change.
// Builds run outside the lock; searches arriving meanwhile get
// errIndexBuilding so the chain moves on to the next level.
type VectorSource struct {
	dir      string
	model    string
	store    ChunkStore
	embedder llm.Embedder
	splitter Splitter
	now      func() time.Time

	mu          sync.Mutex
	chunks      []domain.Chunk
	loaded      bool
	building    bool
	failedUntil time.Time
}

// NewVectorSource creates a vector level. model names the embedding model and
// is part of the index fingerprint.
func NewVectorSource(dir string, store ChunkStore, embedder llm.Embedder, model string, splitter Splitter) *VectorSource {
	return &VectorSource{
		dir:      dir,
		model:    model,
		store:    store,
		embedder: embedder,
		splitter: splitter,
		now:      time.Now,
	}
}

func (s *VectorSource) Name() string {
	return domain.ProvenanceLocalVector
}

// Available reports whether the level is usable right now
func (s *VectorSource) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().After(s.failedUntil)
}

// Search embeds the query and returns the k most similar chunks by cosine
// similarity
func (s *VectorSource) Search(ctx context.Context, query string, k int) ([]domain.Snippet, error) {
	chunks, err := s.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, 0, len(chunks))
	for i, c := range chunks {
		ranked = append(ranked, scored{idx: i, score: cosine(qv, c.Vector)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}

	out := make([]domain.Snippet, 0, len(ranked))
	for _, r := range ranked {
		c := chunks[r.idx]
		out = append(out, domain.Snippet{
			Content:    c.Content,
			Title:      c.Title,
			Type:       c.Type,
			Score:      r.score,
			Provenance: domain.ProvenanceLocalVector,
			Metadata: map[string]any{
				"source":   c.Source,
				"title":    c.Title,
				"type":     c.Type,
				"category": c.Category,
			},
		})
	}
	return out, nil
}

// Rebuild re-ingests the documents regardless of the stored fingerprint.
// The previous index keeps serving until the new one is committed.
func (s *VectorSource) Rebuild(ctx context.Context) error {
	s.mu.Lock()
	if s.building {
		s.mu.Unlock()
		return errIndexBuilding
	}
	s.building = true
	s.failedUntil = time.Time{}
	s.mu.Unlock()

	return s.runBuild(ctx, true)
}

// Warm loads or builds the index ahead of the first search
func (s *VectorSource) Warm(ctx context.Context) error {
	_, err := s.ensureLoaded(ctx)
	if errors.Is(err, errIndexBuilding) {
		return nil
	}
	return err
}

func (s *VectorSource) ensureLoaded(ctx context.Context) ([]domain.Chunk, error) {
	s.mu.Lock()
	switch {
	case s.loaded:
		chunks := s.chunks
		s.mu.Unlock()
		return chunks, nil
	case s.building:
		s.mu.Unlock()
		return nil, errIndexBuilding
	case s.now().Before(s.failedUntil):
		s.mu.Unlock()
		return nil, errIndexUnavailable
	}
	s.building = true
	s.mu.Unlock()

	// The build outlives the request that started it
	done := make(chan error, 1)
	go func() {
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), buildTimeout)
		defer cancel()
		done <- s.runBuild(bctx, false)
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks, nil
}

// runBuild builds without holding mu and commits the outcome. The caller must
// have set building. A build interrupted by its context does not start the
// cooldown.
func (s *VectorSource) runBuild(ctx context.Context, force bool) error {
	chunks, err := s.build(ctx, force)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.building = false

	if err != nil {
		if ctx.Err() != nil {
			log.Warn().Err(err).Msg("Vector index build interrupted")
			return err
		}
		s.failedUntil = s.now().Add(unavailableCooldown)
		log.Error().Err(err).Dur("cooldown", unavailableCooldown).Msg("Vector index unavailable, using keyword search")
		return err
	}

	s.chunks, s.loaded = chunks, true
	return nil
}

func (s *VectorSource) build(ctx context.Context, force bool) ([]domain.Chunk, error) {
	docs, err := LoadDocuments(s.dir)
	if err != nil {
		return nil, err
	}
	fingerprint := Fingerprint(docs, s.model, s.splitter.ChunkSize, s.splitter.ChunkOverlap)

	if !force {
		stored, chunks, err := s.store.Load(ctx)
		switch {
		case err == nil && stored == fingerprint:
			log.Info().Int("chunks", len(chunks)).Msg("Vector index loaded")
			return chunks, nil
		case err != nil:
			log.Warn().Err(err).Msg("Vector index missing or unreadable, rebuilding")
		default:
			log.Info().Msg("Vector index is stale, rebuilding")
		}
	}

	var chunks []domain.Chunk
	for _, d := range docs {
		for _, text := range s.splitter.Split(d.Content) {
			vec, err := s.embedder.Embed(ctx, text)
			if err != nil {
				return nil, fmt.Errorf("failed to embed chunk of %s: %w", d.Source, err)
			}
			chunks = append(chunks, domain.Chunk{
				Content:  text,
				Title:    d.Title,
				Type:     d.Type,
				Category: d.Category,
				Source:   d.Source,
				Vector:   vec,
			})
		}
	}

	if err := s.store.Replace(ctx, fingerprint, chunks); err != nil {
		return nil, err
	}

	log.Info().Int("documents", len(docs)).Int("chunks", len(chunks)).Msg("Vector index built")
	return chunks, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
