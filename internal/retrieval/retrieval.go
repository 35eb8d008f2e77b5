package retrieval

import (
	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-assistant/internal/config"
	"github.com/Rrens/rag-assistant/internal/llm"
)

// New builds the retrieval chain from configuration: remote search when
// configured, then the local vector index when an embedder and store are
// available, then keyword ranking. Remote-only mode skips the local levels.
func New(cfg config.SearchConfig, embedder llm.Embedder, embeddingModel string, store ChunkStore) *Chain {
	var levels []Source

	if cfg.Remote.Enabled() {
		levels = append(levels, NewRemoteSource(cfg.Remote, embedder))
		if cfg.Remote.Only {
			log.Info().Str("index", cfg.Remote.Index).Msg("Retrieval in remote-only mode")
			return NewChain(cfg.DefaultK, levels...)
		}
	} else {
		log.Info().Msg("Remote search not configured, using local documents")
	}

	if embedder != nil && store != nil {
		splitter := NewSplitter(cfg.Local.ChunkSize, cfg.Local.ChunkOverlap)
		levels = append(levels, NewVectorSource(cfg.Local.DocumentsPath, store, embedder, embeddingModel, splitter))
	}

	levels = append(levels, NewKeywordSource(cfg.Local.DocumentsPath))
	return NewChain(cfg.DefaultK, levels...)
}
