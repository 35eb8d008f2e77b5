package retrieval

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-assistant/internal/domain"
)

// Default splitter settings
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

var defaultSeparators = []string{"\n\n", "\n", " ", ""}

type documentRecord struct {
	Content  string `json:"content"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	Category string `json:"category"`
}

// LoadDocuments reads every *.json file in dir. Each file holds one document
// object or an array of them. Unreadable files are logged and skipped; a
// missing directory yields no documents.
func LoadDocuments(dir string) ([]domain.Document, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Warn().Str("path", dir).Msg("Documents directory not found")
		return nil, nil
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	var docs []domain.Document
	for _, path := range paths {
		records, err := readDocumentFile(path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to load document file")
			continue
		}
		for _, r := range records {
			docs = append(docs, domain.Document{
				Content:  r.Content,
				Title:    r.Title,
				Type:     r.Type,
				Category: r.Category,
				Source:   path,
			})
		}
	}

	log.Info().Int("documents", len(docs)).Str("path", dir).Msg("Loaded documents")
	return docs, nil
}

func readDocumentFile(path string) ([]documentRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var records []documentRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("failed to parse document list: %w", err)
		}
		return records, nil
	}

	var record documentRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return []documentRecord{record}, nil
}

// Fingerprint identifies a document set together with the settings used to
// index it. A stored index with a different fingerprint is stale.
func Fingerprint(docs []domain.Document, model string, chunkSize, chunkOverlap int) string {
	h := sha256.New()
	fmt.Fprintf(h, "model=%s;size=%d;overlap=%d\n", model, chunkSize, chunkOverlap)
	for _, d := range docs {
		fmt.Fprintf(h, "%d:%s|%d:%s|%s|%s|%s\n", len(d.Title), d.Title, len(d.Content), d.Content, d.Type, d.Category, d.Source)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Splitter breaks text into overlapping windows, preferring paragraph, then
// line, then word boundaries
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// NewSplitter returns a splitter with the default separators
func NewSplitter(chunkSize, chunkOverlap int) Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	return Splitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap, Separators: defaultSeparators}
}

// SplitText splits text with the default separators
func SplitText(text string, chunkSize, chunkOverlap int) []string {
	return NewSplitter(chunkSize, chunkOverlap).Split(text)
}

// Split returns the windows for text. Every window is at most ChunkSize runes.
func (s Splitter) Split(text string) []string {
	return s.split(text, s.Separators)
}

func (s Splitter) split(text string, separators []string) []string {
	separator := ""
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = ""
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var pieces []string
	if separator == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
	} else {
		for _, p := range strings.Split(text, separator) {
			if p != "" {
				pieces = append(pieces, p)
			}
		}
	}

	var out, good []string
	for _, p := range pieces {
		if utf8.RuneCountInString(p) < s.ChunkSize {
			good = append(good, p)
			continue
		}
		if len(good) > 0 {
			out = append(out, s.merge(good, separator)...)
			good = nil
		}
		if len(rest) == 0 {
			out = append(out, p)
		} else {
			out = append(out, s.split(p, rest)...)
		}
	}
	if len(good) > 0 {
		out = append(out, s.merge(good, separator)...)
	}
	return out
}

// merge packs small pieces into windows, carrying up to ChunkOverlap runes of
// trailing pieces into the next window
func (s Splitter) merge(pieces []string, separator string) []string {
	sepLen := utf8.RuneCountInString(separator)

	var docs, current []string
	total := 0
	joinLen := func() int {
		if len(current) > 0 {
			return sepLen
		}
		return 0
	}

	for _, p := range pieces {
		n := utf8.RuneCountInString(p)
		if total+n+joinLen() > s.ChunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
				docs = append(docs, doc)
			}
			for len(current) > 0 && (total > s.ChunkOverlap || (total+n+joinLen() > s.ChunkSize && total > 0)) {
				drop := utf8.RuneCountInString(current[0])
				if len(current) > 1 {
					drop += sepLen
				}
				total -= drop
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
		if len(current) > 1 {
			total += sepLen
		}
	}

	if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}
