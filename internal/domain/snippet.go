package domain

// Provenance tags identify which retrieval backend produced a snippet
const (
	ProvenanceSearch       = "search"
	ProvenanceLocalVector  = "local-vector"
	ProvenanceLocalKeyword = "local-keyword"
)

// Snippet is a unit of retrieved text. Scores are backend-defined and not
// comparable across provenances.
type Snippet struct {
	Content    string         `json:"content"`
	Title      string         `json:"title,omitempty"`
	Type       string         `json:"type,omitempty"`
	Score      float64        `json:"score"`
	Provenance string         `json:"provenance"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Document is a source document loaded for local retrieval
type Document struct {
	Content  string `json:"content"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Source   string `json:"source"`
}

// Chunk is a window of a Document with its embedding, as stored in the local
// vector index
type Chunk struct {
	Content  string
	Title    string
	Type     string
	Category string
	Source   string
	Vector   []float32
}
