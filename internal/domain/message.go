package domain

import "time"

// ChatRequest is an incoming conversational message
type ChatRequest struct {
	Message   string `json:"message" validate:"required,max=4000"`
	SessionID string `json:"sessionId" validate:"omitempty,max=128"`
}

// SessionRequest carries only a session identifier
type SessionRequest struct {
	SessionID string `json:"sessionId" validate:"omitempty,max=128"`
}

// Context sources reported on a ChatResult
const (
	ContextSourceFiles  = "files"
	ContextSourceSearch = "search"
)

// ChatResult is the structured outcome of one pipeline pass
type ChatResult struct {
	RequestID        string       `json:"request_id"`
	SessionID        string       `json:"session_id"`
	Response         string       `json:"response"`
	DocumentsFound   int          `json:"documentsFound"`
	FilesUsed        int          `json:"filesUsed"`
	HasContext       bool         `json:"hasContext"`
	ContextSource    string       `json:"contextSource,omitempty"`
	RetrievalBackend string       `json:"retrievalBackend,omitempty"`
	Session          SessionStats `json:"session_info"`
	ProcessingTime   float64      `json:"processing_time"`
	Timestamp        time.Time    `json:"timestamp"`
}
