package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-assistant/internal/config"
	"github.com/Rrens/rag-assistant/internal/domain"
	"github.com/Rrens/rag-assistant/internal/llm"
	"github.com/Rrens/rag-assistant/internal/metrics"
	"github.com/Rrens/rag-assistant/internal/retrieval"
	"github.com/Rrens/rag-assistant/internal/security"
	"github.com/Rrens/rag-assistant/internal/session"
)

// GenericFailureMessage is shown to users when a message cannot be processed
const GenericFailureMessage = "I'm sorry, something went wrong while processing your message. Please try again."

// Failure codes reported on a PipelineError
const (
	CodeContextFailed    = "context_failed"
	CodePromptFailed     = "prompt_failed"
	CodeGenerationFailed = "generation_failed"
	CodeRecordingFailed  = "recording_failed"
	CodeInternal         = "internal_error"
)

const (
	defaultGenerationTimeout = 30 * time.Second
	defaultMaxMessageLength  = 4000
	defaultFilesContext      = 8000
)

// Retriever finds snippets for a query. It degrades instead of failing.
type Retriever interface {
	Search(ctx context.Context, query string, k int) []domain.Snippet
	Status() []retrieval.LevelStatus
}

// Generator produces model replies
type Generator interface {
	Generate(ctx context.Context, providerName, model string, req llm.Request) (*llm.Response, error)
	DefaultProvider() string
}

// FileStore holds uploaded files per session
type FileStore interface {
	Save(sessionID, name string, r io.Reader, size int64) (domain.UploadedFile, error)
	List(sessionID string) []domain.UploadedFile
	Extract(ctx context.Context, file domain.UploadedFile) (string, error)
	ExtractAll(ctx context.Context, sessionID string) ([]domain.Snippet, []domain.FileFailure)
	Clear(sessionID string) (int, error)
	Delete(sessionID, name string) error
}

// ChatOptions tune the conversation pipeline
type ChatOptions struct {
	SystemPrompt      string
	Provider          string
	Model             string
	Temperature       *float64
	MaxTokens         int
	PromptHistory     int
	SearchK           int
	SearchMaxContext  int
	FilesMaxContext   int
	GenerationTimeout time.Duration
	MaxMessageLength  int
}

// ChatOptionsFromConfig maps the application configuration onto ChatOptions
func ChatOptionsFromConfig(cfg *config.Config) ChatOptions {
	return ChatOptions{
		SystemPrompt:      cfg.LLM.SystemPrompt,
		Provider:          cfg.LLM.DefaultProvider,
		Temperature:       llm.Float(cfg.LLM.Temperature),
		MaxTokens:         cfg.LLM.MaxTokens,
		PromptHistory:     cfg.Session.PromptHistory,
		SearchK:           cfg.Search.DefaultK,
		SearchMaxContext:  cfg.Search.MaxContextLength,
		FilesMaxContext:   cfg.Files.MaxContextLength,
		GenerationTimeout: cfg.LLM.Timeout,
		MaxMessageLength:  cfg.Security.MaxMessageLength,
	}
}

// ChatService runs the conversation pipeline and the session operations
// around it
type ChatService struct {
	opts      ChatOptions
	retriever Retriever
	generator Generator
	files     FileStore
	memory    *session.Memory
}

// NewChatService creates a new chat service
func NewChatService(opts ChatOptions, retriever Retriever, generator Generator, files FileStore, memory *session.Memory) *ChatService {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = config.DefaultSystemPrompt
	}
	if opts.PromptHistory <= 0 {
		opts.PromptHistory = llm.DefaultPromptHistory
	}
	if opts.SearchK <= 0 {
		opts.SearchK = retrieval.DefaultK
	}
	if opts.SearchMaxContext <= 0 {
		opts.SearchMaxContext = retrieval.DefaultMaxContextLength
	}
	if opts.FilesMaxContext <= 0 {
		opts.FilesMaxContext = defaultFilesContext
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = defaultGenerationTimeout
	}
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = defaultMaxMessageLength
	}

	return &ChatService{
		opts:      opts,
		retriever: retriever,
		generator: generator,
		files:     files,
		memory:    memory,
	}
}

// pipeline carries the state of one message through its stages
type pipeline struct {
	requestID string
	sessionID string
	message   string
	stage     string

	context   string
	source    string
	backend   string
	documents int
	filesUsed int

	turns  []llm.Turn
	answer string
}

// ProcessMessage answers a message in the context of its session. Invalid
// input returns a *domain.ValidationError before anything runs; any later
// failure returns a *domain.PipelineError and leaves the history untouched.
func (s *ChatService) ProcessMessage(ctx context.Context, req domain.ChatRequest) (*domain.ChatResult, error) {
	start := time.Now()

	message := strings.TrimSpace(req.Message)
	if message == "" {
		metrics.MessagesProcessed.WithLabelValues("invalid").Inc()
		return nil, domain.NewValidationError("message", "message cannot be empty")
	}
	if utf8.RuneCountInString(message) > s.opts.MaxMessageLength {
		metrics.MessagesProcessed.WithLabelValues("invalid").Inc()
		return nil, domain.NewValidationError("message", fmt.Sprintf("message exceeds %d characters", s.opts.MaxMessageLength))
	}
	sessionID, err := resolveSession(req.SessionID)
	if err != nil {
		metrics.MessagesProcessed.WithLabelValues("invalid").Inc()
		return nil, err
	}

	p := &pipeline{
		requestID: uuid.New().String(),
		sessionID: sessionID,
		message:   message,
	}

	log.Info().
		Str("request_id", p.requestID).
		Str("session_id", sessionID).
		Str("message", truncate(message, 50)).
		Msg("Processing message")

	if err := s.run(ctx, p); err != nil {
		metrics.MessagesProcessed.WithLabelValues("errored").Inc()
		return nil, err
	}

	elapsed := time.Since(start)
	metrics.MessagesProcessed.WithLabelValues("done").Inc()
	metrics.PipelineDuration.Observe(elapsed.Seconds())

	source := p.source
	if source == "" {
		source = "none"
	}
	metrics.ContextSource.WithLabelValues(source).Inc()

	log.Info().
		Str("request_id", p.requestID).
		Str("context_source", source).
		Dur("elapsed", elapsed).
		Msg("Message processed")

	return &domain.ChatResult{
		RequestID:        p.requestID,
		SessionID:        sessionID,
		Response:         p.answer,
		DocumentsFound:   p.documents,
		FilesUsed:        p.filesUsed,
		HasContext:       p.context != "",
		ContextSource:    p.source,
		RetrievalBackend: p.backend,
		Session:          s.memory.Stats(sessionID),
		ProcessingTime:   math.Round(elapsed.Seconds()*100) / 100,
		Timestamp:        time.Now(),
	}, nil
}

// run walks the stages in order. A panic in any stage ends the pipeline as a
// failure of that stage.
func (s *ChatService) run(ctx context.Context, p *pipeline) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = s.fail(p, panicCode(p.stage), fmt.Errorf("panic: %v", rec))
		}
	}()

	p.stage = domain.StageResolvingContext
	if err := s.resolveContext(ctx, p); err != nil {
		return s.fail(p, CodeContextFailed, err)
	}

	p.stage = domain.StageBuildingPrompt
	history := s.memory.History(p.sessionID)
	p.turns = llm.BuildPrompt(s.opts.SystemPrompt, history, p.context, p.message, s.opts.PromptHistory)

	p.stage = domain.StageGenerating
	answer, err := s.generate(ctx, p)
	if err != nil {
		return s.fail(p, CodeGenerationFailed, err)
	}
	p.answer = answer

	p.stage = domain.StageRecording
	s.memory.Append(p.sessionID, p.message, p.answer)

	return nil
}

// resolveContext prefers the session's uploaded files and falls back to
// document search when none of them yields text
func (s *ChatService) resolveContext(ctx context.Context, p *pipeline) error {
	if len(s.files.List(p.sessionID)) > 0 {
		snippets, failures := s.files.ExtractAll(ctx, p.sessionID)
		if len(failures) > 0 {
			log.Warn().
				Str("request_id", p.requestID).
				Int("failed", len(failures)).
				Msg("Some session files could not be read")
		}

		if text := retrieval.Assemble(snippets, s.opts.FilesMaxContext); text != "" {
			p.context = text
			p.source = domain.ContextSourceFiles
			p.filesUsed = len(snippets)
			return nil
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	snippets := s.retriever.Search(ctx, p.message, s.opts.SearchK)
	p.documents = len(snippets)
	if text := retrieval.Assemble(snippets, s.opts.SearchMaxContext); text != "" {
		p.context = text
		p.source = domain.ContextSourceSearch
		p.backend = retrieval.Backend(snippets)
	}

	log.Debug().
		Str("request_id", p.requestID).
		Int("documents", p.documents).
		Str("backend", p.backend).
		Msg("Search context resolved")
	return nil
}

func (s *ChatService) generate(ctx context.Context, p *pipeline) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, s.opts.GenerationTimeout)
	defer cancel()

	resp, err := s.generator.Generate(genCtx, s.opts.Provider, s.opts.Model, llm.Request{
		Turns: p.turns,
		Options: llm.Options{
			Temperature: s.opts.Temperature,
			MaxTokens:   s.opts.MaxTokens,
		},
	})
	if err != nil {
		provider := s.opts.Provider
		var pe *domain.ProviderError
		if errors.As(err, &pe) {
			provider = pe.Provider
		}
		if provider == "" {
			provider = s.generator.DefaultProvider()
		}
		metrics.GenerationFailures.WithLabelValues(provider).Inc()
		return "", err
	}

	var raw any
	if resp != nil {
		raw = resp.Raw
		log.Debug().
			Str("request_id", p.requestID).
			Str("model", resp.Model).
			Int("tokens_used", resp.TokensUsed).
			Int64("latency_ms", resp.LatencyMs).
			Msg("Model response received")
	}
	return llm.Normalize(raw), nil
}

func (s *ChatService) fail(p *pipeline, code string, err error) error {
	log.Error().
		Err(err).
		Str("request_id", p.requestID).
		Str("session_id", p.sessionID).
		Str("stage", p.stage).
		Str("code", code).
		Msg("Message pipeline failed")

	return &domain.PipelineError{
		Stage:       p.stage,
		Code:        code,
		UserMessage: GenericFailureMessage,
		Err:         err,
	}
}

// StartNewConversation clears the session's history. Uploaded files are kept.
func (s *ChatService) StartNewConversation(sessionID string) (string, error) {
	sessionID, err := resolveSession(sessionID)
	if err != nil {
		return "", err
	}
	s.memory.Clear(sessionID)
	return sessionID, nil
}

// FileUpload is one file of an upload request
type FileUpload struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// UploadFiles stores each file and checks it can be read. Files that fail
// validation or extraction are removed and reported individually.
func (s *ChatService) UploadFiles(ctx context.Context, sessionID string, uploads []FileUpload) (*domain.UploadResult, error) {
	sessionID, err := resolveSession(sessionID)
	if err != nil {
		return nil, err
	}
	if len(uploads) == 0 {
		return nil, domain.NewValidationError("files", "no files uploaded")
	}

	result := &domain.UploadResult{Files: []domain.UploadedFile{}}
	for _, up := range uploads {
		f, err := s.files.Save(sessionID, up.Name, up.Reader, up.Size)
		if err != nil {
			reason := "failed to save file"
			if domain.IsValidation(err) {
				reason = err.Error()
			} else {
				log.Error().Err(err).Str("session_id", sessionID).Str("file", up.Name).Msg("Failed to save upload")
			}
			result.Failures = append(result.Failures, domain.FileFailure{Name: up.Name, Reason: reason})
			continue
		}

		if _, err := s.files.Extract(ctx, f); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Str("file", f.OriginalName).Msg("Uploaded file is unreadable")
			if derr := s.files.Delete(sessionID, f.OriginalName); derr != nil {
				log.Error().Err(derr).Str("file", f.OriginalName).Msg("Failed to remove unreadable upload")
			}
			result.Failures = append(result.Failures, domain.FileFailure{Name: f.OriginalName, Reason: err.Error()})
			continue
		}

		result.Files = append(result.Files, f)
	}

	if len(result.Files) > 0 {
		s.memory.Touch(sessionID)
	}
	return result, nil
}

// ListFiles returns the session's uploaded files
func (s *ChatService) ListFiles(sessionID string) ([]domain.UploadedFile, error) {
	sessionID, err := resolveSession(sessionID)
	if err != nil {
		return nil, err
	}
	files := s.files.List(sessionID)
	if files == nil {
		files = []domain.UploadedFile{}
	}
	return files, nil
}

// ClearFiles deletes all of the session's uploaded files
func (s *ChatService) ClearFiles(sessionID string) (int, error) {
	sessionID, err := resolveSession(sessionID)
	if err != nil {
		return 0, err
	}
	return s.files.Clear(sessionID)
}

// DeleteFile removes one uploaded file
func (s *ChatService) DeleteFile(sessionID, name string) error {
	sessionID, err := resolveSession(sessionID)
	if err != nil {
		return err
	}
	return s.files.Delete(sessionID, name)
}

// SessionStats describes a session without creating it
func (s *ChatService) SessionStats(sessionID string) (domain.SessionStats, error) {
	sessionID, err := resolveSession(sessionID)
	if err != nil {
		return domain.SessionStats{}, err
	}
	return s.memory.Stats(sessionID), nil
}

// Sessions lists every live session
func (s *ChatService) Sessions() []domain.SessionStats {
	return s.memory.Snapshot()
}

// Status describes the service for readiness checks
type Status struct {
	Retrieval       []retrieval.LevelStatus `json:"retrieval"`
	DefaultProvider string                  `json:"default_provider"`
	ActiveSessions  int                     `json:"active_sessions"`
}

// Status reports retrieval levels and session counts
func (s *ChatService) Status() Status {
	return Status{
		Retrieval:       s.retriever.Status(),
		DefaultProvider: s.generator.DefaultProvider(),
		ActiveSessions:  s.memory.Len(),
	}
}

// EvictFiles returns an eviction handler that removes an evicted session's
// uploads
func EvictFiles(files FileStore) func(sessionID string) {
	return func(sessionID string) {
		if _, err := files.Clear(sessionID); err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to remove files of evicted session")
		}
	}
}

func panicCode(stage string) string {
	switch stage {
	case domain.StageResolvingContext:
		return CodeContextFailed
	case domain.StageBuildingPrompt:
		return CodePromptFailed
	case domain.StageGenerating:
		return CodeGenerationFailed
	case domain.StageRecording:
		return CodeRecordingFailed
	default:
		return CodeInternal
	}
}

func resolveSession(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return domain.DefaultSessionID, nil
	}
	if err := security.ValidateSessionID(id); err != nil {
		return "", domain.NewValidationError("sessionId", err.Error())
	}
	return id, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
