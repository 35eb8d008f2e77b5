package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/rag-assistant/internal/api/handler"
	"github.com/Rrens/rag-assistant/internal/config"
	"github.com/Rrens/rag-assistant/internal/domain"
	"github.com/Rrens/rag-assistant/internal/files"
	"github.com/Rrens/rag-assistant/internal/llm"
	"github.com/Rrens/rag-assistant/internal/retrieval"
	"github.com/Rrens/rag-assistant/internal/service"
	"github.com/Rrens/rag-assistant/internal/session"
)

type stubRetriever struct{}

func (stubRetriever) Search(context.Context, string, int) []domain.Snippet {
	return []domain.Snippet{{Title: "Handbook", Content: "Office opens at 9.", Provenance: domain.ProvenanceLocalKeyword}}
}

func (stubRetriever) Status() []retrieval.LevelStatus {
	return []retrieval.LevelStatus{{Name: domain.ProvenanceLocalKeyword, Available: true}}
}

type stubGenerator struct {
	err error
}

func (g stubGenerator) Generate(context.Context, string, string, llm.Request) (*llm.Response, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &llm.Response{Raw: "The office opens at 9."}, nil
}

func (stubGenerator) DefaultProvider() string { return "openai" }

type stubExtractor struct{}

func (stubExtractor) Extract(_ context.Context, f domain.UploadedFile) (string, error) {
	if f.OriginalName == "bad.pdf" {
		return "", &domain.ExtractionError{File: f.OriginalName, Err: errors.New("no text")}
	}
	return "contents of " + f.OriginalName, nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func newTestRouter(t *testing.T, gen stubGenerator) (http.Handler, *service.ChatService) {
	t.Helper()

	store, err := files.NewStore(config.FilesConfig{UploadDir: t.TempDir()}, stubExtractor{})
	require.NoError(t, err)
	memory := session.NewMemory(10, 100, time.Hour)
	svc := service.NewChatService(service.ChatOptions{Provider: "openai"}, stubRetriever{}, gen, store, memory)

	chatHandler := handler.NewChatHandler(svc)
	fileHandler := handler.NewFileHandler(svc, 0)

	r := chi.NewRouter()
	r.Post("/chat", chatHandler.Chat)
	r.Post("/new-conversation", chatHandler.NewConversation)
	r.Get("/sessions/{sessionID}/stats", chatHandler.Stats)
	r.Get("/debug/sessions", chatHandler.DebugSessions)
	r.Post("/files", fileHandler.Upload)
	r.Get("/files", fileHandler.List)
	r.Delete("/files", fileHandler.Clear)
	r.Delete("/files/{name}", fileHandler.Delete)
	return r, svc
}

func do(t *testing.T, h http.Handler, req *http.Request) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	}
	return rec.Code, env
}

// Helper to make JSON request
func makeJSONRequest(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, path, sessionID string, names ...string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("sessionId", sessionID))
	for _, name := range names {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("%PDF-1.4 test"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	handler.HealthCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response["success"] != true {
		t.Error("expected success to be true")
	}

	data, ok := response["data"].(map[string]any)
	if !ok {
		t.Fatal("expected data to be a map")
	}

	if data["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", data["status"])
	}
}

func TestChat(t *testing.T) {
	h, _ := newTestRouter(t, stubGenerator{})

	code, env := do(t, h, makeJSONRequest(http.MethodPost, "/chat", map[string]string{
		"message":   "When does the office open?",
		"sessionId": "abc",
	}))
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	var result domain.ChatResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "The office opens at 9.", result.Response)
	assert.Equal(t, "abc", result.SessionID)
	assert.Equal(t, 1, result.DocumentsFound)
	assert.True(t, result.HasContext)
	assert.Equal(t, 1, result.Session.MessageCount)
}

func TestChat_InvalidInput(t *testing.T) {
	h, _ := newTestRouter(t, stubGenerator{})

	tests := []struct {
		name string
		req  *http.Request
	}{
		{name: "missing message", req: makeJSONRequest(http.MethodPost, "/chat", map[string]string{"sessionId": "abc"})},
		{name: "blank message", req: makeJSONRequest(http.MethodPost, "/chat", map[string]string{"message": "   "})},
		{name: "malformed body", req: httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString("{"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, h, tt.req)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.False(t, env.Success)
		})
	}
}

func TestChat_GenerationFailure(t *testing.T) {
	h, svc := newTestRouter(t, stubGenerator{err: errors.New("secret upstream detail")})

	code, env := do(t, h, makeJSONRequest(http.MethodPost, "/chat", map[string]string{"message": "hello"}))
	require.Equal(t, http.StatusInternalServerError, code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(env.Error, &body))
	assert.Equal(t, service.CodeGenerationFailed, body["code"])
	assert.Equal(t, service.GenericFailureMessage, body["message"])
	assert.NotContains(t, string(env.Error), "secret")

	stats, err := svc.SessionStats("")
	require.NoError(t, err)
	assert.False(t, stats.Exists)
}

func TestNewConversation(t *testing.T) {
	h, svc := newTestRouter(t, stubGenerator{})

	code, _ := do(t, h, makeJSONRequest(http.MethodPost, "/chat", map[string]string{"message": "hello", "sessionId": "s1"}))
	require.Equal(t, http.StatusOK, code)

	code, env := do(t, h, makeJSONRequest(http.MethodPost, "/new-conversation", map[string]string{"sessionId": "s1"}))
	require.Equal(t, http.StatusOK, code)

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "s1", data["sessionId"])

	stats, err := svc.SessionStats("s1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.MessageCount)

	code, env = do(t, h, httptest.NewRequest(http.MethodPost, "/new-conversation", nil))
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, domain.DefaultSessionID, data["sessionId"])
}

func TestSessionStats(t *testing.T) {
	h, _ := newTestRouter(t, stubGenerator{})

	code, env := do(t, h, httptest.NewRequest(http.MethodGet, "/sessions/unknown/stats", nil))
	require.Equal(t, http.StatusOK, code)

	var stats domain.SessionStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.False(t, stats.Exists)

	do(t, h, makeJSONRequest(http.MethodPost, "/chat", map[string]string{"message": "hi", "sessionId": "known"}))

	code, env = do(t, h, httptest.NewRequest(http.MethodGet, "/debug/sessions", nil))
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"session_id":"known"`)
}

func TestFiles_UploadListClear(t *testing.T) {
	h, _ := newTestRouter(t, stubGenerator{})

	code, env := do(t, h, multipartRequest(t, "/files", "s1", "policy.pdf", "bad.pdf", "notes.txt"))
	require.Equal(t, http.StatusOK, code)

	var result domain.UploadResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.Len(t, result.Files, 1)
	assert.Equal(t, "policy.pdf", result.Files[0].OriginalName)
	assert.Len(t, result.Failures, 2)

	code, env = do(t, h, httptest.NewRequest(http.MethodGet, "/files?sessionId=s1", nil))
	require.Equal(t, http.StatusOK, code)

	var listed struct {
		Files []domain.UploadedFile `json:"files"`
		Count int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	assert.Equal(t, 1, listed.Count)

	code, env = do(t, h, makeJSONRequest(http.MethodPost, "/chat", map[string]string{"message": "summarize", "sessionId": "s1"}))
	require.Equal(t, http.StatusOK, code)
	var chat domain.ChatResult
	require.NoError(t, json.Unmarshal(env.Data, &chat))
	assert.Equal(t, domain.ContextSourceFiles, chat.ContextSource)
	assert.Equal(t, 1, chat.FilesUsed)

	code, _ = do(t, h, httptest.NewRequest(http.MethodDelete, "/files?sessionId=s1", nil))
	require.Equal(t, http.StatusOK, code)

	code, env = do(t, h, httptest.NewRequest(http.MethodGet, "/files?sessionId=s1", nil))
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	assert.Equal(t, 0, listed.Count)
}

func TestFiles_UploadRejected(t *testing.T) {
	h, _ := newTestRouter(t, stubGenerator{})

	code, env := do(t, h, multipartRequest(t, "/files", "s1", "notes.txt"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(env.Error), "notes.txt")

	code, _ = do(t, h, multipartRequest(t, "/files", "s1"))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestFiles_Delete(t *testing.T) {
	h, _ := newTestRouter(t, stubGenerator{})

	code, _ := do(t, h, multipartRequest(t, "/files", "s1", "a.pdf", "b.pdf"))
	require.Equal(t, http.StatusOK, code)

	code, _ = do(t, h, httptest.NewRequest(http.MethodDelete, "/files/a.pdf?sessionId=s1", nil))
	require.Equal(t, http.StatusOK, code)

	_, env := do(t, h, httptest.NewRequest(http.MethodGet, "/files?sessionId=s1", nil))
	assert.NotContains(t, string(env.Data), "a.pdf")
	assert.Contains(t, string(env.Data), "b.pdf")
}

func TestReadyCheck(t *testing.T) {
	store, err := files.NewStore(config.FilesConfig{UploadDir: t.TempDir()}, stubExtractor{})
	require.NoError(t, err)
	svc := service.NewChatService(service.ChatOptions{}, stubRetriever{}, stubGenerator{}, store, session.NewMemory(0, 0, 0))

	rec := httptest.NewRecorder()
	handler.ReadyCheck(svc, nil)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"degraded":false`)

	rec = httptest.NewRecorder()
	handler.ReadyCheck(svc, failingPinger{})(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListLLMProviders(t *testing.T) {
	router := llm.NewRouter("openai", nil)

	rec := httptest.NewRecorder()
	handler.ListLLMProviders(router)(rec, httptest.NewRequest(http.MethodGet, "/llm-providers", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"providers":[]`)
	assert.Contains(t, rec.Body.String(), `"default_provider":"openai"`)
}
