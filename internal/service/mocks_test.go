package service

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/Rrens/rag-assistant/internal/domain"
	"github.com/Rrens/rag-assistant/internal/llm"
	"github.com/Rrens/rag-assistant/internal/retrieval"
)

// MockRetriever mocks the Retriever interface
type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Search(ctx context.Context, query string, k int) []domain.Snippet {
	args := m.Called(ctx, query, k)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.Snippet)
}

func (m *MockRetriever) Status() []retrieval.LevelStatus {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]retrieval.LevelStatus)
}

// MockGenerator mocks the Generator interface
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, providerName, model string, req llm.Request) (*llm.Response, error) {
	args := m.Called(ctx, providerName, model, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Response), args.Error(1)
}

func (m *MockGenerator) DefaultProvider() string {
	args := m.Called()
	return args.String(0)
}

// MockFileStore mocks the FileStore interface
type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Save(sessionID, name string, r io.Reader, size int64) (domain.UploadedFile, error) {
	args := m.Called(sessionID, name, r, size)
	return args.Get(0).(domain.UploadedFile), args.Error(1)
}

func (m *MockFileStore) List(sessionID string) []domain.UploadedFile {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.UploadedFile)
}

func (m *MockFileStore) Extract(ctx context.Context, file domain.UploadedFile) (string, error) {
	args := m.Called(ctx, file)
	return args.String(0), args.Error(1)
}

func (m *MockFileStore) ExtractAll(ctx context.Context, sessionID string) ([]domain.Snippet, []domain.FileFailure) {
	args := m.Called(ctx, sessionID)
	var snippets []domain.Snippet
	if v := args.Get(0); v != nil {
		snippets = v.([]domain.Snippet)
	}
	var failures []domain.FileFailure
	if v := args.Get(1); v != nil {
		failures = v.([]domain.FileFailure)
	}
	return snippets, failures
}

func (m *MockFileStore) Clear(sessionID string) (int, error) {
	args := m.Called(sessionID)
	return args.Int(0), args.Error(1)
}

func (m *MockFileStore) Delete(sessionID, name string) error {
	args := m.Called(sessionID, name)
	return args.Error(0)
}
