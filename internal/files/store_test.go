package files

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Rrens/rag-assistant/internal/config"
	"github.com/Rrens/rag-assistant/internal/domain"
)

type stubExtractor struct {
	failing map[string]bool
}

func (e stubExtractor) Extract(_ context.Context, f domain.UploadedFile) (string, error) {
	if e.failing[f.OriginalName] {
		return "", &domain.ExtractionError{File: f.OriginalName, Err: errors.New("broken")}
	}
	data, err := os.ReadFile(f.StoredPath)
	if err != nil {
		return "", err
	}
	return "text of " + f.OriginalName + ": " + string(data), nil
}

func newTestStore(t *testing.T, ex Extractor) *Store {
	t.Helper()
	s, err := NewStore(config.FilesConfig{UploadDir: t.TempDir(), MaxSize: 1024}, ex)
	require.NoError(t, err)
	return s
}

func TestStore_UploadListClear(t *testing.T) {
	s := newTestStore(t, stubExtractor{})

	f, err := s.Save("sess-1", "Report 2024.pdf", strings.NewReader("pdf body"), 8)
	require.NoError(t, err)
	assert.Equal(t, "Report_2024.pdf", f.OriginalName)
	assert.Equal(t, domain.FileTypePDF, f.Type)
	assert.Equal(t, int64(8), f.Size)

	_, err = s.Save("sess-1", "budget.xlsx", strings.NewReader("sheet"), 5)
	require.NoError(t, err)

	listed := s.List("sess-1")
	require.Len(t, listed, 2)
	assert.Equal(t, "Report_2024.pdf", listed[0].OriginalName)
	assert.Equal(t, "budget.xlsx", listed[1].OriginalName)
	assert.Empty(t, s.List("sess-2"))
	assert.True(t, s.HasFiles("sess-1"))

	removed, err := s.Clear("sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Empty(t, s.List("sess-1"))

	removed, err = s.Clear("sess-1")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestStore_SaveValidation(t *testing.T) {
	s := newTestStore(t, stubExtractor{})

	tests := []struct {
		name     string
		filename string
		body     string
		size     int64
	}{
		{name: "disallowed type", filename: "notes.txt", body: "x", size: 1},
		{name: "no extension", filename: "README", body: "x", size: 1},
		{name: "empty name", filename: "../..", body: "x", size: 1},
		{name: "declared too large", filename: "big.pdf", body: "x", size: 2048},
		{name: "copied too large", filename: "big.pdf", body: strings.Repeat("x", 2000), size: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Save("sess", tt.filename, strings.NewReader(tt.body), tt.size)
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err))
		})
	}

	assert.Empty(t, s.List("sess"))
	entries, _ := os.ReadDir(filepath.Join(s.dir, "c2Vzcw"))
	assert.Empty(t, entries, "partial uploads must be removed")
}

func TestStore_PathTraversal(t *testing.T) {
	s := newTestStore(t, stubExtractor{})

	f, err := s.Save("../../etc", "../../passwd.pdf", strings.NewReader("x"), 1)
	require.NoError(t, err)

	rel, err := filepath.Rel(s.dir, f.StoredPath)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(rel, ".."))
	assert.Equal(t, "passwd.pdf", filepath.Base(f.StoredPath))
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t, stubExtractor{})

	_, err := s.Save("sess", "a.pdf", strings.NewReader("a"), 1)
	require.NoError(t, err)
	_, err = s.Save("sess", "b.pdf", strings.NewReader("b"), 1)
	require.NoError(t, err)

	require.NoError(t, s.Delete("sess", "a.pdf"))
	require.NoError(t, s.Delete("sess", "a.pdf"))

	listed := s.List("sess")
	require.Len(t, listed, 1)
	assert.Equal(t, "b.pdf", listed[0].OriginalName)
}

func TestStore_ExtractAllSkipsFailures(t *testing.T) {
	s := newTestStore(t, stubExtractor{failing: map[string]bool{"bad.pdf": true}})

	_, err := s.Save("sess", "bad.pdf", strings.NewReader("x"), 1)
	require.NoError(t, err)
	_, err = s.Save("sess", "good.pdf", strings.NewReader("hello"), 5)
	require.NoError(t, err)

	snippets, failures := s.ExtractAll(context.Background(), "sess")

	require.Len(t, snippets, 1)
	assert.Equal(t, "good.pdf", snippets[0].Title)
	assert.Equal(t, "text of good.pdf: hello", snippets[0].Content)
	assert.Equal(t, domain.ContextSourceFiles, snippets[0].Provenance)

	require.Len(t, failures, 1)
	assert.Equal(t, "bad.pdf", failures[0].Name)
	assert.Contains(t, failures[0].Reason, "broken")
}

func TestStore_Sweep(t *testing.T) {
	s := newTestStore(t, stubExtractor{})

	old, err := s.Save("old-sess", "old.pdf", strings.NewReader("x"), 1)
	require.NoError(t, err)
	_, err = s.Save("new-sess", "new.pdf", strings.NewReader("y"), 1)
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old.StoredPath, past, past))

	assert.Equal(t, 1, s.Sweep(24*time.Hour))
	assert.Empty(t, s.List("old-sess"))
	assert.Len(t, s.List("new-sess"), 1)

	_, err = os.Stat(filepath.Dir(old.StoredPath))
	assert.True(t, os.IsNotExist(err), "empty session directory should be removed")
}

func TestStore_Sweep_TempFilesNotCounted(t *testing.T) {
	s := newTestStore(t, stubExtractor{})

	saved, err := s.Save("sess", "report.pdf", strings.NewReader("x"), 1)
	require.NoError(t, err)

	// A temp file left behind by an interrupted upload
	tmp := filepath.Join(filepath.Dir(saved.StoredPath), ".upload-123")
	require.NoError(t, os.WriteFile(tmp, []byte("partial"), 0o600))

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(saved.StoredPath, past, past))
	require.NoError(t, os.Chtimes(tmp, past, past))

	assert.Equal(t, 1, s.Sweep(24*time.Hour))

	_, err = os.Stat(tmp)
	assert.True(t, os.IsNotExist(err), "stale temp file should be removed")
}

func TestDefaultExtractor_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.xlsx")

	wb := excelize.NewFile()
	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &[]any{"Item", "Cost"}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A3", &[]any{"Laptop", " ", 1200}))
	require.NoError(t, wb.SaveAs(path))
	require.NoError(t, wb.Close())

	text, err := DefaultExtractor{}.Extract(context.Background(), domain.UploadedFile{
		OriginalName: "budget.xlsx",
		StoredPath:   path,
		Type:         domain.FileTypeXLSX,
	})
	require.NoError(t, err)

	assert.Equal(t, "--- Sheet: Sheet1 ---\nRow 1: Item | Cost\nRow 3: Laptop | 1200", text)
}

func TestDefaultExtractor_EmptyWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")

	wb := excelize.NewFile()
	require.NoError(t, wb.SaveAs(path))
	require.NoError(t, wb.Close())

	_, err := DefaultExtractor{}.Extract(context.Background(), domain.UploadedFile{
		OriginalName: "empty.xlsx",
		StoredPath:   path,
		Type:         domain.FileTypeXLSX,
	})

	var extractErr *domain.ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, "empty.xlsx", extractErr.File)
}

func TestDefaultExtractor_InvalidPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("not a pdf "), 10), 0o644))

	_, err := DefaultExtractor{}.Extract(context.Background(), domain.UploadedFile{
		OriginalName: "broken.pdf",
		StoredPath:   path,
		Type:         domain.FileTypePDF,
	})

	var extractErr *domain.ExtractionError
	assert.ErrorAs(t, err, &extractErr)
}
