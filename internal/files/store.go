package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-assistant/internal/config"
	"github.com/Rrens/rag-assistant/internal/domain"
	"github.com/Rrens/rag-assistant/internal/metrics"
	"github.com/Rrens/rag-assistant/internal/security"
	"github.com/Rrens/rag-assistant/internal/session"
)

const tempPrefix = ".upload-"

// Store keeps uploaded files on disk, one directory per session
type Store struct {
	dir       string
	maxSize   int64
	extractor Extractor
	locks     *session.KeyedMutex
	now       func() time.Time
}

// NewStore creates the upload directory and returns a store rooted there
func NewStore(cfg config.FilesConfig, extractor Extractor) (*Store, error) {
	dir := cfg.UploadDir
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = domain.MaxUploadSize
	}
	if extractor == nil {
		extractor = DefaultExtractor{}
	}

	return &Store{
		dir:       dir,
		maxSize:   maxSize,
		extractor: extractor,
		locks:     session.NewKeyedMutex(),
		now:       time.Now,
	}, nil
}

// Save validates and stores an upload. size is the declared length; the
// bytes actually copied are checked against the same limit. A file with the
// same sanitized name replaces the previous one.
func (s *Store) Save(sessionID, name string, r io.Reader, size int64) (domain.UploadedFile, error) {
	clean, err := security.SanitizeFilename(name)
	if err != nil {
		return domain.UploadedFile{}, domain.NewValidationError("file", err.Error())
	}

	ft, ok := domain.DetectFileType(clean)
	if !ok {
		return domain.UploadedFile{}, domain.NewValidationError("file", "file type not allowed. Only pdf, xlsx are supported")
	}
	if size > s.maxSize {
		return domain.UploadedFile{}, s.tooLarge()
	}

	key := security.SessionKey(sessionID)
	unlock := s.locks.Lock(key)
	defer unlock()

	dir := filepath.Join(s.dir, key)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.UploadedFile{}, fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return domain.UploadedFile{}, fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, io.LimitReader(r, s.maxSize+1))
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return domain.UploadedFile{}, fmt.Errorf("failed to save file: %w", err)
	}
	if n > s.maxSize {
		os.Remove(tmpPath)
		return domain.UploadedFile{}, s.tooLarge()
	}

	path := filepath.Join(dir, clean)
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return domain.UploadedFile{}, fmt.Errorf("failed to save file: %w", err)
	}

	log.Info().
		Str("session_id", sessionID).
		Str("file", clean).
		Int64("size", n).
		Msg("File saved")

	return domain.UploadedFile{
		OriginalName: clean,
		StoredPath:   path,
		Type:         ft,
		Size:         n,
		SessionID:    sessionID,
		UploadedAt:   s.now(),
	}, nil
}

// List returns the session's files ordered by name. Files that disappear
// while listing are skipped.
func (s *Store) List(sessionID string) []domain.UploadedFile {
	dir := filepath.Join(s.dir, security.SessionKey(sessionID))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to list session files")
		}
		return nil
	}

	var out []domain.UploadedFile
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		ft, ok := domain.DetectFileType(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, domain.UploadedFile{
			OriginalName: entry.Name(),
			StoredPath:   filepath.Join(dir, entry.Name()),
			Type:         ft,
			Size:         info.Size(),
			SessionID:    sessionID,
			UploadedAt:   info.ModTime(),
		})
	}
	return out
}

// HasFiles reports whether the session has at least one stored file
func (s *Store) HasFiles(sessionID string) bool {
	return len(s.List(sessionID)) > 0
}

// Extract reads a single stored file
func (s *Store) Extract(ctx context.Context, file domain.UploadedFile) (string, error) {
	return s.extractor.Extract(ctx, file)
}

// ExtractAll returns one snippet per readable file. Files that cannot be read
// are reported in the failures and never abort the rest.
func (s *Store) ExtractAll(ctx context.Context, sessionID string) ([]domain.Snippet, []domain.FileFailure) {
	var (
		snippets []domain.Snippet
		failures []domain.FileFailure
	)
	for _, file := range s.List(sessionID) {
		if ctx.Err() != nil {
			failures = append(failures, domain.FileFailure{Name: file.OriginalName, Reason: ctx.Err().Error()})
			continue
		}

		text, err := s.extractor.Extract(ctx, file)
		if err != nil {
			log.Warn().Err(err).
				Str("session_id", sessionID).
				Str("file", file.OriginalName).
				Msg("Skipping unreadable file")
			failures = append(failures, domain.FileFailure{Name: file.OriginalName, Reason: err.Error()})
			continue
		}

		snippets = append(snippets, domain.Snippet{
			Content:    text,
			Title:      file.OriginalName,
			Type:       string(file.Type),
			Provenance: domain.ContextSourceFiles,
		})
	}
	return snippets, failures
}

// Clear deletes every file of the session and returns how many were removed
func (s *Store) Clear(sessionID string) (int, error) {
	key := security.SessionKey(sessionID)
	unlock := s.locks.Lock(key)
	defer unlock()

	dir := filepath.Join(s.dir, key)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read session directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		err := os.RemoveAll(filepath.Join(dir, entry.Name()))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
		if !strings.HasPrefix(entry.Name(), ".") {
			removed++
		}
	}

	if err := os.Remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to remove session directory")
	}

	log.Info().Str("session_id", sessionID).Int("removed", removed).Msg("Session files cleared")
	return removed, nil
}

// Delete removes a single file. A missing file is not an error.
func (s *Store) Delete(sessionID, name string) error {
	clean, err := security.SanitizeFilename(name)
	if err != nil {
		return domain.NewValidationError("name", err.Error())
	}

	key := security.SessionKey(sessionID)
	unlock := s.locks.Lock(key)
	defer unlock()

	dir := filepath.Join(s.dir, key)
	if err := os.Remove(filepath.Join(dir, clean)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	// Only succeeds once the directory is empty
	os.Remove(dir)

	log.Info().Str("session_id", sessionID).Str("file", clean).Msg("File deleted")
	return nil
}

// Sweep deletes files older than maxAge across all sessions, one file at a
// time under that session's lock, and removes directories left empty.
func (s *Store) Sweep(maxAge time.Duration) int {
	sessions, err := os.ReadDir(s.dir)
	if err != nil {
		log.Error().Err(err).Str("dir", s.dir).Msg("Failed to read upload directory")
		return 0
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, sess := range sessions {
		if !sess.IsDir() {
			continue
		}
		removed += s.sweepSession(sess.Name(), cutoff)
	}

	if removed > 0 {
		metrics.FilesSwept.Add(float64(removed))
	}
	log.Info().Int("removed", removed).Msg("File sweep completed")
	return removed
}

func (s *Store) sweepSession(key string, cutoff time.Time) int {
	dir := filepath.Join(s.dir, key)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		// Leftover temp files are removed but not counted as uploads
		if s.removeIfOlder(key, filepath.Join(dir, entry.Name()), cutoff) && !strings.HasPrefix(entry.Name(), ".") {
			removed++
		}
	}

	unlock := s.locks.Lock(key)
	os.Remove(dir)
	unlock()

	return removed
}

func (s *Store) removeIfOlder(key, path string, cutoff time.Time) bool {
	unlock := s.locks.Lock(key)
	defer unlock()

	info, err := os.Stat(path)
	if err != nil || !info.ModTime().Before(cutoff) {
		return false
	}
	if err := os.Remove(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("Failed to delete old file")
		}
		return false
	}
	log.Debug().Str("path", path).Msg("Deleted old file")
	return true
}

func (s *Store) tooLarge() error {
	return domain.NewValidationError("file", fmt.Sprintf("file too large. Maximum size is %dMB", s.maxSize/(1024*1024)))
}
