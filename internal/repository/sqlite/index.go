package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/Rrens/rag-assistant/internal/domain"
)

const schemaVersion = 1

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS chunks (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		content  TEXT NOT NULL,
		title    TEXT NOT NULL DEFAULT '',
		type     TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		source   TEXT NOT NULL DEFAULT '',
		vector   BLOB NOT NULL
	)`,
}

// ErrEmptyIndex is returned by Load when no index has been built yet
var ErrEmptyIndex = errors.New("vector index is empty")

// Index persists chunk embeddings for the local vector search
type Index struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the index database at path
func Open(ctx context.Context, path string) (*Index, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping index: %w", err)
	}

	idx := &Index{db: db, path: path}
	if err := idx.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (i *Index) migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := i.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate index: %w", err)
		}
	}
	_, err := i.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)`, fmt.Sprint(schemaVersion))
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// Close closes the database
func (i *Index) Close() error {
	return i.db.Close()
}

// Load returns the stored fingerprint and all chunks. ErrEmptyIndex means
// nothing has been stored.
func (i *Index) Load(ctx context.Context) (string, []domain.Chunk, error) {
	var fingerprint string
	err := i.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'fingerprint'`).Scan(&fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, ErrEmptyIndex
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to read fingerprint: %w", err)
	}

	rows, err := i.db.QueryContext(ctx,
		`SELECT content, title, type, category, source, vector FROM chunks ORDER BY id`)
	if err != nil {
		return "", nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var blob []byte
		if err := rows.Scan(&c.Content, &c.Title, &c.Type, &c.Category, &c.Source, &blob); err != nil {
			return "", nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return "", nil, err
		}
		c.Vector = vec
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return "", nil, fmt.Errorf("failed to iterate chunks: %w", err)
	}
	if len(chunks) == 0 {
		return "", nil, ErrEmptyIndex
	}

	return fingerprint, chunks, nil
}

// Replace atomically swaps the stored chunks and fingerprint
func (i *Index) Replace(ctx context.Context, fingerprint string, chunks []domain.Chunk) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (content, title, type, category, source, vector) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.Content, c.Title, c.Type, c.Category, c.Source, encodeVector(c.Vector)); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO meta (key, value) VALUES ('fingerprint', ?)`, fingerprint); err != nil {
		return fmt.Errorf("failed to store fingerprint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}
	return nil
}

// Reset removes every chunk and the fingerprint
func (i *Index) Reset(ctx context.Context) error {
	if _, err := i.db.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}
	if _, err := i.db.ExecContext(ctx, `DELETE FROM meta WHERE key = 'fingerprint'`); err != nil {
		return fmt.Errorf("failed to clear fingerprint: %w", err)
	}
	return nil
}

// Vectors are stored as little-endian float32 sequences
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("corrupt vector blob of %d bytes", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vec, nil
}
