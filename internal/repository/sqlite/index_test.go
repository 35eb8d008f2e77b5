package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/rag-assistant/internal/domain"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestIndex_LoadEmpty(t *testing.T) {
	idx := openTestIndex(t)

	_, _, err := idx.Load(context.Background())
	assert.ErrorIs(t, err, ErrEmptyIndex)
}

func TestIndex_ReplaceAndLoad(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	chunks := []domain.Chunk{
		{Content: "first", Title: "A", Source: "a.json", Vector: []float32{0.5, -1.25, 3}},
		{Content: "second", Category: "hr", Vector: []float32{1, 0, 0}},
	}
	require.NoError(t, idx.Replace(ctx, "fp-1", chunks))

	fp, got, err := idx.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fp-1", fp)
	assert.Equal(t, chunks, got)

	// Replacing swaps content entirely
	require.NoError(t, idx.Replace(ctx, "fp-2", chunks[:1]))
	fp, got, err = idx.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fp-2", fp)
	assert.Len(t, got, 1)
}

func TestIndex_Reset(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Replace(ctx, "fp", []domain.Chunk{{Content: "x", Vector: []float32{1}}}))
	require.NoError(t, idx.Reset(ctx))

	_, _, err := idx.Load(ctx)
	assert.ErrorIs(t, err, ErrEmptyIndex)
}

func TestDecodeVector_Corrupt(t *testing.T) {
	_, err := decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
