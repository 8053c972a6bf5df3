package chromemdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"constitution-rag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCollection = "constitution"

func entries() []models.ChunkEmbedding {
	return []models.ChunkEmbedding{
		{ID: "a", Content: "federal republic", Embedding: []float32{1, 0}, SourceFilename: "c.pdf", PageNumber: 1, TotalPages: 3, ChunkID: 1, EmbeddingModel: "m"},
		{ID: "b", Content: "state religion", Embedding: []float32{0, 1}, SourceFilename: "c.pdf", PageNumber: 2, TotalPages: 3, ChunkID: 1, EmbeddingModel: "m"},
		{ID: "c", Content: "both", Embedding: []float32{0.7071, 0.7071}, SourceFilename: "c.pdf", PageNumber: 3, TotalPages: 3, ChunkID: 1, EmbeddingModel: "m"},
	}
}

func openWritable(t *testing.T, dir string) *VectorDBManager {
	t.Helper()
	m, err := NewVectorDBManager(dir, testCollection, false, false, "", nil)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestAddAndSearch(t *testing.T) {
	ctx := context.Background()
	m := openWritable(t, filepath.Join(t.TempDir(), "db"))

	require.NoError(t, m.AddDocuments(ctx, entries()))
	n, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	results, err := m.Search(ctx, []float32{0.9, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "c", results[1].ID)
	assert.Equal(t, "federal republic", results[0].Content)
	assert.Equal(t, "1", results[0].Metadata[models.MetaPage])
	assert.Equal(t, "m", results[0].Metadata[models.MetaEmbeddingModel])
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
}

func TestSearchBounds(t *testing.T) {
	ctx := context.Background()
	m := openWritable(t, filepath.Join(t.TempDir(), "db"))

	t.Run("empty collection", func(t *testing.T) {
		results, err := m.Search(ctx, []float32{1, 0}, 3)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	require.NoError(t, m.AddDocuments(ctx, entries()[:2]))

	t.Run("k larger than collection", func(t *testing.T) {
		results, err := m.Search(ctx, []float32{1, 0}, 3)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("missing embedding", func(t *testing.T) {
		_, err := m.Search(ctx, nil, 3)
		assert.Error(t, err)
	})

	t.Run("dimension mismatch surfaces the store error", func(t *testing.T) {
		_, err := m.Search(ctx, []float32{1, 0, 0}, 1)
		assert.Error(t, err)
	})
}

func TestDuplicateIngestionAddsEntries(t *testing.T) {
	ctx := context.Background()
	m := openWritable(t, filepath.Join(t.TempDir(), "db"))

	first := entries()
	second := entries()
	for i := range second {
		second[i].ID += "-again"
	}
	require.NoError(t, m.AddDocuments(ctx, first))
	require.NoError(t, m.AddDocuments(ctx, second))

	n, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestPersistenceAndReadOnly(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "db")

	w := openWritable(t, dir)
	require.NoError(t, w.AddDocuments(ctx, entries()))
	require.NoError(t, w.Close())

	r, err := NewVectorDBManager(dir, testCollection, false, true, "", nil)
	require.NoError(t, err)
	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	results, err := r.Search(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)

	t.Run("read only cannot write", func(t *testing.T) {
		missing, err := NewVectorDBManager(dir, "other", false, true, "", nil)
		require.NoError(t, err)
		assert.Error(t, missing.AddDocuments(ctx, entries()))

		results, err := missing.Search(ctx, []float32{1, 0}, 3)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestReadOnlyMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nope")

	_, err := NewVectorDBManager(dir, testCollection, false, true, "", nil)
	assert.ErrorIs(t, err, ErrStoreNotFound)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "read-only open must not create the directory")
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	m := openWritable(t, filepath.Join(t.TempDir(), "db"))
	require.NoError(t, m.AddDocuments(ctx, entries()))

	require.NoError(t, m.Reset(ctx))
	n, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, m.AddDocuments(ctx, entries()[:1]))
	n, err = m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	key := "0123456789abcdef0123456789abcdef"
	file := filepath.Join(base, "backup.gob")

	src, err := NewVectorDBManager(filepath.Join(base, "src"), testCollection, false, false, key, nil)
	require.NoError(t, err)
	require.NoError(t, src.AddDocuments(ctx, entries()))
	require.NoError(t, src.Export(ctx, file))

	dstDir := filepath.Join(base, "dst")
	require.NoError(t, os.MkdirAll(dstDir, 0o755))
	dst, err := NewVectorDBManager(dstDir, testCollection, false, true, key, nil)
	require.NoError(t, err)
	require.NoError(t, dst.Import(ctx, file))

	n, err := dst.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	t.Run("export without collection", func(t *testing.T) {
		empty, err := NewVectorDBManager(dstDir, "missing", false, true, "", nil)
		require.NoError(t, err)
		assert.Error(t, empty.Export(ctx, filepath.Join(base, "x.gob")))
	})
}
