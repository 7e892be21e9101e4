package biz

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIndexer_IndexDirectory(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "guide.md", strings.Repeat("usable markdown content. ", 20))
	writeTestFile(t, dir, "notes.txt", strings.Repeat("plain text notes. ", 20))
	writeTestFile(t, dir, "image.png", "binary-ish ignored payload")

	vs := &mockVectorStore{hasFile: map[string]bool{}}
	embedder := &mockEmbedder{}
	idx := NewIndexer(vs, embedder, &IndexerConfig{
		ChunkSize:    100,
		ChunkOverlap: 20,
		Collection:   "kb",
		EmbeddingDim: 3,
		Workers:      2,
	})

	require.NoError(t, idx.IndexDirectory(context.Background(), dir))

	// 两个文本文件入库，PNG 被忽略
	require.NotEmpty(t, vs.insertedChunks)
	files := map[string]bool{}
	for _, chunk := range vs.insertedChunks {
		files[chunk.FileName] = true
		assert.NotEmpty(t, chunk.Content)
		assert.Len(t, chunk.Embedding, 3)
		assert.NotEmpty(t, chunk.DocumentID)
	}
	assert.True(t, files["guide.md"])
	assert.True(t, files["notes.txt"])
	assert.False(t, files["image.png"])
}

func TestIndexer_ConcurrentWorkers(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 8; i++ {
		writeTestFile(t, dir, fmt.Sprintf("doc-%d.md", i), strings.Repeat("concurrently indexed content. ", 20))
	}

	vs := &mockVectorStore{hasFile: map[string]bool{}}
	idx := NewIndexer(vs, &mockEmbedder{}, &IndexerConfig{
		ChunkSize:    100,
		ChunkOverlap: 20,
		Collection:   "kb",
		EmbeddingDim: 3,
		Workers:      4,
	})

	require.NoError(t, idx.IndexDirectory(context.Background(), dir))

	// 每个文件都被入库，并发写入不丢块
	files := map[string]bool{}
	for _, chunk := range vs.insertedChunks {
		files[chunk.FileName] = true
	}
	assert.Len(t, files, 8)
}

func TestIndexer_IncrementalSkip(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "old.md", strings.Repeat("previously indexed. ", 20))
	writeTestFile(t, dir, "new.md", strings.Repeat("fresh content here. ", 20))

	vs := &mockVectorStore{hasFile: map[string]bool{"old.md": true}}
	idx := NewIndexer(vs, &mockEmbedder{}, &IndexerConfig{
		ChunkSize:    100,
		ChunkOverlap: 20,
		Collection:   "kb",
		EmbeddingDim: 3,
		Workers:      1,
	})

	require.NoError(t, idx.IndexDirectory(context.Background(), dir))

	for _, chunk := range vs.insertedChunks {
		assert.NotEqual(t, "old.md", chunk.FileName)
	}
}

func TestIndexer_ChunkOrdering(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "long.md", strings.Repeat("sentence with enough length to survive filtering. ", 40))

	vs := &mockVectorStore{hasFile: map[string]bool{}}
	idx := NewIndexer(vs, &mockEmbedder{}, &IndexerConfig{
		ChunkSize:    200,
		ChunkOverlap: 50,
		Collection:   "kb",
		EmbeddingDim: 3,
		Workers:      1,
	})

	require.NoError(t, idx.IndexDirectory(context.Background(), dir))

	require.Greater(t, len(vs.insertedChunks), 1)
	for i, chunk := range vs.insertedChunks {
		assert.Equal(t, i, chunk.ChunkID)
	}
}

func TestIndexer_EmptyDirectory(t *testing.T) {
	vs := &mockVectorStore{hasFile: map[string]bool{}}
	idx := NewIndexer(vs, &mockEmbedder{}, &IndexerConfig{
		ChunkSize:    100,
		ChunkOverlap: 20,
		Collection:   "kb",
		EmbeddingDim: 3,
		Workers:      1,
	})

	require.NoError(t, idx.IndexDirectory(context.Background(), t.TempDir()))
	assert.Empty(t, vs.insertedChunks)
}
