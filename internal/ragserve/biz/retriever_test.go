package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/ragserve/internal/ragserve/store"
)

func TestRetriever_InstructFraming(t *testing.T) {
	embedder := &mockEmbedder{}
	vs := &mockVectorStore{
		searchResults: []*store.SearchResult{
			{FileName: "a.md", Content: "passage", Score: 0.9},
		},
	}
	r := NewRetriever(vs, embedder, &RetrieverConfig{TopK: 5, Collection: "kb"})

	results, err := r.Retrieve(context.Background(), "what is milvus?", "Find database docs")
	require.NoError(t, err)
	assert.Len(t, results, 1)

	// 嵌入文本带指令前缀，原始查询保持不变
	require.Len(t, embedder.seenSingle, 1)
	assert.Equal(t, "Instruct: Find database docs\nQuery: what is milvus?", embedder.seenSingle[0])

	require.Len(t, vs.searchCalls, 1)
	assert.Equal(t, "kb", vs.searchCalls[0].collection)
	assert.Equal(t, 5, vs.searchCalls[0].topK)
}

func TestRetriever_EmbeddingFailure(t *testing.T) {
	embedder := &mockEmbedder{embedErr: errors.New("model not loaded")}
	r := NewRetriever(&mockVectorStore{}, embedder, &RetrieverConfig{TopK: 5, Collection: "kb"})

	_, err := r.Retrieve(context.Background(), "q", "task")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbedding)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestRetriever_SearchFailure(t *testing.T) {
	vs := &mockVectorStore{searchErr: errors.New("collection not loaded")}
	r := NewRetriever(vs, &mockEmbedder{}, &RetrieverConfig{TopK: 5, Collection: "kb"})

	_, err := r.Retrieve(context.Background(), "q", "task")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexSearch)
}

func TestRetriever_EmptyResults(t *testing.T) {
	vs := &mockVectorStore{searchResults: nil}
	r := NewRetriever(vs, &mockEmbedder{}, &RetrieverConfig{TopK: 5, Collection: "kb"})

	results, err := r.Retrieve(context.Background(), "q", "task")
	require.NoError(t, err)
	assert.Empty(t, results)
}
