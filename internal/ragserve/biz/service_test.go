package biz

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/ragserve/internal/model"
	"github.com/kart-io/ragserve/internal/ragserve/store"
	"github.com/kart-io/ragserve/pkg/websearch"
)

type serviceFixture struct {
	embedder *mockEmbedder
	chat     *mockChat
	vs       *mockVectorStore
	searcher *mockSearcher
	svc      *RAGService
}

func newServiceFixture(t *testing.T, webEnabled bool) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		embedder: &mockEmbedder{},
		chat:     &mockChat{response: "the answer"},
		vs: &mockVectorStore{
			searchResults: []*store.SearchResult{
				{FileName: "guide.md", SourceLocation: "/kb/guide.md", ChunkID: 2, Content: "local evidence", Score: 0.92},
			},
		},
		searcher: &mockSearcher{text: "web evidence"},
	}
	f.svc = NewRAGService(&RAGServiceConfig{
		Retriever:  NewRetriever(f.vs, f.embedder, &RetrieverConfig{TopK: 5, Collection: "kb"}),
		Generator:  NewGenerator(f.chat, &GeneratorConfig{SystemPrompt: testPrompt}),
		Cache:      NewQueryCache(nil, nil),
		Searcher:   f.searcher,
		WebEnabled: webEnabled,
		Store:      f.vs,
		Collection: "kb",
	})
	return f
}

func TestRAGService_Query(t *testing.T) {
	f := newServiceFixture(t, true)

	result, err := f.svc.Query(context.Background(), &QueryInput{Query: "how do I configure it?"})
	require.NoError(t, err)
	assert.Equal(t, "the answer", result.Response)

	// 本地来源在前，联网来源恰好一条排在最后
	require.Len(t, result.Sources, 2)
	assert.Equal(t, model.SourceTypeLocal, result.Sources[0].Metadata.SourceType)
	assert.Equal(t, "guide.md", result.Sources[0].Metadata.FileName)
	assert.Equal(t, model.SourceTypeWeb, result.Sources[1].Metadata.SourceType)
	assert.Equal(t, "web search", result.Sources[1].Metadata.SourceLocation)

	// 生成提示词同时包含两段带标签的上下文
	require.Len(t, f.chat.seenPrompts, 1)
	assert.Contains(t, f.chat.seenPrompts[0], "[Local Knowledge]")
	assert.Contains(t, f.chat.seenPrompts[0], "[Web Search]")
}

func TestRAGService_DefaultTaskDescription(t *testing.T) {
	f := newServiceFixture(t, false)

	_, err := f.svc.Query(context.Background(), &QueryInput{Query: "what is a chunk?"})
	require.NoError(t, err)

	require.Len(t, f.embedder.seenSingle, 1)
	assert.Equal(t,
		"Instruct: "+DefaultTaskDescription+"\nQuery: what is a chunk?",
		f.embedder.seenSingle[0],
	)
}

func TestRAGService_ConfiguredDefaultTaskDescription(t *testing.T) {
	embedder := &mockEmbedder{}
	vs := &mockVectorStore{}
	svc := NewRAGService(&RAGServiceConfig{
		Retriever:       NewRetriever(vs, embedder, &RetrieverConfig{TopK: 5, Collection: "kb"}),
		Generator:       NewGenerator(&mockChat{response: "ok"}, &GeneratorConfig{SystemPrompt: testPrompt}),
		Cache:           NewQueryCache(nil, nil),
		Store:           vs,
		Collection:      "kb",
		TaskDescription: "Retrieve deployment runbooks",
	})

	_, err := svc.Query(context.Background(), &QueryInput{Query: "how to roll back?"})
	require.NoError(t, err)

	require.Len(t, embedder.seenSingle, 1)
	assert.Equal(t,
		"Instruct: Retrieve deployment runbooks\nQuery: how to roll back?",
		embedder.seenSingle[0],
	)

	// 请求携带的任务描述优先于服务配置的默认值
	_, err = svc.Query(context.Background(), &QueryInput{
		Query:           "how to roll back?",
		TaskDescription: "Retrieve API reference passages",
	})
	require.NoError(t, err)
	require.Len(t, embedder.seenSingle, 2)
	assert.Equal(t,
		"Instruct: Retrieve API reference passages\nQuery: how to roll back?",
		embedder.seenSingle[1],
	)
}

func TestRAGService_CustomTaskDescription(t *testing.T) {
	f := newServiceFixture(t, false)

	_, err := f.svc.Query(context.Background(), &QueryInput{
		Query:           "what is a chunk?",
		TaskDescription: "Retrieve API reference passages",
	})
	require.NoError(t, err)

	require.Len(t, f.embedder.seenSingle, 1)
	assert.True(t, strings.HasPrefix(f.embedder.seenSingle[0], "Instruct: Retrieve API reference passages\n"))
}

func TestRAGService_WebSearchUsesRawQuery(t *testing.T) {
	f := newServiceFixture(t, true)

	_, err := f.svc.Query(context.Background(), &QueryInput{Query: "how to deploy?"})
	require.NoError(t, err)

	// 联网搜索只收到原始问题，不带指令前缀
	require.Len(t, f.searcher.seenQueries, 1)
	assert.Equal(t, "how to deploy?", f.searcher.seenQueries[0])
}

func TestRAGService_WebSearchFailureAbsorbed(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "transport error", err: errors.New("connection refused")},
		{name: "no results", err: websearch.ErrNoResult},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t, true)
			f.searcher.err = tt.err

			result, err := f.svc.Query(context.Background(), &QueryInput{Query: "q"})
			require.NoError(t, err)

			// 请求成功，只有本地来源
			require.Len(t, result.Sources, 1)
			assert.Equal(t, model.SourceTypeLocal, result.Sources[0].Metadata.SourceType)
		})
	}
}

func TestRAGService_WebSearchDisabled(t *testing.T) {
	f := newServiceFixture(t, false)

	result, err := f.svc.Query(context.Background(), &QueryInput{Query: "q"})
	require.NoError(t, err)

	assert.Empty(t, f.searcher.seenQueries)
	require.Len(t, result.Sources, 1)
}

func TestRAGService_FatalFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*serviceFixture)
		wantErr error
	}{
		{
			name:    "embedding failure",
			mutate:  func(f *serviceFixture) { f.embedder.embedErr = errors.New("embed down") },
			wantErr: ErrEmbedding,
		},
		{
			name:    "index search failure",
			mutate:  func(f *serviceFixture) { f.vs.searchErr = errors.New("milvus down") },
			wantErr: ErrIndexSearch,
		},
		{
			name:    "generation failure",
			mutate:  func(f *serviceFixture) { f.chat.generateErr = errors.New("llm down") },
			wantErr: ErrGeneration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t, true)
			tt.mutate(f)

			_, err := f.svc.Query(context.Background(), &QueryInput{Query: "q"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRAGService_EmptyRetrieval(t *testing.T) {
	f := newServiceFixture(t, false)
	f.vs.searchResults = nil

	result, err := f.svc.Query(context.Background(), &QueryInput{Query: "unknown topic"})
	require.NoError(t, err)

	assert.NotNil(t, result.Sources)
	assert.Empty(t, result.Sources)

	// 生成模型收到固定的空结果提示，而不是空字符串
	require.Len(t, f.chat.seenPrompts, 1)
	assert.Contains(t, f.chat.seenPrompts[0], "No relevant information was found in the knowledge base or web search.")
}

func TestRAGService_QueryStream(t *testing.T) {
	f := newServiceFixture(t, true)
	f.chat.streamChunks = []string{"the ", "answer"}

	stream, err := f.svc.QueryStream(context.Background(), &QueryInput{Query: "q"})
	require.NoError(t, err)

	// 来源在任何回答片段之前就已可用
	require.Len(t, stream.Sources, 2)
	assert.Equal(t, model.SourceTypeWeb, stream.Sources[1].Metadata.SourceType)

	var assembled string
	for chunk := range stream.Chunks {
		require.NoError(t, chunk.Err)
		assembled += chunk.Content
	}
	assert.Equal(t, "the answer", assembled)
}

func TestRAGService_QueryStreamFatalFailure(t *testing.T) {
	f := newServiceFixture(t, false)
	f.embedder.embedErr = errors.New("embed down")

	_, err := f.svc.QueryStream(context.Background(), &QueryInput{Query: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbedding)
}
