package biz

import (
	"context"
	"fmt"
	"sync"

	"github.com/kart-io/ragserve/internal/ragserve/store"
	"github.com/kart-io/ragserve/pkg/llm"
)

// mockVectorStore 可编程的向量存储桩。
// 索引器从协程池并发调用 Insert，记录字段由互斥锁保护。
type mockVectorStore struct {
	mu sync.Mutex

	searchResults []*store.SearchResult
	searchErr     error
	searchCalls   []searchCall

	insertedChunks []*store.Chunk
	insertErr      error

	hasFile    map[string]bool
	hasFileErr error

	statsCount int64
}

type searchCall struct {
	collection string
	topK       int
}

var _ store.VectorStore = (*mockVectorStore)(nil)

func (m *mockVectorStore) CreateCollection(ctx context.Context, config *store.CollectionConfig) error {
	return nil
}

func (m *mockVectorStore) Insert(ctx context.Context, collection string, chunks []*store.Chunk) ([]string, error) {
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	m.mu.Lock()
	m.insertedChunks = append(m.insertedChunks, chunks...)
	m.mu.Unlock()
	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = fmt.Sprintf("%d", i)
	}
	return ids, nil
}

func (m *mockVectorStore) Search(ctx context.Context, collection string, embedding []float32, topK int) ([]*store.SearchResult, error) {
	m.mu.Lock()
	m.searchCalls = append(m.searchCalls, searchCall{collection: collection, topK: topK})
	m.mu.Unlock()
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchResults, nil
}

func (m *mockVectorStore) HasFile(ctx context.Context, collection, fileName string) (bool, error) {
	if m.hasFileErr != nil {
		return false, m.hasFileErr
	}
	return m.hasFile[fileName], nil
}

func (m *mockVectorStore) GetStats(ctx context.Context, collection string) (int64, error) {
	return m.statsCount, nil
}

func (m *mockVectorStore) Close(ctx context.Context) error { return nil }

// mockEmbedder 记录收到的文本，返回固定向量。
// Embed 会被索引器并发调用，记录字段由互斥锁保护。
type mockEmbedder struct {
	mu         sync.Mutex
	embedErr   error
	seenTexts  []string
	seenSingle []string
}

var _ llm.EmbeddingProvider = (*mockEmbedder)(nil)

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	m.mu.Lock()
	m.seenTexts = append(m.seenTexts, texts...)
	m.mu.Unlock()
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (m *mockEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	m.mu.Lock()
	m.seenSingle = append(m.seenSingle, text)
	m.mu.Unlock()
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

// mockChat 记录收到的提示词，返回固定回答。
type mockChat struct {
	response    string
	generateErr error
	seenPrompts []string

	streamChunks []string
	streamErr    error
}

var _ llm.ChatProvider = (*mockChat)(nil)

func (m *mockChat) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	if m.generateErr != nil {
		return "", m.generateErr
	}
	return m.response, nil
}

func (m *mockChat) Generate(ctx context.Context, prompt, systemPrompt string) (*llm.GenerateResponse, error) {
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	m.seenPrompts = append(m.seenPrompts, prompt)
	return &llm.GenerateResponse{Content: m.response}, nil
}

func (m *mockChat) GenerateStream(ctx context.Context, prompt, systemPrompt string) (<-chan llm.StreamChunk, error) {
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	m.seenPrompts = append(m.seenPrompts, prompt)
	ch := make(chan llm.StreamChunk, len(m.streamChunks))
	for _, c := range m.streamChunks {
		ch <- llm.StreamChunk{Content: c}
	}
	close(ch)
	return ch, nil
}

func (m *mockChat) Name() string { return "mock-chat" }

// mockSearcher 可编程的联网搜索桩。
type mockSearcher struct {
	text        string
	err         error
	seenQueries []string
}

func (m *mockSearcher) Search(ctx context.Context, query string) (string, error) {
	m.seenQueries = append(m.seenQueries, query)
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

func (m *mockSearcher) Name() string { return "mock-searcher" }
