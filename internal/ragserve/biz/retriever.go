package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/ragserve/internal/ragserve/metrics"
	"github.com/kart-io/ragserve/internal/ragserve/store"
	"github.com/kart-io/ragserve/pkg/llm"
)

// RetrieverConfig 检索器配置。
type RetrieverConfig struct {
	// TopK 返回的结果数量。
	TopK int
	// Collection 集合名称。
	Collection string
}

// Retriever 负责本地知识库检索。
type Retriever struct {
	store         store.VectorStore
	embedProvider llm.EmbeddingProvider
	config        *RetrieverConfig
}

// NewRetriever 创建检索器实例。
func NewRetriever(vectorStore store.VectorStore, embedProvider llm.EmbeddingProvider, config *RetrieverConfig) *Retriever {
	return &Retriever{
		store:         vectorStore,
		embedProvider: embedProvider,
		config:        config,
	}
}

// Retrieve 对指令限定后的查询做嵌入并执行 top-K 相似度检索。
// 嵌入使用 "Instruct: {task}\nQuery: {query}" 框架；
// rawQuery 本身不参与嵌入，仅由调用方转交给联网搜索。
func (r *Retriever) Retrieve(ctx context.Context, rawQuery, taskDescription string) ([]*store.SearchResult, error) {
	start := time.Now()
	embedText := llm.DetailedInstruct(taskDescription, rawQuery)

	embedding, err := r.embedProvider.EmbedSingle(ctx, embedText)
	if err != nil {
		metrics.Get().RecordRetrieval(time.Since(start), err)
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	results, err := r.store.Search(ctx, r.config.Collection, embedding, r.config.TopK)
	metrics.Get().RecordRetrieval(time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexSearch, err)
	}

	logger.Debugw("local retrieval completed",
		"query", rawQuery,
		"top_k", r.config.TopK,
		"results", len(results),
	)

	return results, nil
}
