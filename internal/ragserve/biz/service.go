package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	"golang.org/x/sync/errgroup"

	"github.com/kart-io/ragserve/internal/model"
	"github.com/kart-io/ragserve/internal/ragserve/metrics"
	"github.com/kart-io/ragserve/internal/ragserve/store"
	"github.com/kart-io/ragserve/pkg/llm"
	"github.com/kart-io/ragserve/pkg/websearch"
)

// DefaultTaskDescription 默认的检索任务描述，用于嵌入指令框架。
const DefaultTaskDescription = "Given a search query, retrieve relevant passages that answer the query"

// QueryInput 问答请求输入。
type QueryInput struct {
	// Query 用户的原始问题。
	Query string
	// TaskDescription 检索任务描述，为空时使用服务配置的默认值。
	TaskDescription string
}

// StreamResult 流式问答结果。Sources 在生成开始前即可用，
// Chunks 按到达顺序产出回答片段。
type StreamResult struct {
	Sources []model.SourceDocument
	Chunks  <-chan llm.StreamChunk
}

// Service RAG 问答服务接口。
type Service interface {
	// Query 执行一次完整的问答流程。
	Query(ctx context.Context, input *QueryInput) (*model.QueryResult, error)
	// QueryStream 流式问答，回答片段通过通道逐步返回。
	QueryStream(ctx context.Context, input *QueryInput) (*StreamResult, error)
	// IndexDirectory 索引目录中的文档。
	IndexDirectory(ctx context.Context, dir string) error
	// GetStats 返回服务运行统计。
	GetStats(ctx context.Context) (map[string]any, error)
}

// RAGService Service 接口的默认实现。
type RAGService struct {
	retriever   *Retriever
	generator   *Generator
	indexer     *Indexer
	cache       *QueryCache
	searcher    websearch.Searcher
	webEnabled  bool
	store       store.VectorStore
	collection  string
	defaultTask string
	metrics     *metrics.Metrics
}

var _ Service = (*RAGService)(nil)

// RAGServiceConfig 服务装配参数。
type RAGServiceConfig struct {
	Retriever  *Retriever
	Generator  *Generator
	Indexer    *Indexer
	Cache      *QueryCache
	Searcher   websearch.Searcher
	WebEnabled bool
	Store      store.VectorStore
	Collection string
	// TaskDescription 请求未携带 task_description 时使用的检索任务描述。
	TaskDescription string
}

// NewRAGService 创建 RAG 服务实例。
func NewRAGService(config *RAGServiceConfig) *RAGService {
	defaultTask := config.TaskDescription
	if defaultTask == "" {
		defaultTask = DefaultTaskDescription
	}
	return &RAGService{
		retriever:   config.Retriever,
		generator:   config.Generator,
		indexer:     config.Indexer,
		cache:       config.Cache,
		searcher:    config.Searcher,
		webEnabled:  config.WebEnabled && config.Searcher != nil,
		store:       config.Store,
		collection:  config.Collection,
		defaultTask: defaultTask,
		metrics:     metrics.Get(),
	}
}

// Query 执行问答流程：缓存查找、并发检索（本地向量检索 + 联网搜索）、
// 上下文组装、回答生成、缓存写入。
// 嵌入、检索、生成的失败会终止请求；联网搜索失败只降级，不影响回答。
func (s *RAGService) Query(ctx context.Context, input *QueryInput) (*model.QueryResult, error) {
	start := time.Now()
	taskDescription := input.TaskDescription
	if taskDescription == "" {
		taskDescription = s.defaultTask
	}

	if cached, err := s.cache.Get(ctx, taskDescription, input.Query); err == nil && cached != nil {
		s.metrics.RecordQuery(true, nil)
		logger.Debugw("query served from cache", "query", input.Query)
		return cached, nil
	}

	retrieval, err := s.retrieve(ctx, input.Query, taskDescription)
	if err != nil {
		s.metrics.RecordQuery(false, err)
		return nil, err
	}

	assembled := AssembleContext(retrieval)

	generated, err := s.generator.Generate(ctx, input.Query, assembled.ContextText)
	if err != nil {
		s.metrics.RecordQuery(false, err)
		return nil, err
	}

	result := &model.QueryResult{
		Response: generated.Content,
		Sources:  assembled.Sources,
	}

	if err := s.cache.Set(ctx, taskDescription, input.Query, result); err != nil {
		logger.Warnw("failed to cache query result", "error", err.Error())
	}

	s.metrics.RecordQuery(false, nil)
	logger.Infow("query completed",
		"duration", time.Since(start).String(),
		"local_sources", len(retrieval.LocalDocuments),
		"web_found", retrieval.WebFound,
	)
	return result, nil
}

// QueryStream 流式问答。检索与上下文组装与 Query 相同，
// 生成阶段改为逐片段返回。流式结果不写缓存。
func (s *RAGService) QueryStream(ctx context.Context, input *QueryInput) (*StreamResult, error) {
	taskDescription := input.TaskDescription
	if taskDescription == "" {
		taskDescription = s.defaultTask
	}

	retrieval, err := s.retrieve(ctx, input.Query, taskDescription)
	if err != nil {
		s.metrics.RecordQuery(false, err)
		return nil, err
	}

	assembled := AssembleContext(retrieval)

	chunks, err := s.generator.GenerateStream(ctx, input.Query, assembled.ContextText)
	if err != nil {
		s.metrics.RecordQuery(false, err)
		return nil, err
	}

	s.metrics.RecordQuery(false, nil)
	return &StreamResult{
		Sources: assembled.Sources,
		Chunks:  chunks,
	}, nil
}

// retrieve 并发执行本地向量检索与联网搜索。
// 本地检索失败是致命错误；联网搜索的任何失败都被吸收，
// 仅记录日志与指标，检索结果中 WebFound 置为 false。
func (s *RAGService) retrieve(ctx context.Context, rawQuery, taskDescription string) (*RetrievalResult, error) {
	result := &RetrievalResult{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		docs, err := s.retriever.Retrieve(gctx, rawQuery, taskDescription)
		if err != nil {
			return err
		}
		result.LocalDocuments = docs
		return nil
	})

	if s.webEnabled {
		g.Go(func() error {
			start := time.Now()
			// 联网搜索使用原始问题，不加指令前缀
			text, err := s.searcher.Search(gctx, rawQuery)
			if err != nil {
				if errors.Is(err, websearch.ErrNoResult) {
					s.metrics.RecordWebSearch(true, nil)
					logger.Debugw("web search returned no results", "query", rawQuery)
					return nil
				}
				s.metrics.RecordWebSearch(false, err)
				logger.Warnw("web search failed, continuing without web context",
					"query", rawQuery,
					"error", err.Error(),
					"duration", time.Since(start).String(),
				)
				return nil
			}
			s.metrics.RecordWebSearch(false, nil)
			result.WebText = text
			result.WebFound = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// IndexDirectory 索引目录中的文档。
func (s *RAGService) IndexDirectory(ctx context.Context, dir string) error {
	if s.indexer == nil {
		return fmt.Errorf("indexing is not configured")
	}
	return s.indexer.IndexDirectory(ctx, dir)
}

// GetStats 返回服务运行统计，包括向量库与缓存状态。
func (s *RAGService) GetStats(ctx context.Context) (map[string]any, error) {
	stats := s.metrics.Stats()

	if storeStats, err := s.store.GetStats(ctx, s.collection); err != nil {
		logger.Warnw("failed to get vector store stats", "error", err.Error())
	} else {
		stats["vector_store"] = storeStats
	}

	if cacheStats, err := s.cache.GetStats(ctx); err != nil {
		logger.Warnw("failed to get cache stats", "error", err.Error())
	} else {
		stats["cache"] = cacheStats
	}
	stats["web_search_enabled"] = s.webEnabled
	return stats, nil
}
