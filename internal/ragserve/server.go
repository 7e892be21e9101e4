package ragserve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/kart-io/logger"
	"github.com/kart-io/version"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/ragserve/internal/ragserve/biz"
	"github.com/kart-io/ragserve/internal/ragserve/handler"
	"github.com/kart-io/ragserve/internal/ragserve/router"
	"github.com/kart-io/ragserve/internal/ragserve/store"
	"github.com/kart-io/ragserve/pkg/component/milvus"
	"github.com/kart-io/ragserve/pkg/llm"
	"github.com/kart-io/ragserve/pkg/websearch"
	"github.com/kart-io/ragserve/pkg/websearch/bailian"

	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/ragserve/pkg/llm/ollama"
	_ "github.com/kart-io/ragserve/pkg/llm/openai"
)

// shutdownTimeout 优雅停机的等待时间。
const shutdownTimeout = 10 * time.Second

// Server represents the RAG server.
type Server struct {
	httpServer   *http.Server
	service      biz.Service
	milvusClient *milvus.Client
	redisClient  *goredis.Client
}

// NewServer initializes and returns a new Server instance.
func NewServer(opts *Options) (*Server, error) {
	// 1. 初始化日志
	opts.Log.AddInitialField("service.name", Name)
	opts.Log.AddInitialField("service.version", version.Get().GitVersion)
	if err := opts.Log.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting RAG service...")

	// 2. 初始化 Milvus 客户端
	milvusClient, err := milvus.New(opts.Milvus)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize milvus: %w", err)
	}
	logger.Info("Milvus client initialized")

	// 3. 初始化 Store 层
	vectorStore := store.NewMilvusStore(milvusClient)
	logger.Info("Vector store initialized")

	// 4. 初始化 Redis 客户端（用于缓存）
	redisClient, queryCache := buildCache(opts)

	// 5. 初始化 LLM 供应商
	embedProvider, err := llm.NewEmbeddingProvider(opts.Embedding.Provider, opts.Embedding.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	logger.Infow("Embedding provider initialized",
		"provider", opts.Embedding.Provider,
		"model", opts.Embedding.Model,
	)

	chatProvider, err := llm.NewChatProvider(opts.Chat.Provider, opts.Chat.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("Chat provider initialized",
		"provider", opts.Chat.Provider,
		"model", opts.Chat.Model,
	)

	// 6. 初始化联网搜索客户端（可选）
	searcher, err := buildSearcher(opts)
	if err != nil {
		return nil, err
	}

	// 7. 初始化 Biz 层
	ragService := biz.NewRAGService(&biz.RAGServiceConfig{
		Retriever: biz.NewRetriever(vectorStore, embedProvider, &biz.RetrieverConfig{
			TopK:       opts.RAG.TopK,
			Collection: opts.RAG.Collection,
		}),
		Generator: biz.NewGenerator(chatProvider, &biz.GeneratorConfig{
			SystemPrompt: opts.RAG.SystemPrompt,
		}),
		Indexer: biz.NewIndexer(vectorStore, embedProvider, &biz.IndexerConfig{
			ChunkSize:    opts.RAG.ChunkSize,
			ChunkOverlap: opts.RAG.ChunkOverlap,
			Collection:   opts.RAG.Collection,
			EmbeddingDim: opts.RAG.EmbeddingDim,
			Workers:      opts.RAG.IndexWorkers,
		}),
		Cache:           queryCache,
		Searcher:        searcher,
		WebEnabled:      opts.WebSearch.Enabled,
		Store:           vectorStore,
		Collection:      opts.RAG.Collection,
		TaskDescription: opts.RAG.TaskDescription,
	})
	logger.Info("RAG service initialized")

	// 8. 初始化 Handler 与路由
	ragHandler := handler.NewRAGHandler(ragService)
	engine := router.New(ragHandler)

	httpServer := &http.Server{
		Addr:         opts.HTTP.Addr,
		Handler:      engine,
		ReadTimeout:  opts.HTTP.ReadTimeout,
		WriteTimeout: opts.HTTP.WriteTimeout,
		IdleTimeout:  opts.HTTP.IdleTimeout,
	}

	return &Server{
		httpServer:   httpServer,
		service:      ragService,
		milvusClient: milvusClient,
		redisClient:  redisClient,
	}, nil
}

// buildCache 构建查询缓存。Redis 不可达时降级为关闭缓存，不阻止启动。
func buildCache(opts *Options) (*goredis.Client, *biz.QueryCache) {
	if !opts.Cache.Enabled {
		logger.Info("Cache is disabled")
		return nil, biz.NewQueryCache(nil, nil)
	}

	redisOpts := opts.Cache.Redis
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:         redisOpts.Addr(),
		Password:     redisOpts.Password,
		DB:           redisOpts.Database,
		MaxRetries:   redisOpts.MaxRetries,
		PoolSize:     redisOpts.PoolSize,
		MinIdleConns: redisOpts.MinIdleConns,
		DialTimeout:  redisOpts.DialTimeout,
		ReadTimeout:  redisOpts.ReadTimeout,
		WriteTimeout: redisOpts.WriteTimeout,
		PoolTimeout:  redisOpts.PoolTimeout,
	})

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warnw("failed to connect to redis, cache will be disabled", "error", err.Error())
		_ = redisClient.Close()
		return nil, biz.NewQueryCache(nil, nil)
	}

	queryCache := biz.NewQueryCache(redisClient, &biz.QueryCacheConfig{
		Enabled:   true,
		TTL:       opts.Cache.TTL,
		KeyPrefix: opts.Cache.KeyPrefix,
	})
	logger.Infow("Redis cache initialized",
		"addr", redisOpts.Addr(),
		"ttl", opts.Cache.TTL,
	)
	return redisClient, queryCache
}

// buildSearcher 构建联网搜索客户端，未启用时返回 nil。
func buildSearcher(opts *Options) (websearch.Searcher, error) {
	if !opts.WebSearch.Enabled {
		logger.Info("Web search is disabled")
		return nil, nil
	}

	searcher, err := bailian.New(&bailian.Config{
		Endpoint: opts.WebSearch.Endpoint,
		APIKey:   opts.WebSearch.APIKey,
		Count:    opts.WebSearch.Count,
		Timeout:  opts.WebSearch.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize web search client: %w", err)
	}
	logger.Infow("Web search client initialized",
		"client", searcher.Name(),
		"endpoint", opts.WebSearch.Endpoint,
	)
	return searcher, nil
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP server shutdown error: %v", err)
	}

	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
	if s.milvusClient != nil {
		_ = s.milvusClient.Close(shutdownCtx)
	}

	logger.Info("RAG service stopped")
	return nil
}
