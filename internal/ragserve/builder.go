package ragserve

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/kart-io/logger"
	"github.com/kart-io/version"

	"github.com/kart-io/ragserve/internal/ragserve/biz"
	"github.com/kart-io/ragserve/internal/ragserve/store"
	"github.com/kart-io/ragserve/pkg/component/milvus"
	"github.com/kart-io/ragserve/pkg/llm"

	_ "github.com/kart-io/ragserve/pkg/llm/ollama"
	_ "github.com/kart-io/ragserve/pkg/llm/openai"
)

// RunIndex builds the knowledge base from a document directory and exits.
// An empty dir falls back to the configured data directory.
func RunIndex(opts *Options, dir string) error {
	if dir == "" {
		dir = opts.RAG.DataDir
	}

	opts.Log.AddInitialField("service.name", Name+"-kb-builder")
	opts.Log.AddInitialField("service.version", version.Get().GitVersion)
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	milvusClient, err := milvus.New(opts.Milvus)
	if err != nil {
		return fmt.Errorf("failed to initialize milvus: %w", err)
	}
	defer func() { _ = milvusClient.Close(context.Background()) }()

	vectorStore := store.NewMilvusStore(milvusClient)

	embedProvider, err := llm.NewEmbeddingProvider(opts.Embedding.Provider, opts.Embedding.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	indexer := biz.NewIndexer(vectorStore, embedProvider, &biz.IndexerConfig{
		ChunkSize:    opts.RAG.ChunkSize,
		ChunkOverlap: opts.RAG.ChunkOverlap,
		Collection:   opts.RAG.Collection,
		EmbeddingDim: opts.RAG.EmbeddingDim,
		Workers:      opts.RAG.IndexWorkers,
	})

	if err := indexer.IndexDirectory(ctx, dir); err != nil {
		return err
	}

	count, err := vectorStore.GetStats(ctx, opts.RAG.Collection)
	if err != nil {
		logger.Warnw("failed to read collection stats", "error", err.Error())
		return nil
	}
	logger.Infow("Knowledge base build completed",
		"collection", opts.RAG.Collection,
		"rows", count,
	)
	return nil
}
