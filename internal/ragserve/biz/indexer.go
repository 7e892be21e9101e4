package biz

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"

	"github.com/kart-io/ragserve/internal/pkg/textutil"
	"github.com/kart-io/ragserve/internal/ragserve/metrics"
	"github.com/kart-io/ragserve/internal/ragserve/store"
	"github.com/kart-io/ragserve/pkg/llm"
)

// IndexerConfig 索引器配置。
type IndexerConfig struct {
	// ChunkSize 文本块大小（Unicode 字符数）。
	ChunkSize int
	// ChunkOverlap 块重叠大小。
	ChunkOverlap int
	// Collection 集合名称。
	Collection string
	// EmbeddingDim 嵌入向量维度。
	EmbeddingDim int
	// Workers 并发索引的工作协程数。
	Workers int
}

// 可索引的文件扩展名。PDF 解析不在本服务范围内，入库前先转为文本。
var indexableExts = []string{".md", ".mdx", ".txt"}

// Indexer 负责文档索引。
type Indexer struct {
	store         store.VectorStore
	embedProvider llm.EmbeddingProvider
	config        *IndexerConfig
	metrics       *metrics.Metrics
}

// NewIndexer 创建索引器实例。
func NewIndexer(vectorStore store.VectorStore, embedProvider llm.EmbeddingProvider, config *IndexerConfig) *Indexer {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	return &Indexer{
		store:         vectorStore,
		embedProvider: embedProvider,
		config:        config,
		metrics:       metrics.Get(),
	}
}

// IndexDirectory 索引目录中的所有文档。
// 已索引过的文件（按文件名判断）会被跳过，实现增量更新。
func (i *Indexer) IndexDirectory(ctx context.Context, dir string) error {
	logger.Infof("Indexing documents from: %s", dir)

	collectionConfig := &store.CollectionConfig{
		Name:        i.config.Collection,
		Description: "ragserve knowledge base collection",
		Dimension:   i.config.EmbeddingDim,
	}
	if err := i.store.CreateCollection(ctx, collectionConfig); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	logger.Info("Collection ready")

	files, err := findFiles(dir, indexableExts)
	if err != nil {
		return fmt.Errorf("failed to find files: %w", err)
	}
	logger.Infof("Found %d candidate files", len(files))

	// 增量更新：跳过已索引的文件
	var pending []string
	for _, file := range files {
		exists, err := i.store.HasFile(ctx, i.config.Collection, filepath.Base(file))
		if err != nil {
			logger.Warnw("failed to check indexed file, will re-index", "file", file, "error", err.Error())
		}
		if exists {
			logger.Debugw("skipping already indexed file", "file", file)
			continue
		}
		pending = append(pending, file)
	}

	if len(pending) == 0 {
		logger.Info("Knowledge base is up to date, nothing to index")
		return nil
	}
	logger.Infof("Indexing %d new files with %d workers", len(pending), i.config.Workers)

	pool, err := ants.NewPool(i.config.Workers)
	if err != nil {
		return fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		wg          sync.WaitGroup
		indexedDocs uint64
		failedDocs  uint64
	)
	for _, file := range pending {
		file := file
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := i.indexFile(ctx, file); err != nil {
				atomic.AddUint64(&failedDocs, 1)
				logger.Warnw("failed to index file", "file", file, "error", err.Error())
				return
			}
			atomic.AddUint64(&indexedDocs, 1)
		})
		if submitErr != nil {
			wg.Done()
			atomic.AddUint64(&failedDocs, 1)
			logger.Warnw("failed to submit index task", "file", file, "error", submitErr.Error())
		}
	}
	wg.Wait()

	logger.Infow("Indexing completed",
		"indexed", atomic.LoadUint64(&indexedDocs),
		"failed", atomic.LoadUint64(&failedDocs),
	)

	if failed := atomic.LoadUint64(&failedDocs); failed > 0 {
		return fmt.Errorf("failed to index %d of %d files", failed, len(pending))
	}
	return nil
}

// indexFile 读取、分块、嵌入并写入单个文件。
func (i *Indexer) indexFile(ctx context.Context, file string) error {
	content, err := os.ReadFile(file)
	if err != nil {
		i.metrics.RecordIndexing(0, 0, err)
		return fmt.Errorf("failed to read file: %w", err)
	}

	docID := textutil.HashString(file)
	fileName := filepath.Base(file)

	pieces := textutil.SplitIntoChunks(string(content), i.config.ChunkSize, i.config.ChunkOverlap)

	var chunks []*store.Chunk
	for idx, piece := range pieces {
		if len(strings.TrimSpace(piece)) < 20 {
			continue
		}
		chunks = append(chunks, &store.Chunk{
			DocumentID:     docID,
			FileName:       fileName,
			SourceLocation: file,
			ChunkID:        idx,
			Content:        textutil.TruncateString(piece, 65000),
		})
	}

	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for idx, chunk := range chunks {
		texts[idx] = chunk.Content
	}

	embeddings, err := i.embedProvider.Embed(ctx, texts)
	if err != nil {
		i.metrics.RecordIndexing(0, 0, err)
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		err := fmt.Errorf("embedding count mismatch: got %d, want %d", len(embeddings), len(chunks))
		i.metrics.RecordIndexing(0, 0, err)
		return err
	}

	for idx, chunk := range chunks {
		chunk.Embedding = embeddings[idx]
	}

	if _, err := i.store.Insert(ctx, i.config.Collection, chunks); err != nil {
		i.metrics.RecordIndexing(0, 0, err)
		return fmt.Errorf("failed to insert chunks: %w", err)
	}

	i.metrics.RecordIndexing(1, len(chunks), nil)
	return nil
}

// findFiles 递归查找目录下指定扩展名的文件。
func findFiles(dir string, exts []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, e := range exts {
			if ext == e {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	return files, err
}
