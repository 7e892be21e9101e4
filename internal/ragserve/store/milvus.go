package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/ragserve/pkg/component/milvus"
)

// MilvusStore 实现基于 Milvus 的向量存储。
type MilvusStore struct {
	client *milvus.Client
}

// NewMilvusStore 创建 Milvus 存储实例。
func NewMilvusStore(client *milvus.Client) *MilvusStore {
	return &MilvusStore{client: client}
}

// CreateCollection 创建 Milvus 集合。
func (s *MilvusStore) CreateCollection(ctx context.Context, config *CollectionConfig) error {
	schema := &milvus.CollectionSchema{
		Name:        config.Name,
		Description: config.Description,
		Dimension:   config.Dimension,
		MetaFields: []milvus.MetaField{
			{Name: "document_id", DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: "file_name", DataType: entity.FieldTypeVarChar, MaxLen: 255},
			{Name: "source_location", DataType: entity.FieldTypeVarChar, MaxLen: 512},
			{Name: "chunk_id", DataType: entity.FieldTypeInt64},
			{Name: "content", DataType: entity.FieldTypeVarChar, MaxLen: 65535},
		},
	}
	return s.client.CreateCollection(ctx, schema)
}

// Insert 批量插入文档块到 Milvus。
func (s *MilvusStore) Insert(ctx context.Context, collection string, chunks []*Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, len(chunks))
	metadata := map[string][]any{
		"document_id":     make([]any, len(chunks)),
		"file_name":       make([]any, len(chunks)),
		"source_location": make([]any, len(chunks)),
		"chunk_id":        make([]any, len(chunks)),
		"content":         make([]any, len(chunks)),
	}

	for i, chunk := range chunks {
		embeddings[i] = chunk.Embedding
		metadata["document_id"][i] = chunk.DocumentID
		metadata["file_name"][i] = chunk.FileName
		metadata["source_location"][i] = chunk.SourceLocation
		metadata["chunk_id"][i] = int64(chunk.ChunkID)
		metadata["content"][i] = chunk.Content
	}

	data := &milvus.InsertData{
		Embeddings: embeddings,
		Metadata:   metadata,
	}

	ids, err := s.client.Insert(ctx, collection, data)
	if err != nil {
		return nil, fmt.Errorf("failed to insert into milvus: %w", err)
	}

	stringIDs := make([]string, len(ids))
	for i, id := range ids {
		stringIDs[i] = fmt.Sprintf("%d", id)
	}

	return stringIDs, nil
}

// Search 执行向量相似度搜索。
func (s *MilvusStore) Search(ctx context.Context, collection string, embedding []float32, topK int) ([]*SearchResult, error) {
	outputFields := []string{"document_id", "file_name", "source_location", "chunk_id", "content"}
	results, err := s.client.Search(ctx, collection, embedding, topK, outputFields)
	if err != nil {
		return nil, fmt.Errorf("failed to search milvus: %w", err)
	}

	searchResults := make([]*SearchResult, len(results))
	for i, r := range results {
		sr := &SearchResult{Score: r.Score}
		if v, ok := r.Metadata["document_id"].(string); ok {
			sr.DocumentID = v
		}
		if v, ok := r.Metadata["file_name"].(string); ok {
			sr.FileName = v
		}
		if v, ok := r.Metadata["source_location"].(string); ok {
			sr.SourceLocation = v
		}
		if v, ok := r.Metadata["chunk_id"].(int64); ok {
			sr.ChunkID = int(v)
		}
		if v, ok := r.Metadata["content"].(string); ok {
			sr.Content = v
		}
		searchResults[i] = sr
	}

	return searchResults, nil
}

// HasFile 判断指定文件是否已被索引。
func (s *MilvusStore) HasFile(ctx context.Context, collection, fileName string) (bool, error) {
	// 防御过滤表达式注入，文件名中的引号需要转义
	escaped := strings.ReplaceAll(fileName, `"`, `\"`)
	expr := fmt.Sprintf(`file_name == "%s"`, escaped)

	count, err := s.client.CountWithFilter(ctx, collection, expr)
	if err != nil {
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}
	return count > 0, nil
}

// GetStats 获取集合统计信息。
func (s *MilvusStore) GetStats(ctx context.Context, collection string) (int64, error) {
	return s.client.GetCollectionStats(ctx, collection)
}

// Close 关闭 Milvus 连接。
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// 确保 MilvusStore 实现了 VectorStore 接口。
var _ VectorStore = (*MilvusStore)(nil)
