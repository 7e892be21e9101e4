// Package model provides data models shared across the ragserve service.
package model

// SourceType 标识证据来源类别。
type SourceType string

const (
	// SourceTypeLocal 本地知识库检索结果。
	SourceTypeLocal SourceType = "local"
	// SourceTypeWeb 联网搜索合成结果。
	SourceTypeWeb SourceType = "web"
)

// SourceMetadata 引用来源的结构化元数据。
// SourceType 为必填判别字段；本地来源额外携带文件名、位置和分块编号。
type SourceMetadata struct {
	SourceType     SourceType `json:"source_type"`
	FileName       string     `json:"file_name,omitempty"`
	SourceLocation string     `json:"source_location,omitempty"`
	ChunkID        int        `json:"chunk_id,omitempty"`
	Score          float32    `json:"score,omitempty"`
}

// SourceDocument 一条可引用的证据片段。
// 在 sources 列表中的位置即引用编号：第 i 个条目对应引用标记 [i+1]。
type SourceDocument struct {
	PageContent string         `json:"page_content"`
	Metadata    SourceMetadata `json:"metadata"`
}

// QueryResult RAG 查询的最终结果。
type QueryResult struct {
	Response string           `json:"response"`
	Sources  []SourceDocument `json:"sources"`
}
