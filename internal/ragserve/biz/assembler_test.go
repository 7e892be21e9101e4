package biz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/ragserve/internal/model"
	"github.com/kart-io/ragserve/internal/ragserve/store"
)

func localDoc(content, file string, chunkID int, score float32) *store.SearchResult {
	return &store.SearchResult{
		FileName:       file,
		SourceLocation: "/data/" + file,
		ChunkID:        chunkID,
		Content:        content,
		Score:          score,
	}
}

func TestAssembleContext_LocalOnly(t *testing.T) {
	result := &RetrievalResult{
		LocalDocuments: []*store.SearchResult{
			localDoc("first passage", "a.md", 0, 0.95),
			localDoc("second passage", "b.md", 3, 0.80),
		},
	}

	assembled := AssembleContext(result)

	assert.True(t, strings.HasPrefix(assembled.ContextText, "[Local Knowledge]\n"))
	assert.Contains(t, assembled.ContextText, "first passage")
	assert.Contains(t, assembled.ContextText, "second passage")
	assert.NotContains(t, assembled.ContextText, "[Web Search]")

	require.Len(t, assembled.Sources, 2)
	assert.Equal(t, "first passage", assembled.Sources[0].PageContent)
	assert.Equal(t, "second passage", assembled.Sources[1].PageContent)
	assert.Equal(t, model.SourceTypeLocal, assembled.Sources[0].Metadata.SourceType)
	assert.Equal(t, "a.md", assembled.Sources[0].Metadata.FileName)
	assert.Equal(t, 3, assembled.Sources[1].Metadata.ChunkID)
}

func TestAssembleContext_WebOnly(t *testing.T) {
	result := &RetrievalResult{
		WebText:  "web answer text",
		WebFound: true,
	}

	assembled := AssembleContext(result)

	assert.True(t, strings.HasPrefix(assembled.ContextText, "[Web Search]\n"))
	assert.NotContains(t, assembled.ContextText, "[Local Knowledge]")
	assert.NotContains(t, assembled.ContextText, "\n\n---\n\n")

	require.Len(t, assembled.Sources, 1)
	web := assembled.Sources[0]
	assert.Equal(t, model.SourceTypeWeb, web.Metadata.SourceType)
	assert.Equal(t, "web search", web.Metadata.SourceLocation)
	assert.Equal(t, "web answer text", web.PageContent)
}

func TestAssembleContext_LocalAndWeb(t *testing.T) {
	result := &RetrievalResult{
		LocalDocuments: []*store.SearchResult{
			localDoc("local passage", "doc.md", 0, 0.9),
		},
		WebText:  "from the web",
		WebFound: true,
	}

	assembled := AssembleContext(result)

	// 本地段在前，联网段在后，中间用分隔符
	parts := strings.Split(assembled.ContextText, "\n\n---\n\n")
	require.Len(t, parts, 2)
	assert.True(t, strings.HasPrefix(parts[0], "[Local Knowledge]\n"))
	assert.True(t, strings.HasPrefix(parts[1], "[Web Search]\n"))

	// 联网来源恰好一条且排在最后
	require.Len(t, assembled.Sources, 2)
	assert.Equal(t, model.SourceTypeLocal, assembled.Sources[0].Metadata.SourceType)
	assert.Equal(t, model.SourceTypeWeb, assembled.Sources[1].Metadata.SourceType)
}

func TestAssembleContext_Empty(t *testing.T) {
	tests := []struct {
		name   string
		result *RetrievalResult
	}{
		{name: "nothing found", result: &RetrievalResult{}},
		{name: "web flagged but empty text", result: &RetrievalResult{WebFound: true, WebText: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assembled := AssembleContext(tt.result)
			assert.Equal(t, "No relevant information was found in the knowledge base or web search.", assembled.ContextText)
			assert.NotNil(t, assembled.Sources)
			assert.Empty(t, assembled.Sources)
		})
	}
}

func TestAssembleContext_WebContentTruncated(t *testing.T) {
	long := strings.Repeat("x", 1200)
	result := &RetrievalResult{
		WebText:  long,
		WebFound: true,
	}

	assembled := AssembleContext(result)

	// 上下文保留全文，来源内容截断到 500 字符
	assert.Contains(t, assembled.ContextText, long)
	require.Len(t, assembled.Sources, 1)
	assert.Len(t, []rune(assembled.Sources[0].PageContent), 500)
}

func TestAssembleContext_SourceOrderMatchesContext(t *testing.T) {
	result := &RetrievalResult{
		LocalDocuments: []*store.SearchResult{
			localDoc("alpha", "1.md", 0, 0.99),
			localDoc("beta", "2.md", 0, 0.88),
			localDoc("gamma", "3.md", 0, 0.77),
		},
	}

	assembled := AssembleContext(result)

	require.Len(t, assembled.Sources, 3)
	// 来源顺序与上下文中的出现顺序一致，引用编号为下标加一
	prev := -1
	for _, src := range assembled.Sources {
		idx := strings.Index(assembled.ContextText, src.PageContent)
		require.GreaterOrEqual(t, idx, 0)
		assert.Greater(t, idx, prev)
		prev = idx
	}
}
