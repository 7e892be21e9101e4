package biz

import (
	"strings"

	"github.com/kart-io/ragserve/internal/model"
	"github.com/kart-io/ragserve/internal/pkg/textutil"
	"github.com/kart-io/ragserve/internal/ragserve/store"
)

const (
	// localSectionHeader 本地知识段落标签。
	localSectionHeader = "[Local Knowledge]"

	// webSectionHeader 联网搜索段落标签。
	webSectionHeader = "[Web Search]"

	// sectionSeparator 段落之间的分隔符，让生成模型能区分不同来源。
	sectionSeparator = "\n\n---\n\n"

	// emptyContextText 本地与联网均无结果时的固定上下文，
	// 生成模型必须收到非空且格式良好的上下文。
	emptyContextText = "No relevant information was found in the knowledge base or web search."

	// webSourceLocation 联网来源的固定位置标识。
	webSourceLocation = "web search"

	// webContentLimit 联网来源内容的最大字符数。
	// 外部搜索结果不可信，截断避免无界负载。
	webContentLimit = 500
)

// RetrievalResult 一次检索的聚合结果。
// LocalDocuments 按相似度从高到低排列，顺序即引用编号的契约；
// WebText 仅在 WebFound 为 true 时有效。
type RetrievalResult struct {
	LocalDocuments []*store.SearchResult
	WebText        string
	WebFound       bool
}

// AssembledContext 组装后的上下文。
// Sources 中第 i 个条目对应 ContextText 中的第 i 个证据块，
// 引用编号为 [i+1]，组装后不再重排。
type AssembledContext struct {
	ContextText string
	Sources     []model.SourceDocument
}

// AssembleContext 将本地检索结果与可选的联网搜索文本合并为
// 带标签的上下文及并行的引用来源列表。纯函数，不会失败。
func AssembleContext(result *RetrievalResult) *AssembledContext {
	var sections []string
	var sources []model.SourceDocument

	if len(result.LocalDocuments) > 0 {
		var sb strings.Builder
		sb.WriteString(localSectionHeader)
		sb.WriteString("\n")
		for i, doc := range result.LocalDocuments {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(doc.Content)

			sources = append(sources, model.SourceDocument{
				PageContent: doc.Content,
				Metadata: model.SourceMetadata{
					SourceType:     model.SourceTypeLocal,
					FileName:       doc.FileName,
					SourceLocation: doc.SourceLocation,
					ChunkID:        doc.ChunkID,
					Score:          doc.Score,
				},
			})
		}
		sections = append(sections, sb.String())
	}

	if result.WebFound && result.WebText != "" {
		sections = append(sections, webSectionHeader+"\n"+result.WebText)

		// 联网来源排在所有本地来源之后，且恰好合成一条
		sources = append(sources, model.SourceDocument{
			PageContent: textutil.TruncateString(result.WebText, webContentLimit),
			Metadata: model.SourceMetadata{
				SourceType:     model.SourceTypeWeb,
				SourceLocation: webSourceLocation,
			},
		})
	}

	if len(sections) == 0 {
		return &AssembledContext{
			ContextText: emptyContextText,
			Sources:     []model.SourceDocument{},
		}
	}

	return &AssembledContext{
		ContextText: strings.Join(sections, sectionSeparator),
		Sources:     sources,
	}
}
