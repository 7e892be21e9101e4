// Package metrics 提供 RAG 服务的业务指标收集。
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics RAG 服务业务指标。
type Metrics struct {
	// 查询指标
	queriesTotal       uint64
	queriesCacheHits   uint64
	queriesCacheMisses uint64
	queriesErrors      uint64

	// 检索指标
	retrievalTotal    uint64
	retrievalDuration float64
	retrievalErrors   uint64

	// 联网搜索指标
	webSearchTotal    uint64
	webSearchFailures uint64
	webSearchEmpty    uint64

	// LLM 调用指标
	llmCallsTotal       uint64
	llmCallsDuration    float64
	llmCallsErrors      uint64
	llmTokensPrompt     uint64
	llmTokensCompletion uint64

	// 索引指标
	documentsIndexed uint64
	chunksIndexed    uint64
	indexErrors      uint64

	startTime  time.Time
	durationMu sync.Mutex
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Get 获取全局指标实例。
func Get() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			startTime: time.Now(),
		}
	})
	return globalMetrics
}

// RecordQuery 记录查询。
func (m *Metrics) RecordQuery(cacheHit bool, err error) {
	atomic.AddUint64(&m.queriesTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.queriesErrors, 1)
		return
	}
	if cacheHit {
		atomic.AddUint64(&m.queriesCacheHits, 1)
	} else {
		atomic.AddUint64(&m.queriesCacheMisses, 1)
	}
}

// RecordRetrieval 记录检索操作。
func (m *Metrics) RecordRetrieval(duration time.Duration, err error) {
	atomic.AddUint64(&m.retrievalTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.retrievalErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.retrievalDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordWebSearch 记录联网搜索。empty 表示服务正常返回但没有结果。
func (m *Metrics) RecordWebSearch(empty bool, err error) {
	atomic.AddUint64(&m.webSearchTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.webSearchFailures, 1)
		return
	}
	if empty {
		atomic.AddUint64(&m.webSearchEmpty, 1)
	}
}

// RecordLLMCall 记录 LLM 调用。
func (m *Metrics) RecordLLMCall(duration time.Duration, promptTokens, completionTokens int, err error) {
	atomic.AddUint64(&m.llmCallsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.llmCallsErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.llmCallsDuration += duration.Seconds()
	m.durationMu.Unlock()

	if promptTokens > 0 {
		atomic.AddUint64(&m.llmTokensPrompt, uint64(promptTokens))
	}
	if completionTokens > 0 {
		atomic.AddUint64(&m.llmTokensCompletion, uint64(completionTokens))
	}
}

// RecordIndexing 记录索引操作。
func (m *Metrics) RecordIndexing(documents, chunks int, err error) {
	if err != nil {
		atomic.AddUint64(&m.indexErrors, 1)
		return
	}
	atomic.AddUint64(&m.documentsIndexed, uint64(documents))
	atomic.AddUint64(&m.chunksIndexed, uint64(chunks))
}

func writeCounter(sb *strings.Builder, prefix, name, help string, value uint64) {
	fmt.Fprintf(sb, "# HELP %s_%s %s\n", prefix, name, help)
	fmt.Fprintf(sb, "# TYPE %s_%s counter\n", prefix, name)
	fmt.Fprintf(sb, "%s_%s %d\n\n", prefix, name, value)
}

// Export 导出 Prometheus 文本格式指标。
func (m *Metrics) Export(namespace, subsystem string) string {
	var sb strings.Builder
	prefix := namespace
	if subsystem != "" {
		prefix = prefix + "_" + subsystem
	}

	writeCounter(&sb, prefix, "queries_total", "Total number of RAG queries.", atomic.LoadUint64(&m.queriesTotal))
	writeCounter(&sb, prefix, "queries_cache_hits_total", "Number of cache hits.", atomic.LoadUint64(&m.queriesCacheHits))
	writeCounter(&sb, prefix, "queries_cache_misses_total", "Number of cache misses.", atomic.LoadUint64(&m.queriesCacheMisses))
	writeCounter(&sb, prefix, "queries_errors_total", "Number of query errors.", atomic.LoadUint64(&m.queriesErrors))

	cacheHits := atomic.LoadUint64(&m.queriesCacheHits)
	cacheMisses := atomic.LoadUint64(&m.queriesCacheMisses)
	total := cacheHits + cacheMisses
	cacheHitRate := 0.0
	if total > 0 {
		cacheHitRate = float64(cacheHits) / float64(total)
	}
	fmt.Fprintf(&sb, "# HELP %s_cache_hit_rate Cache hit rate (0-1).\n", prefix)
	fmt.Fprintf(&sb, "# TYPE %s_cache_hit_rate gauge\n", prefix)
	fmt.Fprintf(&sb, "%s_cache_hit_rate %.4f\n\n", prefix, cacheHitRate)

	writeCounter(&sb, prefix, "retrieval_total", "Total number of retrievals.", atomic.LoadUint64(&m.retrievalTotal))
	writeCounter(&sb, prefix, "retrieval_errors_total", "Number of retrieval errors.", atomic.LoadUint64(&m.retrievalErrors))

	writeCounter(&sb, prefix, "web_search_total", "Total number of web searches.", atomic.LoadUint64(&m.webSearchTotal))
	writeCounter(&sb, prefix, "web_search_failures_total", "Number of web search failures.", atomic.LoadUint64(&m.webSearchFailures))
	writeCounter(&sb, prefix, "web_search_empty_total", "Number of empty web search results.", atomic.LoadUint64(&m.webSearchEmpty))

	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	llmDuration := m.llmCallsDuration
	m.durationMu.Unlock()

	fmt.Fprintf(&sb, "# HELP %s_retrieval_duration_seconds_total Total retrieval duration.\n", prefix)
	fmt.Fprintf(&sb, "# TYPE %s_retrieval_duration_seconds_total counter\n", prefix)
	fmt.Fprintf(&sb, "%s_retrieval_duration_seconds_total %.6f\n\n", prefix, retrievalDuration)

	writeCounter(&sb, prefix, "llm_calls_total", "Total number of LLM calls.", atomic.LoadUint64(&m.llmCallsTotal))
	writeCounter(&sb, prefix, "llm_calls_errors_total", "Number of LLM call errors.", atomic.LoadUint64(&m.llmCallsErrors))
	writeCounter(&sb, prefix, "llm_tokens_prompt_total", "Total prompt tokens.", atomic.LoadUint64(&m.llmTokensPrompt))
	writeCounter(&sb, prefix, "llm_tokens_completion_total", "Total completion tokens.", atomic.LoadUint64(&m.llmTokensCompletion))

	fmt.Fprintf(&sb, "# HELP %s_llm_calls_duration_seconds_total Total LLM call duration.\n", prefix)
	fmt.Fprintf(&sb, "# TYPE %s_llm_calls_duration_seconds_total counter\n", prefix)
	fmt.Fprintf(&sb, "%s_llm_calls_duration_seconds_total %.6f\n\n", prefix, llmDuration)

	writeCounter(&sb, prefix, "documents_indexed_total", "Number of documents indexed.", atomic.LoadUint64(&m.documentsIndexed))
	writeCounter(&sb, prefix, "chunks_indexed_total", "Number of chunks indexed.", atomic.LoadUint64(&m.chunksIndexed))
	writeCounter(&sb, prefix, "index_errors_total", "Number of indexing errors.", atomic.LoadUint64(&m.indexErrors))

	fmt.Fprintf(&sb, "# HELP %s_uptime_seconds Service uptime in seconds.\n", prefix)
	fmt.Fprintf(&sb, "# TYPE %s_uptime_seconds gauge\n", prefix)
	fmt.Fprintf(&sb, "%s_uptime_seconds %.0f\n", prefix, time.Since(m.startTime).Seconds())

	return sb.String()
}

// Stats 返回指标快照。
func (m *Metrics) Stats() map[string]any {
	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	llmDuration := m.llmCallsDuration
	m.durationMu.Unlock()

	return map[string]any{
		"queries_total":          atomic.LoadUint64(&m.queriesTotal),
		"queries_cache_hits":     atomic.LoadUint64(&m.queriesCacheHits),
		"queries_cache_misses":   atomic.LoadUint64(&m.queriesCacheMisses),
		"queries_errors":         atomic.LoadUint64(&m.queriesErrors),
		"retrieval_total":        atomic.LoadUint64(&m.retrievalTotal),
		"retrieval_errors":       atomic.LoadUint64(&m.retrievalErrors),
		"retrieval_duration_s":   retrievalDuration,
		"web_search_total":       atomic.LoadUint64(&m.webSearchTotal),
		"web_search_failures":    atomic.LoadUint64(&m.webSearchFailures),
		"web_search_empty":       atomic.LoadUint64(&m.webSearchEmpty),
		"llm_calls_total":        atomic.LoadUint64(&m.llmCallsTotal),
		"llm_calls_errors":       atomic.LoadUint64(&m.llmCallsErrors),
		"llm_calls_duration_s":   llmDuration,
		"llm_tokens_prompt":      atomic.LoadUint64(&m.llmTokensPrompt),
		"llm_tokens_completion":  atomic.LoadUint64(&m.llmTokensCompletion),
		"documents_indexed":      atomic.LoadUint64(&m.documentsIndexed),
		"chunks_indexed":         atomic.LoadUint64(&m.chunksIndexed),
		"index_errors":           atomic.LoadUint64(&m.indexErrors),
		"uptime_seconds":         time.Since(m.startTime).Seconds(),
	}
}

// Reset 重置所有计数器，仅用于测试。
func (m *Metrics) Reset() {
	atomic.StoreUint64(&m.queriesTotal, 0)
	atomic.StoreUint64(&m.queriesCacheHits, 0)
	atomic.StoreUint64(&m.queriesCacheMisses, 0)
	atomic.StoreUint64(&m.queriesErrors, 0)
	atomic.StoreUint64(&m.retrievalTotal, 0)
	atomic.StoreUint64(&m.retrievalErrors, 0)
	atomic.StoreUint64(&m.webSearchTotal, 0)
	atomic.StoreUint64(&m.webSearchFailures, 0)
	atomic.StoreUint64(&m.webSearchEmpty, 0)
	atomic.StoreUint64(&m.llmCallsTotal, 0)
	atomic.StoreUint64(&m.llmCallsErrors, 0)
	atomic.StoreUint64(&m.llmTokensPrompt, 0)
	atomic.StoreUint64(&m.llmTokensCompletion, 0)
	atomic.StoreUint64(&m.documentsIndexed, 0)
	atomic.StoreUint64(&m.chunksIndexed, 0)
	atomic.StoreUint64(&m.indexErrors, 0)

	m.durationMu.Lock()
	m.retrievalDuration = 0
	m.llmCallsDuration = 0
	m.durationMu.Unlock()
}
