package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReturnsSingleton(t *testing.T) {
	assert.Same(t, Get(), Get())
}

func TestRecordQuery(t *testing.T) {
	m := Get()
	m.Reset()

	m.RecordQuery(true, nil)
	m.RecordQuery(false, nil)
	m.RecordQuery(false, errors.New("boom"))

	stats := m.Stats()
	assert.Equal(t, uint64(3), stats["queries_total"])
	assert.Equal(t, uint64(1), stats["queries_cache_hits"])
	assert.Equal(t, uint64(2), stats["queries_cache_misses"])
	assert.Equal(t, uint64(1), stats["queries_errors"])
}

func TestRecordWebSearch(t *testing.T) {
	m := Get()
	m.Reset()

	m.RecordWebSearch(false, nil)
	m.RecordWebSearch(true, nil)
	m.RecordWebSearch(false, errors.New("timeout"))

	stats := m.Stats()
	assert.Equal(t, uint64(3), stats["web_search_total"])
	assert.Equal(t, uint64(1), stats["web_search_empty"])
	assert.Equal(t, uint64(1), stats["web_search_failures"])
}

func TestRecordLLMCall(t *testing.T) {
	m := Get()
	m.Reset()

	m.RecordLLMCall(100*time.Millisecond, 50, 20, nil)
	m.RecordLLMCall(200*time.Millisecond, 30, 10, nil)

	stats := m.Stats()
	assert.Equal(t, uint64(2), stats["llm_calls_total"])
	assert.Equal(t, uint64(80), stats["llm_tokens_prompt"])
	assert.Equal(t, uint64(30), stats["llm_tokens_completion"])
	assert.InDelta(t, 0.3, stats["llm_calls_duration_s"].(float64), 0.001)
}

func TestExportPrometheusFormat(t *testing.T) {
	m := Get()
	m.Reset()

	m.RecordQuery(false, nil)
	m.RecordIndexing(2, 10, nil)

	out := m.Export("ragserve", "core")

	require.NotEmpty(t, out)
	assert.Contains(t, out, "# TYPE ragserve_core_queries_total counter")
	assert.Contains(t, out, "ragserve_core_queries_total 1\n")
	assert.Contains(t, out, "ragserve_core_documents_indexed_total 2\n")
	assert.Contains(t, out, "ragserve_core_chunks_indexed_total 10\n")
	assert.Contains(t, out, "# TYPE ragserve_core_cache_hit_rate gauge")
	assert.Contains(t, out, "ragserve_core_uptime_seconds")
}

func TestExportWithoutSubsystem(t *testing.T) {
	m := Get()
	m.Reset()

	out := m.Export("ragserve", "")
	assert.Contains(t, out, "ragserve_queries_total 0\n")
}
