package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/ragserve/internal/model"
	"github.com/kart-io/ragserve/internal/ragserve/biz"
)

type stubService struct {
	result   *model.QueryResult
	queryErr error
	statsErr error
	seen     *biz.QueryInput
}

var _ biz.Service = (*stubService)(nil)

func (s *stubService) Query(ctx context.Context, input *biz.QueryInput) (*model.QueryResult, error) {
	s.seen = input
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.result, nil
}

func (s *stubService) QueryStream(ctx context.Context, input *biz.QueryInput) (*biz.StreamResult, error) {
	return nil, s.queryErr
}

func (s *stubService) IndexDirectory(ctx context.Context, dir string) error { return nil }

func (s *stubService) GetStats(ctx context.Context) (map[string]any, error) {
	if s.statsErr != nil {
		return nil, s.statsErr
	}
	return map[string]any{"queries_total": uint64(0)}, nil
}

func newTestRouter(svc biz.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewRAGHandler(svc)
	engine.POST("/v1/rag/query", h.Query)
	engine.GET("/v1/rag/stats", h.Stats)
	engine.GET("/healthz", h.Health)
	return engine
}

func postJSON(t *testing.T, engine *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestQueryHandler(t *testing.T) {
	svc := &stubService{
		result: &model.QueryResult{
			Response: "an answer [1]",
			Sources: []model.SourceDocument{
				{
					PageContent: "evidence",
					Metadata: model.SourceMetadata{
						SourceType: model.SourceTypeLocal,
						FileName:   "doc.md",
					},
				},
			},
		},
	}
	engine := newTestRouter(svc)

	w := postJSON(t, engine, "/v1/rag/query", map[string]string{"query": "how?"})

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int               `json:"code"`
		Data model.QueryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "an answer [1]", resp.Data.Response)
	require.Len(t, resp.Data.Sources, 1)
	assert.Equal(t, "evidence", resp.Data.Sources[0].PageContent)
	assert.Equal(t, model.SourceTypeLocal, resp.Data.Sources[0].Metadata.SourceType)

	require.NotNil(t, svc.seen)
	assert.Equal(t, "how?", svc.seen.Query)
	assert.Empty(t, svc.seen.TaskDescription)
}

func TestQueryHandler_TaskDescriptionForwarded(t *testing.T) {
	svc := &stubService{result: &model.QueryResult{Response: "ok"}}
	engine := newTestRouter(svc)

	w := postJSON(t, engine, "/v1/rag/query", map[string]string{
		"query":            "how?",
		"task_description": "Retrieve setup guides",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Retrieve setup guides", svc.seen.TaskDescription)
}

func TestQueryHandler_MissingQuery(t *testing.T) {
	engine := newTestRouter(&stubService{})

	w := postJSON(t, engine, "/v1/rag/query", map[string]string{"task_description": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryHandler_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind string
	}{
		{name: "embedding", err: biz.ErrEmbedding, wantKind: "embedding_failure"},
		{name: "index", err: biz.ErrIndexSearch, wantKind: "index_failure"},
		{name: "generation", err: biz.ErrGeneration, wantKind: "generation_failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestRouter(&stubService{queryErr: tt.err})

			w := postJSON(t, engine, "/v1/rag/query", map[string]string{"query": "q"})

			require.Equal(t, http.StatusBadGateway, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantKind, resp.Kind)
		})
	}
}

func TestHealthHandler(t *testing.T) {
	engine := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestHealthHandler_Degraded(t *testing.T) {
	engine := newTestRouter(&stubService{statsErr: errors.New("milvus unreachable")})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}

func TestStatsHandler(t *testing.T) {
	engine := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/rag/stats", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "queries_total")
}
