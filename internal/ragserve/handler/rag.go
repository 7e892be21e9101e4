// Package handler provides HTTP handlers for the RAG service.
package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/ragserve/internal/ragserve/biz"
)

// queryTimeout 单次问答的最长处理时间。
const queryTimeout = 60 * time.Second

// RAGHandler handles RAG HTTP requests.
type RAGHandler struct {
	service biz.Service
}

// NewRAGHandler creates a new RAGHandler.
func NewRAGHandler(service biz.Service) *RAGHandler {
	return &RAGHandler{service: service}
}

// SuccessResponse is a standard success response.
type SuccessResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// QueryRequest represents a query request.
type QueryRequest struct {
	Query           string `json:"query" binding:"required"`
	TaskDescription string `json:"task_description"`
}

// Query performs a RAG query.
func (h *RAGHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	result, err := h.service.Query(ctx, &biz.QueryInput{
		Query:           req.Query,
		TaskDescription: req.TaskDescription,
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			c.JSON(http.StatusRequestTimeout, ErrorResponse{
				Code:    408,
				Message: "Query timeout: the request took too long to process. Please try again or simplify your question.",
			})
			return
		}
		h.writeQueryError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: result})
}

// QueryStream performs a RAG query and streams the answer as SSE events.
// Sources are sent first in a single "sources" event, then answer
// fragments follow as "message" events until a final "done" event.
func (h *RAGHandler) QueryStream(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	stream, err := h.service.QueryStream(c.Request.Context(), &biz.QueryInput{
		Query:           req.Query,
		TaskDescription: req.TaskDescription,
	})
	if err != nil {
		h.writeQueryError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.SSEvent("sources", stream.Sources)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		chunk, ok := <-stream.Chunks
		if !ok {
			c.SSEvent("done", "")
			return false
		}
		if chunk.Err != nil {
			c.SSEvent("error", chunk.Err.Error())
			return false
		}
		c.SSEvent("message", chunk.Content)
		return true
	})
}

// IndexDirectoryRequest represents a directory index request.
type IndexDirectoryRequest struct {
	Directory string `json:"directory" binding:"required"`
}

// IndexDirectory indexes documents from a local directory.
func (h *RAGHandler) IndexDirectory(c *gin.Context) {
	var req IndexDirectoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	if err := h.service.IndexDirectory(c.Request.Context(), req.Directory); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "Directory indexed successfully"})
}

// Stats returns knowledge base and service statistics.
func (h *RAGHandler) Stats(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: stats})
}

// Health reports service liveness, probing the vector store.
func (h *RAGHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if _, err := h.service.GetStats(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeQueryError 将业务层错误映射为 HTTP 响应。
// 上游依赖（嵌入、向量库、生成模型）失败返回 502，其余返回 500。
func (h *RAGHandler) writeQueryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, biz.ErrEmbedding):
		c.JSON(http.StatusBadGateway, ErrorResponse{Code: 502, Message: err.Error(), Kind: "embedding_failure"})
	case errors.Is(err, biz.ErrIndexSearch):
		c.JSON(http.StatusBadGateway, ErrorResponse{Code: 502, Message: err.Error(), Kind: "index_failure"})
	case errors.Is(err, biz.ErrGeneration):
		c.JSON(http.StatusBadGateway, ErrorResponse{Code: 502, Message: err.Error(), Kind: "generation_failure"})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
	}
}
