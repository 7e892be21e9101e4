// Package router provides RAG service routing.
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/ragserve/internal/ragserve/handler"
	"github.com/kart-io/ragserve/internal/ragserve/metrics"
	"github.com/kart-io/ragserve/pkg/middleware"
)

// New builds the gin engine with middleware and RAG routes registered.
func New(ragHandler *handler.RAGHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger("/healthz", "/metrics"),
		middleware.CORS(),
	)

	registerRoutes(engine, ragHandler)

	logger.Info("HTTP routes registered")
	return engine
}

func registerRoutes(engine *gin.Engine, ragHandler *handler.RAGHandler) {
	engine.GET("/healthz", ragHandler.Health)

	engine.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, metrics.Get().Export("ragserve", "core"))
	})

	v1 := engine.Group("/v1")
	{
		rag := v1.Group("/rag")
		{
			// 流式接口自行管理超时，不挂请求级超时中间件
			rag.POST("/query", middleware.Timeout(65*time.Second), ragHandler.Query)
			rag.POST("/query/stream", ragHandler.QueryStream)

			rag.POST("/index/directory", ragHandler.IndexDirectory)
			rag.GET("/stats", ragHandler.Stats)
		}
	}
}
