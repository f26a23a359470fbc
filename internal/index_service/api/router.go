package api

import (
	"github.com/gin-gonic/gin"

	"docindex/internal/config"
)

// NewRouter wires the endpoint handler into a gin engine. Indexing requests
// are throttled by a per-worker concurrency limit; requests beyond the limit
// queue rather than fail.
func NewRouter(cfg *config.AppConfig, handler *Handler) *gin.Engine {
	router := gin.Default()

	router.GET("/health", handler.Health)

	base := router.Group(cfg.Server.RootPath)
	api := base.Group("api/v1")
	api.POST("/index", concurrencyLimit(cfg.Server.ConcurrentRequestPerWorker), handler.Index)

	return router
}

// concurrencyLimit bounds the number of indexing requests processed at once.
func concurrencyLimit(limit int) gin.HandlerFunc {
	semaphore := make(chan struct{}, limit)
	return func(c *gin.Context) {
		semaphore <- struct{}{}
		defer func() { <-semaphore }()
		c.Next()
	}
}
