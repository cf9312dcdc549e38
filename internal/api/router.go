package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/radiant-launch-agent/internal/a2a"
)

// NewRouter mounts the A2A endpoints, the REST routes and /health.
func NewRouter(agentHandler *a2a.A2AHandler, restHandler *Handler, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), a2a.RequestLoggingMiddleware(logger))

	router.GET("/.well-known/agent.json", agentHandler.ServeAgentCard)
	router.POST("/a2a/campaign", agentHandler.HandleCampaign)

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	restHandler.Register(router)
	return router
}
