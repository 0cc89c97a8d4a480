package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/tractstack-storyblok/internal/application/pipeline"
	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/bridge"
)

// HealthHandlers report liveness and build state
type HealthHandlers struct {
	pipeline *pipeline.Pipeline
	hub      *bridge.Hub
}

// NewHealthHandlers creates health handlers
func NewHealthHandlers(p *pipeline.Pipeline, hub *bridge.Hub) *HealthHandlers {
	return &HealthHandlers{pipeline: p, hub: hub}
}

// GetHealth is healthy once a build is active.
func (h *HealthHandlers) GetHealth(c *gin.Context) {
	buildID := h.pipeline.BuildID()
	status, code := "ok", http.StatusOK
	if buildID == "" {
		status, code = "unbuilt", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":        status,
		"buildId":       buildID,
		"bridgeClients": h.hub.ClientCount(),
	})
}
