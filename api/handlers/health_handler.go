package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// HealthHandler handles health check requests
type HealthHandler struct {
	batches          BatchStarter
	credentialsReady bool
}

// NewHealthHandler creates a new health handler. credentialsReady tells
// whether catalog client credentials are configured.
func NewHealthHandler(batches BatchStarter, credentialsReady bool) *HealthHandler {
	return &HealthHandler{
		batches:          batches,
		credentialsReady: credentialsReady,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Batch   struct {
		Running bool `json:"running"`
	} `json:"batch"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: Version,
	}
	response.Batch.Running = h.batches.IsRunning()

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.credentialsReady {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "catalog client credentials not configured",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
