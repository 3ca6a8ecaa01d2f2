package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/music-harvest-go/internal/app"
	"go.uber.org/zap"
)

// DiscoveryHandler handles discovery and seed requests
type DiscoveryHandler struct {
	job       DiscoveryTrigger
	seeder    ArtistSeeder
	scheduler JobLister
	logger    *zap.Logger
}

// NewDiscoveryHandler creates a new discovery handler. scheduler may be nil
// when no schedule is configured.
func NewDiscoveryHandler(job DiscoveryTrigger, seeder ArtistSeeder, scheduler JobLister, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		job:       job,
		seeder:    seeder,
		scheduler: scheduler,
		logger:    logger,
	}
}

// AddSeedRequest represents a request to nominate a seed artist
type AddSeedRequest struct {
	Artist string `json:"artist" binding:"required"`
}

// RunDiscovery handles POST /api/v1/discovery/run
func (h *DiscoveryHandler) RunDiscovery(c *gin.Context) {
	if err := h.job.Trigger(); err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Discovery job triggered")
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

// GetDiscovery handles GET /api/v1/discovery
func (h *DiscoveryHandler) GetDiscovery(c *gin.Context) {
	jobs := []app.ScheduledJob{}
	if h.scheduler != nil {
		jobs = h.scheduler.Jobs()
	}

	c.JSON(http.StatusOK, gin.H{
		"running":     h.job.IsRunning(),
		"last_report": h.job.LastReport(),
		"schedules":   jobs,
	})
}

// AddSeed handles POST /api/v1/seeds
func (h *DiscoveryHandler) AddSeed(c *gin.Context) {
	var req AddSeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	artist, added, err := h.seeder.SeedArtist(c.Request.Context(), req.Artist)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if !added {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"artist": artist, "added": added})
}
