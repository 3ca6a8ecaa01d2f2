package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/music-harvest-go/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	resolver SelectionResolver
	batches  BatchStarter
	status   domain.StatusStore
	history  domain.DownloadHistoryRepository
	logger   *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(
	resolver SelectionResolver,
	batches BatchStarter,
	status domain.StatusStore,
	history domain.DownloadHistoryRepository,
	logger *zap.Logger,
) *DownloadHandler {
	return &DownloadHandler{
		resolver: resolver,
		batches:  batches,
		status:   status,
		history:  history,
		logger:   logger,
	}
}

// StartDownloadRequest represents a request to download selected items
type StartDownloadRequest struct {
	ArtistID      string   `json:"artist_id" binding:"required"`
	SelectedItems []string `json:"selected_items" binding:"required,min=1"`
}

// SearchArtist handles GET /api/v1/artists/search
func (h *DownloadHandler) SearchArtist(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'name' is required"})
		return
	}

	result, err := h.resolver.SearchArtistAlbums(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AlbumTracks handles GET /api/v1/albums/:id/tracks
func (h *DownloadHandler) AlbumTracks(c *gin.Context) {
	tracks, err := h.resolver.AlbumTracks(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}

// StartDownload handles POST /api/v1/downloads
func (h *DownloadHandler) StartDownload(c *gin.Context) {
	var req StartDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.batches.IsRunning() {
		respondError(c, domain.ErrBatchInProgress)
		return
	}

	tasks, err := h.resolver.ResolveSelection(c.Request.Context(), req.ArtistID, req.SelectedItems)
	if err != nil {
		respondError(c, err)
		return
	}

	batchID, err := h.batches.Start(tasks)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Download batch accepted", zap.String("batch_id", batchID), zap.Int("items", len(tasks)))
	c.JSON(http.StatusAccepted, gin.H{"batch_id": batchID, "items": len(tasks)})
}

// GetStatus handles GET /api/v1/status
func (h *DownloadHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.status.Snapshot())
}

// ListHistory handles GET /api/v1/history
func (h *DownloadHandler) ListHistory(c *gin.Context) {
	var (
		records []*domain.DownloadRecord
		err     error
	)
	if batchID := c.Query("batch_id"); batchID != "" {
		records, err = h.history.FindByBatch(batchID)
	} else {
		records, err = h.history.FindRecent(parseLimit(c.Query("limit"), defaultHistoryLimit, maxHistoryLimit))
	}
	if err != nil {
		h.logger.Error("Failed to list history", zap.Error(err))
		respondError(c, err)
		return
	}

	if records == nil {
		records = []*domain.DownloadRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(records), "records": records})
}

// GetStats handles GET /api/v1/history/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	stats, err := h.history.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func parseLimit(raw string, def, max int) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
