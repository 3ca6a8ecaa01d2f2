package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/music-harvest-go/internal/domain"
	"go.uber.org/zap"
)

// CookieHandler handles downloader cookie file updates
type CookieHandler struct {
	cookies domain.CookieStore
	logger  *zap.Logger
}

// NewCookieHandler creates a new cookie handler
func NewCookieHandler(cookies domain.CookieStore, logger *zap.Logger) *CookieHandler {
	return &CookieHandler{cookies: cookies, logger: logger}
}

// UpdateCookieRequest carries the new cookie file content
type UpdateCookieRequest struct {
	Content string `json:"content"`
}

// UpdateCookie handles PUT /api/v1/cookie
func (h *CookieHandler) UpdateCookie(c *gin.Context) {
	var req UpdateCookieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.cookies.Update(req.Content); err != nil {
		h.logger.Error("Failed to update cookie file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update cookie file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated", "path": h.cookies.Path()})
}

// GetCookie handles GET /api/v1/cookie
func (h *CookieHandler) GetCookie(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"path": h.cookies.Path(), "exists": h.cookies.Exists()})
}
