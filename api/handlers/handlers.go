package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/music-harvest-go/internal/app"
	"github.com/yourusername/music-harvest-go/internal/domain"
)

// SelectionResolver resolves interactive searches and selections
type SelectionResolver interface {
	SearchArtistAlbums(ctx context.Context, name string) (*app.ArtistAlbums, error)
	AlbumTracks(ctx context.Context, albumID string) ([]domain.Track, error)
	ResolveSelection(ctx context.Context, artistID string, items []string) ([]domain.DownloadTask, error)
}

// BatchStarter starts download batches in the background
type BatchStarter interface {
	Start(tasks []domain.DownloadTask) (string, error)
	IsRunning() bool
}

// DiscoveryTrigger starts the discovery job in the background
type DiscoveryTrigger interface {
	Trigger() error
	IsRunning() bool
	LastReport() *app.DiscoveryReport
}

// ArtistSeeder nominates seed artists for discovery
type ArtistSeeder interface {
	SeedArtist(ctx context.Context, name string) (*domain.Artist, bool, error)
}

// JobLister lists scheduled jobs
type JobLister interface {
	Jobs() []app.ScheduledJob
}

// statusFor maps application errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrArtistNotFound), errors.Is(err, domain.ErrSelectionExpired):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoValidItems):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBatchInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAuthFailure), errors.Is(err, domain.ErrAPIFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
