package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yourusername/music-harvest-go/api/handlers"
	"github.com/yourusername/music-harvest-go/api/middleware"
	"github.com/yourusername/music-harvest-go/internal/domain"
	"github.com/yourusername/music-harvest-go/pkg/logger"
	"go.uber.org/zap"
)

// Dependencies are the components the HTTP API serves
type Dependencies struct {
	Resolver         handlers.SelectionResolver
	Batches          handlers.BatchStarter
	Status           domain.StatusStore
	History          domain.DownloadHistoryRepository
	Cookies          domain.CookieStore
	Discovery        handlers.DiscoveryTrigger
	Seeder           handlers.ArtistSeeder
	Scheduler        handlers.JobLister // nil when no schedule is configured
	CredentialsReady bool
	LogsDir          string
	Logger           *zap.Logger
	EventLogger      *logger.MultiLogger
}

// SetupRouter sets up the HTTP router
func SetupRouter(deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(deps.Logger, deps.EventLogger))
	router.Use(middleware.Recovery(deps.Logger, deps.EventLogger))
	router.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(deps.Batches, deps.CredentialsReady)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)

		downloadHandler := handlers.NewDownloadHandler(deps.Resolver, deps.Batches, deps.Status, deps.History, deps.Logger)
		v1.GET("/artists/search", downloadHandler.SearchArtist)
		v1.GET("/albums/:id/tracks", downloadHandler.AlbumTracks)
		v1.POST("/downloads", downloadHandler.StartDownload)
		v1.GET("/status", downloadHandler.GetStatus)
		v1.GET("/history", downloadHandler.ListHistory)
		v1.GET("/history/stats", downloadHandler.GetStats)

		statusStream := handlers.NewStatusWebSocketHandler(deps.Status, deps.Logger)
		v1.GET("/status/ws", statusStream.HandleWebSocket)

		cookieHandler := handlers.NewCookieHandler(deps.Cookies, deps.Logger)
		v1.GET("/cookie", cookieHandler.GetCookie)
		v1.PUT("/cookie", cookieHandler.UpdateCookie)

		discoveryHandler := handlers.NewDiscoveryHandler(deps.Discovery, deps.Seeder, deps.Scheduler, deps.Logger)
		v1.GET("/discovery", discoveryHandler.GetDiscovery)
		v1.POST("/discovery/run", discoveryHandler.RunDiscovery)
		v1.POST("/seeds", discoveryHandler.AddSeed)

		logHandler := handlers.NewLogHandler(deps.LogsDir)
		logs := v1.Group("/logs")
		{
			logs.GET("/categories", logHandler.GetCategories)
			logs.GET("/:category", logHandler.GetLogs)
			logs.GET("/:category/search", logHandler.SearchLogs)
			logs.GET("/:category/export", logHandler.ExportLogs)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "not found"})
	})

	return router
}
