// Package bootstrap wires the application components from a loaded
// configuration. The server and the CLI's local commands share it.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/yourusername/music-harvest-go/internal/app"
	"github.com/yourusername/music-harvest-go/internal/domain"
	"github.com/yourusername/music-harvest-go/internal/infrastructure"
	"github.com/yourusername/music-harvest-go/pkg/logger"
	"go.uber.org/zap"
)

// Components holds the wired application
type Components struct {
	Config       *domain.Config
	Logger       *zap.Logger
	EventLogger  *logger.MultiLogger
	Catalog      *infrastructure.SpotifyClient
	Cookies      *infrastructure.FileCookieStore
	Status       *app.StatusTracker
	History      *infrastructure.SQLiteHistoryRepository
	Notifier     *infrastructure.NotificationService
	Orchestrator *app.Orchestrator
	Engine       *app.DiscoveryEngine
	Resolver     *app.Resolver
	Discovery    *app.DiscoveryJob
	Scheduler    *app.Scheduler // nil unless discovery.schedule is set
}

// CredentialsReady reports whether catalog client credentials are configured
func (c *Components) CredentialsReady() bool {
	return c.Config.Spotify.ClientID != "" && c.Config.Spotify.ClientSecret != ""
}

// NewLoggers builds the application logger and the categorized event logger
func NewLoggers(config *domain.Config) (*zap.Logger, *logger.MultiLogger, error) {
	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
		MaxSizeMB:  config.Logging.MaxSizeMB,
		MaxBackups: config.Logging.MaxBackups,
		MaxAgeDays: config.Logging.MaxAgeDays,
		Compress:   config.Logging.Compress,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	eventLogger, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Download.LogsDir,
	})
	if err != nil {
		_ = log.Sync()
		return nil, nil, fmt.Errorf("failed to initialize event logger: %w", err)
	}

	return log, eventLogger, nil
}

// Build wires every component. withScheduler registers the discovery schedule
// when one is configured; the caller starts it.
func Build(config *domain.Config, log *zap.Logger, eventLogger *logger.MultiLogger, withScheduler bool) (*Components, error) {
	if err := createDirectories(config); err != nil {
		return nil, err
	}

	credentials := infrastructure.NewCredentialManager(&config.Spotify, log)
	catalog := infrastructure.NewSpotifyClient(&config.Spotify, credentials, log)
	cookies := infrastructure.NewFileCookieStore(config.Download.CookieFile)

	history, err := infrastructure.NewSQLiteHistoryRepository(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history repository: %w", err)
	}

	notifier := infrastructure.NewNotificationService(&config.Notification, log)
	downloader := infrastructure.NewSpotDLDownloader(&config.Download, cookies, log, eventLogger)
	status := app.NewStatusTracker()

	orchestrator := app.NewOrchestrator(downloader, status, history, notifier, &config.Download, log, eventLogger)
	ledger := infrastructure.NewFileLedgerStore(config.Discovery.SeedFile, config.Discovery.ProcessedFile)
	engine := app.NewDiscoveryEngine(catalog, ledger, &config.Discovery, log, eventLogger)
	resolver := app.NewResolver(catalog, &config.Download, log)
	job := app.NewDiscoveryJob(config, engine, resolver, orchestrator, notifier, log)

	c := &Components{
		Config:       config,
		Logger:       log,
		EventLogger:  eventLogger,
		Catalog:      catalog,
		Cookies:      cookies,
		Status:       status,
		History:      history,
		Notifier:     notifier,
		Orchestrator: orchestrator,
		Engine:       engine,
		Resolver:     resolver,
		Discovery:    job,
	}

	if withScheduler && config.Discovery.Schedule != "" {
		scheduler, err := app.NewScheduler(log)
		if err != nil {
			history.Close()
			return nil, err
		}
		if err := scheduler.RegisterDiscovery(config.Discovery.Schedule, job); err != nil {
			_ = scheduler.Stop()
			history.Close()
			return nil, err
		}
		c.Scheduler = scheduler
	}

	return c, nil
}

// Shutdown stops background work in dependency order and closes the stores
func (c *Components) Shutdown(ctx context.Context) {
	if c.Scheduler != nil {
		if err := c.Scheduler.Stop(); err != nil {
			c.Logger.Error("Error stopping scheduler", zap.Error(err))
		}
	}
	if err := c.Discovery.Shutdown(ctx); err != nil {
		c.Logger.Error("Error stopping discovery job", zap.Error(err))
	}
	if err := c.Orchestrator.Shutdown(ctx); err != nil {
		c.Logger.Error("Error stopping orchestrator", zap.Error(err))
	}
	if err := c.History.Close(); err != nil {
		c.Logger.Error("Error closing history repository", zap.Error(err))
	}
}

func createDirectories(config *domain.Config) error {
	dirs := []string{
		config.Download.OutputDir,
		config.Download.LogsDir,
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
