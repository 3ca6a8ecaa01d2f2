package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/music-harvest-go/api"
	"github.com/yourusername/music-harvest-go/api/handlers"
	"github.com/yourusername/music-harvest-go/internal/app"
	"github.com/yourusername/music-harvest-go/internal/bootstrap"
)

const shutdownTimeout = 30 * time.Second

var configPath = flag.String("config", "", "Path to config file (default: ./configs, ~/.music-harvest, /etc/music-harvest)")

func main() {
	flag.Parse()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, eventLogger, err := bootstrap.NewLoggers(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	defer eventLogger.Close()

	log.Info("Starting music harvest server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("plan_mode", string(config.Download.PlanMode)),
		zap.String("discovery_schedule", config.Discovery.Schedule))

	components, err := bootstrap.Build(config, log, eventLogger, true)
	if err != nil {
		log.Fatal("Failed to initialize components", zap.Error(err))
	}

	if !components.CredentialsReady() {
		log.Warn("Catalog client credentials not configured, catalog requests will fail")
	}
	if !components.Cookies.Exists() {
		log.Warn("Cookie file not found, downloads run without it", zap.String("path", components.Cookies.Path()))
	}

	deps := api.Dependencies{
		Resolver:         components.Resolver,
		Batches:          components.Orchestrator,
		Status:           components.Status,
		History:          components.History,
		Cookies:          components.Cookies,
		Discovery:        components.Discovery,
		Seeder:           components.Engine,
		CredentialsReady: components.CredentialsReady(),
		LogsDir:          config.Download.LogsDir,
		Logger:           log,
		EventLogger:      eventLogger,
	}
	if components.Scheduler != nil {
		deps.Scheduler = components.Scheduler
		components.Scheduler.Start()
	}

	router := api.SetupRouter(deps)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	components.Shutdown(shutdownCtx)

	log.Info("Server exited")
}
