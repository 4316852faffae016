// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/intentstack/internal/application/container"
	"github.com/AtRiskMedia/intentstack/internal/application/retention"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/intentstack/internal/presentation/http/server"
	"github.com/AtRiskMedia/intentstack/pkg/config"
)

// NewLogger builds the channeled logger from config.
func NewLogger() (*logging.ChanneledLogger, error) {
	cfg := logging.DefaultLoggerConfig()
	cfg.OutputToFile = config.LogToFile
	cfg.LogDirectory = config.LogDirectory
	cfg.JSONFormat = config.LogJSONFormat
	if os.Getenv("GIN_MODE") != "release" {
		cfg.DefaultLevel = slog.LevelDebug
	}
	return logging.NewChanneledLogger(cfg)
}

// Initialize performs the startup sequence and blocks until a shutdown signal
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("\033[32mintentstack\033[97m persona scoring and decision pipeline\033[0m")

	// Step 1: Logging
	logger, err := NewLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()
	logger.Startup().Info("Channeled logging initialized", "directory", config.LogDirectory, "toFile", config.LogToFile)

	// Step 2: Dependency injection container (database, clients, services)
	stepStart := time.Now()
	appContainer, err := container.NewContainer(ctx, logger)
	if err != nil {
		logger.LogStartupPhase("container", time.Since(stepStart), false)
		return fmt.Errorf("failed to build container: %w", err)
	}
	logger.LogStartupPhase("container", time.Since(stepStart), true)
	logger.Startup().Info("Pipeline services ready",
		"remoteDatabase", appContainer.DB.IsRemote(),
		"redisScores", appContainer.Redis != nil,
		"aiConfigured", appContainer.AIClient.Configured(),
		"knowledgeCapabilities", len(appContainer.Knowledge.Capabilities()))

	// Step 3: Action hub for live UI actions
	go appContainer.ActionHub.Run(ctx)
	logger.Startup().Info("Action hub started")

	go retention.NewWorker(appContainer.EventService, retention.NewConfig(), logger).Start(ctx)

	// Step 4: HTTP server
	stepStart = time.Now()
	httpServer := server.New(config.Port, appContainer)
	logger.LogStartupPhase("http_server", time.Since(stepStart), true)

	// Step 5: Graceful shutdown
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+config.Port)
		serverErr <- httpServer.Start()
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", config.Port)

	select {
	case <-gracefulShutdown:
		logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
	case err := <-serverErr:
		if err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}

	shutdownStart := time.Now()
	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	logger.Shutdown().Info("Closing container...")
	if err := appContainer.Close(); err != nil {
		logger.Shutdown().Error("Error closing container", "error", err.Error())
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
