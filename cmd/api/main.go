package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/legoreviews/internal/api"
	"github.com/timmy/legoreviews/internal/config"
	"github.com/timmy/legoreviews/internal/logger"
	"github.com/timmy/legoreviews/internal/repository"
	"github.com/timmy/legoreviews/internal/service"
)

func main() {
	appLogger := logger.NewFromEnv(logger.LoadFromEnvFor("legoreviews-api"))
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// The API only reads; schema changes belong to the ingest binary.
	cfg.Database.AutoMigrate = false
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	defer repository.Close(db)

	dataset := service.NewDatasetService(
		repository.NewCatalogRepository(db),
		repository.NewVideoRepository(db),
		repository.NewTranscriptRepository(db),
		repository.NewRunRepository(db),
	)

	router := api.SetupRouter(db, dataset, &cfg.Server, appLogger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
