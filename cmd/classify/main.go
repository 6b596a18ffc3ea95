package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/legoreviews/internal/config"
	"github.com/timmy/legoreviews/internal/logger"
	"github.com/timmy/legoreviews/internal/repository"
	"github.com/timmy/legoreviews/internal/service"
)

func main() {
	appLogger := logger.NewFromEnv(logger.LoadFromEnvFor("legoreviews-classify"))
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	configPath := flag.String("config", "", "Path to config file")
	limit := flag.Int("limit", 0, "Maximum number of transcripts to classify (0 means the configured batch size)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	defer repository.Close(db)

	classifier := service.NewClassifierService(&service.ClassifierConfig{
		Provider: cfg.Classifier.Provider,
		Model:    cfg.Classifier.Model,
		APIKey:   cfg.Classifier.APIKey,
		BaseURL:  cfg.Classifier.BaseURL,
		Timeout:  cfg.Classifier.Timeout,
	})
	classification := service.NewClassificationService(
		repository.NewTranscriptRepository(db),
		classifier,
		&service.ClassificationConfig{
			BatchSize:          cfg.Classifier.BatchSize,
			MinTranscriptChars: cfg.Classifier.MinTranscriptChars,
		},
	)
	tracker := service.NewRunTracker(repository.NewRunRepository(db))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	appLogger.WithFields(logger.Fields{
		"provider": classifier.GetProvider(),
		"model":    classifier.GetModel(),
		"limit":    *limit,
	}).Info("Starting classification")

	stats, err := tracker.Track(ctx, service.StageClassify, func(ctx context.Context) (*service.IngestStats, error) {
		return classification.Run(ctx, *limit)
	})
	if stats != nil {
		appLogger.WithFields(logger.Fields{
			"total":                stats.TotalItems,
			"processed":            stats.ProcessedItems,
			"failed":               stats.FailedItems,
			logger.FieldDurationMs: stats.Duration().Milliseconds(),
		}).Info("Classification completed")
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			appLogger.WithError(err).Warn("Classification cancelled")
			return
		}
		appLogger.WithError(err).Fatal("Classification failed")
	}
}
