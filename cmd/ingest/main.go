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
	"github.com/timmy/legoreviews/internal/platform/youtube"
	"github.com/timmy/legoreviews/internal/repository"
	"github.com/timmy/legoreviews/internal/service"
	"github.com/timmy/legoreviews/internal/source"
	"github.com/timmy/legoreviews/internal/source/csvcatalog"
	"github.com/timmy/legoreviews/internal/storage"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.NewFromEnv(logger.LoadFromEnvFor("legoreviews-ingest"))
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	catalogPath := flag.String("catalog", "", "Path to the catalog CSV (required for the catalog stage)")
	stageFlag := flag.String("stage", "all", "Stage to run: catalog, search, transcripts or all")
	limit := flag.Int("limit", 0, "Maximum number of items per stage (0 means all)")
	migrateOnly := flag.Bool("migrate-only", false, "Apply schema migrations and exit")
	flag.Parse()

	stages, err := service.ParseStages(*stageFlag)
	if err != nil {
		appLogger.WithError(err).Fatal("Invalid stage")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if *migrateOnly {
		cfg.Database.AutoMigrate = true
	}

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	defer repository.Close(db)

	if *migrateOnly {
		appLogger.Info("Migrations applied, exiting")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize repositories
	catalogRepo := repository.NewCatalogRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	transcriptRepo := repository.NewTranscriptRepository(db)
	runRepo := repository.NewRunRepository(db)

	yt := youtube.New(&youtube.Config{
		BaseURL:         cfg.YouTube.BaseURL,
		RequestInterval: cfg.YouTube.RequestInterval,
		Timeout:         cfg.YouTube.Timeout,
		HL:              cfg.YouTube.HL,
		GL:              cfg.YouTube.GL,
	})

	// The raw caption archive is optional
	var archive service.CaptionArchiver
	captionArchive, err := storage.OpenCaptionArchive(ctx, &cfg.Storage)
	switch {
	case err == nil:
		archive = captionArchive
		appLogger.WithField("bucket", cfg.Storage.Bucket).Info("Caption archive enabled")
	case errors.Is(err, storage.ErrArchiveDisabled):
	default:
		appLogger.WithError(err).Fatal("Failed to open caption archive")
	}

	// Initialize services
	catalogService := service.NewCatalogService(catalogRepo, 0)

	searchService := service.NewCandidateSearchService(catalogRepo, videoRepo, yt, &service.CandidateSearchConfig{
		QueryTemplate: cfg.YouTube.QueryTemplate,
		MaxResults:    cfg.YouTube.SearchMaxResults,
		PackagingType: cfg.Pipeline.PackagingType,
		StopOnError:   cfg.Pipeline.StopOnSearchError,
		Rules: service.NewAdmissionRules(&service.AdmissionConfig{
			MinViews:         cfg.Pipeline.MinViews,
			MinDuration:      cfg.Pipeline.MinDuration,
			TitleToken:       cfg.Pipeline.TitleToken,
			CaptionLanguages: cfg.YouTube.CaptionLanguages,
		}),
	})

	transcriptService := service.NewTranscriptService(videoRepo, transcriptRepo, yt, yt, archive, &service.TranscriptConfig{
		Language: cfg.YouTube.TranscriptLanguage,
	})

	pipeline := service.NewPipeline(catalogService, searchService, transcriptService, service.NewRunTracker(runRepo))

	var catalog source.CatalogSource
	if *catalogPath != "" {
		catalog = csvcatalog.NewAdapter(*catalogPath, 0)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	appLogger.WithFields(logger.Fields{
		"stage":   *stageFlag,
		"limit":   *limit,
		"catalog": *catalogPath,
	}).Info("Starting pipeline")

	results, runErr := pipeline.Run(ctx, &service.PipelineOptions{
		Stages:  stages,
		Limit:   *limit,
		Catalog: catalog,
	})

	for _, stage := range stages {
		stats, ok := results[stage]
		if !ok || stats == nil {
			continue
		}
		appLogger.WithFields(logger.Fields{
			logger.FieldStage:      string(stage),
			"total":                stats.TotalItems,
			"processed":            stats.ProcessedItems,
			"skipped":              stats.SkippedItems,
			"failed":               stats.FailedItems,
			"created":              stats.CreatedRecords,
			logger.FieldDurationMs: stats.Duration().Milliseconds(),
		}).Info("Stage completed")
	}

	if runErr != nil {
		if ctx.Err() != nil {
			appLogger.WithError(runErr).Warn("Pipeline cancelled")
			return
		}
		appLogger.WithError(runErr).Fatal("Pipeline failed")
	}
	appLogger.Info("Pipeline finished")
}
