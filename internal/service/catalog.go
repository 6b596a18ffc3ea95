package service

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/legoreviews/internal/logger"
	"github.com/timmy/legoreviews/internal/repository"
	"github.com/timmy/legoreviews/internal/source"
)

// CatalogService seeds the catalog table from a catalog source.
type CatalogService struct {
	repo      *repository.CatalogRepository
	batchSize int
}

// NewCatalogService creates a new catalog service.
// Parameters:
//   - repo: catalog repository.
//   - batchSize: entries requested per FetchBatch call; <= 0 uses 500.
//
// Returns:
//   - *CatalogService: initialized service.
func NewCatalogService(repo *repository.CatalogRepository, batchSize int) *CatalogService {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &CatalogService{repo: repo, batchSize: batchSize}
}

// Load inserts every entry of src whose number is not already present.
// Existing entries are never updated.
// Parameters:
//   - ctx: context for cancellation; cancellation stops between entries.
//   - src: catalog source.
//
// Returns:
//   - *IngestStats: processed counts inserted entries, skipped counts existing ones.
//   - error: non-nil if the source cannot be read (including a header
//     mismatch, reported before any insert) or an insert fails.
func (s *CatalogService) Load(ctx context.Context, src source.CatalogSource) (*IngestStats, error) {
	stats := &IngestStats{StartTime: time.Now()}
	defer func() { stats.EndTime = time.Now() }()

	ctx = logger.WithField(ctx, "source", src.GetSourceID())
	logger.CtxInfo(ctx, "Loading catalog")

	cursor := ""
	for {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		entries, next, err := src.FetchBatch(ctx, cursor, s.batchSize)
		if err != nil {
			return stats, fmt.Errorf("read catalog: %w", err)
		}
		stats.TotalItems += int64(len(entries))

		for i := range entries {
			entry := &entries[i]
			exists, err := s.repo.ExistsByNumber(ctx, entry.Number)
			if err != nil {
				return stats, fmt.Errorf("check catalog entry %s: %w", entry.Number, err)
			}
			if exists {
				stats.SkippedItems++
				continue
			}
			if err := s.repo.Create(ctx, entry); err != nil {
				return stats, fmt.Errorf("insert catalog entry %s: %w", entry.Number, err)
			}
			stats.ProcessedItems++
			stats.CreatedRecords++
		}

		if next == "" || len(entries) == 0 {
			break
		}
		cursor = next
	}

	logger.With(logger.Fields{
		"inserted": stats.ProcessedItems,
		"existing": stats.SkippedItems,
	}).Info(ctx, "Catalog loaded")
	return stats, nil
}
