package repository

import (
	"context"

	"github.com/timmy/legoreviews/internal/domain"
	"gorm.io/gorm"
)

// RunRepository handles the pipeline_runs ledger.
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new RunRepository.
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run row.
func (r *RunRepository) Create(ctx context.Context, run *domain.PipelineRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Finish stores the final status and counters of a run.
func (r *RunRepository) Finish(ctx context.Context, run *domain.PipelineRun) error {
	return r.db.WithContext(ctx).
		Model(&domain.PipelineRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"status":          run.Status,
			"total_items":     run.TotalItems,
			"processed_items": run.ProcessedItems,
			"skipped_items":   run.SkippedItems,
			"failed_items":    run.FailedItems,
			"finished_at":     run.FinishedAt,
		}).Error
}

// ListRecent returns the most recent runs, newest first.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]domain.PipelineRun, error) {
	var runs []domain.PipelineRun
	query := r.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
