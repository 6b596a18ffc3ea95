package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/legoreviews/internal/domain"
	"github.com/timmy/legoreviews/internal/logger"
	"github.com/timmy/legoreviews/internal/repository"
	"github.com/timmy/legoreviews/internal/source"
)

// IngestStats holds statistics for one stage run.
type IngestStats struct {
	TotalItems     int64
	ProcessedItems int64
	SkippedItems   int64
	FailedItems    int64
	CreatedRecords int64
	StartTime      time.Time
	EndTime        time.Time
}

// Duration returns the wall time of the run.
func (s *IngestStats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Stage names a pipeline stage.
type Stage string

const (
	StageCatalog     Stage = "catalog"
	StageSearch      Stage = "search"
	StageTranscripts Stage = "transcripts"
	StageClassify    Stage = "classify"
)

// ParseStages expands a -stage flag value. "all" selects catalog, search and
// transcripts in pipeline order.
func ParseStages(value string) ([]Stage, error) {
	switch value {
	case "", "all":
		return []Stage{StageCatalog, StageSearch, StageTranscripts}, nil
	case string(StageCatalog), string(StageSearch), string(StageTranscripts):
		return []Stage{Stage(value)}, nil
	default:
		return nil, fmt.Errorf("unknown stage %q", value)
	}
}

// RunTracker records each stage invocation in the pipeline_runs ledger and
// tags the context logger with its run id.
type RunTracker struct {
	runs *repository.RunRepository
}

// NewRunTracker creates a tracker; a nil repository disables the ledger.
func NewRunTracker(runs *repository.RunRepository) *RunTracker {
	return &RunTracker{runs: runs}
}

// Track runs fn as one ledger entry for stage.
// Parameters:
//   - ctx: parent context.
//   - stage: stage being run.
//   - fn: stage body; receives a context carrying run_id and stage fields.
//
// Returns:
//   - *IngestStats: stats returned by fn.
//   - error: fn's error, or a ledger write error.
func (t *RunTracker) Track(ctx context.Context, stage Stage, fn func(ctx context.Context) (*IngestStats, error)) (*IngestStats, error) {
	run := &domain.PipelineRun{
		ID:        uuid.New().String(),
		Stage:     string(stage),
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	ctx = logger.SetRunID(ctx, run.ID)
	ctx = logger.SetStage(ctx, string(stage))

	if t.runs != nil {
		if err := t.runs.Create(ctx, run); err != nil {
			return nil, fmt.Errorf("record run start: %w", err)
		}
	}

	stats, err := fn(ctx)
	if stats == nil {
		stats = &IngestStats{StartTime: run.StartedAt, EndTime: time.Now()}
	}

	finished := time.Now().UTC()
	run.FinishedAt = &finished
	run.TotalItems = stats.TotalItems
	run.ProcessedItems = stats.ProcessedItems
	run.SkippedItems = stats.SkippedItems
	run.FailedItems = stats.FailedItems
	switch {
	case errors.Is(err, context.Canceled):
		run.Status = domain.RunStatusCancelled
	case err != nil:
		run.Status = domain.RunStatusFailed
	default:
		run.Status = domain.RunStatusCompleted
	}

	if t.runs != nil {
		// The ledger row is closed even when ctx was cancelled.
		if ferr := t.runs.Finish(context.WithoutCancel(ctx), run); ferr != nil {
			logger.CtxError(ctx, "Failed to record run finish: %v", ferr)
		}
	}

	logger.With(logger.Fields{
		logger.FieldStatus: string(run.Status),
		"total":            stats.TotalItems,
		"processed":        stats.ProcessedItems,
		"skipped":          stats.SkippedItems,
		"failed":           stats.FailedItems,
		"created":          stats.CreatedRecords,
	}).WithDuration(stats.Duration().Milliseconds()).Info(ctx, "Stage finished")

	return stats, err
}

// Pipeline wires the ingestion stages in order: catalog, candidate search,
// transcripts. Each stage only processes rows missing downstream, so the
// pipeline can be run repeatedly.
type Pipeline struct {
	catalog     *CatalogService
	search      *CandidateSearchService
	transcripts *TranscriptService
	tracker     *RunTracker
}

// NewPipeline creates a pipeline. Any stage service may be nil when that
// stage is never requested.
func NewPipeline(
	catalog *CatalogService,
	search *CandidateSearchService,
	transcripts *TranscriptService,
	tracker *RunTracker,
) *Pipeline {
	if tracker == nil {
		tracker = NewRunTracker(nil)
	}
	return &Pipeline{
		catalog:     catalog,
		search:      search,
		transcripts: transcripts,
		tracker:     tracker,
	}
}

// PipelineOptions selects what a pipeline run does.
type PipelineOptions struct {
	Stages  []Stage
	Limit   int                  // per-stage item limit; <= 0 means all
	Catalog source.CatalogSource // required when StageCatalog is selected
}

// Run executes the selected stages in order and stops at the first stage that
// returns an error.
// Parameters:
//   - ctx: context for cancellation; stages stop between items.
//   - opts: stages, limit and catalog source.
//
// Returns:
//   - map[Stage]*IngestStats: stats of every stage that ran.
//   - error: first stage error.
func (p *Pipeline) Run(ctx context.Context, opts *PipelineOptions) (map[Stage]*IngestStats, error) {
	results := make(map[Stage]*IngestStats, len(opts.Stages))

	for _, stage := range opts.Stages {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		var fn func(ctx context.Context) (*IngestStats, error)
		switch stage {
		case StageCatalog:
			if opts.Catalog == nil {
				logger.CtxWarn(ctx, "No catalog source given, skipping catalog stage")
				continue
			}
			if p.catalog == nil {
				return results, fmt.Errorf("stage %s not configured", stage)
			}
			fn = func(ctx context.Context) (*IngestStats, error) {
				return p.catalog.Load(ctx, opts.Catalog)
			}
		case StageSearch:
			if p.search == nil {
				return results, fmt.Errorf("stage %s not configured", stage)
			}
			fn = func(ctx context.Context) (*IngestStats, error) {
				return p.search.Run(ctx, opts.Limit)
			}
		case StageTranscripts:
			if p.transcripts == nil {
				return results, fmt.Errorf("stage %s not configured", stage)
			}
			fn = func(ctx context.Context) (*IngestStats, error) {
				return p.transcripts.Run(ctx, opts.Limit)
			}
		default:
			return results, fmt.Errorf("unknown stage %q", stage)
		}

		stats, err := p.tracker.Track(ctx, stage, fn)
		results[stage] = stats
		if err != nil {
			return results, fmt.Errorf("stage %s: %w", stage, err)
		}
	}

	return results, nil
}
