package service

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/legoreviews/internal/domain"
	"github.com/timmy/legoreviews/internal/logger"
	"github.com/timmy/legoreviews/internal/platform"
	"github.com/timmy/legoreviews/internal/repository"
)

// CandidateSearchConfig holds configuration for the candidate search stage.
type CandidateSearchConfig struct {
	QueryTemplate string // fmt template receiving the set number
	MaxResults    int
	PackagingType string // only catalog entries with this packaging are searched
	StopOnError   bool   // abort the pass on the first non-premiere search error
	Rules         Rules
}

// CandidateSearchService turns catalog entries without videos into Video
// Records by searching the platform and applying the admissibility rules.
type CandidateSearchService struct {
	catalogRepo *repository.CatalogRepository
	videoRepo   *repository.VideoRepository
	searcher    platform.Searcher
	cfg         CandidateSearchConfig
}

// NewCandidateSearchService creates a new candidate search service.
// Parameters:
//   - catalogRepo: read access to catalog entries.
//   - videoRepo: the video registry written by this stage.
//   - searcher: platform search capability.
//   - cfg: query template, result bound and admissibility rules.
//
// Returns:
//   - *CandidateSearchService: initialized service.
func NewCandidateSearchService(
	catalogRepo *repository.CatalogRepository,
	videoRepo *repository.VideoRepository,
	searcher platform.Searcher,
	cfg *CandidateSearchConfig,
) *CandidateSearchService {
	c := *cfg
	if c.QueryTemplate == "" {
		c.QueryTemplate = "LEGO %s review"
	}
	if c.MaxResults <= 0 {
		c.MaxResults = 50
	}
	return &CandidateSearchService{
		catalogRepo: catalogRepo,
		videoRepo:   videoRepo,
		searcher:    searcher,
		cfg:         c,
	}
}

// Query builds the search query for a set number.
func (s *CandidateSearchService) Query(number string) string {
	return fmt.Sprintf(s.cfg.QueryTemplate, number)
}

// SearchOutcome summarises one catalog entry's search.
type SearchOutcome struct {
	Results         int
	Admitted        int
	Rejected        int
	Duplicates      int
	PremiereSkipped bool
}

// SearchEntry searches the platform for one catalog entry and registers every
// admissible result that is not already in the registry.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - entry: catalog entry to search for.
//
// Returns:
//   - *SearchOutcome: per-entry counters.
//   - error: non-nil if the search fails for a reason other than a premiere,
//     or a registry write fails.
func (s *CandidateSearchService) SearchEntry(ctx context.Context, entry domain.CatalogEntry) (*SearchOutcome, error) {
	query := s.Query(entry.Number)
	outcome := &SearchOutcome{}

	results, err := s.searcher.Search(ctx, query, s.cfg.MaxResults)
	if err != nil {
		if platform.IsKind(err, platform.KindPremierePending) {
			logger.With(logger.Fields{
				logger.FieldDecision:  "skipped",
				logger.FieldErrorKind: string(platform.KindPremierePending),
			}).Warn(ctx, "Premiere in results for %q, skipping set for this run", query)
			outcome.PremiereSkipped = true
			return outcome, nil
		}
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	outcome.Results = len(results)

	for i := range results {
		result := &results[i]
		log := logger.With(logger.Fields{logger.FieldVideoID: result.ID})

		if rule := s.cfg.Rules.Evaluate(result); rule != "" {
			outcome.Rejected++
			log.WithDecision("rejected").With(logger.Fields{logger.FieldReason: rule}).
				Debug(ctx, "Rejected %q", result.Title)
			continue
		}

		exists, err := s.videoRepo.ExistsByID(ctx, result.ID)
		if err != nil {
			return outcome, fmt.Errorf("check video %s: %w", result.ID, err)
		}
		if exists {
			outcome.Duplicates++
			log.WithDecision("duplicate").Debug(ctx, "Video already registered")
			continue
		}

		video := newVideoRecord(result, entry.Number)
		if err := s.videoRepo.Create(ctx, video); err != nil {
			return outcome, fmt.Errorf("register video %s: %w", result.ID, err)
		}
		outcome.Admitted++
		log.WithDecision("admitted").Info(ctx, "Registered %q", video.Title)
	}

	return outcome, nil
}

// newVideoRecord maps an admitted search entry onto a Video Record.
func newVideoRecord(e *platform.SearchEntry, legoNumber string) *domain.Video {
	duration := 0
	if e.Duration != nil {
		duration = *e.Duration
	}
	return &domain.Video{
		VideoID:             e.ID,
		Title:               e.Title,
		Uploader:            e.Uploader,
		UploadDate:          e.UploadDate,
		Views:               e.ViewCount,
		Duration:            duration,
		TranscriptAvailable: len(e.AutomaticCaptions) > 0,
		Languages:           e.AutomaticCaptions.JoinedLanguages(),
		LegoNumber:          legoNumber,
	}
}

// Run searches every catalog entry of the configured packaging that has no
// Video Record yet. Entries are processed one at a time; a failed entry is
// counted and the pass moves on unless StopOnError is set.
// Parameters:
//   - ctx: context for cancellation; cancellation stops between entries.
//   - limit: maximum number of catalog entries to search; <= 0 means all.
//
// Returns:
//   - *IngestStats: per-entry counters.
//   - error: the first search error when StopOnError is set, a catalog read
//     error, or ctx.Err() when cancellation stopped the run early.
func (s *CandidateSearchService) Run(ctx context.Context, limit int) (*IngestStats, error) {
	stats := &IngestStats{StartTime: time.Now()}
	defer func() { stats.EndTime = time.Now() }()

	entries, err := s.catalogRepo.ListWithoutVideos(ctx, s.cfg.PackagingType, limit)
	if err != nil {
		return stats, fmt.Errorf("list catalog entries without videos: %w", err)
	}
	stats.TotalItems = int64(len(entries))
	logger.With(logger.Fields{logger.FieldCount: len(entries)}).
		Info(ctx, "Searching catalog entries without videos")

	for _, entry := range entries {
		if ctx.Err() != nil {
			logger.CtxWarn(ctx, "Candidate search interrupted")
			return stats, ctx.Err()
		}

		entryCtx := logger.WithField(ctx, logger.FieldSetNumber, entry.Number)
		start := time.Now()

		outcome, err := s.SearchEntry(entryCtx, entry)
		if outcome != nil {
			stats.CreatedRecords += int64(outcome.Admitted)
		}
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.FailedItems++
			logger.FromContext(entryCtx).WithError(err).
				WithField(logger.FieldErrorKind, string(platform.KindOf(err))).
				Error("Candidate search failed")
			if s.cfg.StopOnError {
				return stats, err
			}
			continue
		}
		if outcome.PremiereSkipped {
			stats.SkippedItems++
			continue
		}

		stats.ProcessedItems++
		logger.With(logger.Fields{
			"results":    outcome.Results,
			"admitted":   outcome.Admitted,
			"rejected":   outcome.Rejected,
			"duplicates": outcome.Duplicates,
		}).WithDuration(time.Since(start).Milliseconds()).Info(entryCtx, "Searched set")
	}

	return stats, nil
}
