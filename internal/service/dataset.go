package service

import (
	"context"
	"errors"

	"github.com/timmy/legoreviews/internal/domain"
	"github.com/timmy/legoreviews/internal/repository"
	"gorm.io/gorm"
)

var (
	// ErrVideoNotFound is returned when a video id is not in the registry.
	ErrVideoNotFound = errors.New("video not found")
	// ErrSetNotFound is returned when a set number is not in the catalog.
	ErrSetNotFound = errors.New("set not found")
)

// DatasetService serves read-only views of the final dataset.
type DatasetService struct {
	catalogRepo    *repository.CatalogRepository
	videoRepo      *repository.VideoRepository
	transcriptRepo *repository.TranscriptRepository
	runRepo        *repository.RunRepository
}

// NewDatasetService creates a new dataset service.
func NewDatasetService(
	catalogRepo *repository.CatalogRepository,
	videoRepo *repository.VideoRepository,
	transcriptRepo *repository.TranscriptRepository,
	runRepo *repository.RunRepository,
) *DatasetService {
	return &DatasetService{
		catalogRepo:    catalogRepo,
		videoRepo:      videoRepo,
		transcriptRepo: transcriptRepo,
		runRepo:        runRepo,
	}
}

// DatasetStats summarises the three tables and the latest runs.
type DatasetStats struct {
	Sets        int64                        `json:"sets"`
	Videos      int64                        `json:"videos"`
	Transcripts *repository.TranscriptCounts `json:"transcripts"`
	RecentRuns  []domain.PipelineRun         `json:"recent_runs"`
}

// Stats returns dataset counters.
func (s *DatasetService) Stats(ctx context.Context) (*DatasetStats, error) {
	sets, err := s.catalogRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	videos, err := s.videoRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	transcripts, err := s.transcriptRepo.Counts(ctx)
	if err != nil {
		return nil, err
	}
	runs, err := s.runRepo.ListRecent(ctx, 5)
	if err != nil {
		return nil, err
	}
	return &DatasetStats{
		Sets:        sets,
		Videos:      videos,
		Transcripts: transcripts,
		RecentRuns:  runs,
	}, nil
}

// SetListResponse is one page of catalog entries.
type SetListResponse struct {
	Results []domain.CatalogEntry `json:"results"`
	Total   int64                 `json:"total"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}

// ListSets retrieves catalog entries with an optional theme filter.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - theme: theme to filter by; empty means all.
//   - limit: page size, clamped to 1..100 (default 20).
//   - offset: number of records to skip.
//
// Returns:
//   - *SetListResponse: page of entries and the total match count.
//   - error: non-nil if retrieval fails.
func (s *DatasetService) ListSets(ctx context.Context, theme string, limit, offset int) (*SetListResponse, error) {
	limit, offset = clampPage(limit, offset)
	entries, total, err := s.catalogRepo.List(ctx, theme, limit, offset)
	if err != nil {
		return nil, err
	}
	return &SetListResponse{Results: entries, Total: total, Limit: limit, Offset: offset}, nil
}

// SetDetail is one catalog entry with the videos registered for it.
type SetDetail struct {
	domain.CatalogEntry
	VideoCount int64          `json:"video_count"`
	Videos     []domain.Video `json:"videos"`
}

// GetSet returns one catalog entry and up to a page of its videos.
// Returns:
//   - *SetDetail: the entry; Videos holds at most 100 rows, VideoCount all of them.
//   - error: ErrSetNotFound for an unknown number.
func (s *DatasetService) GetSet(ctx context.Context, number string) (*SetDetail, error) {
	entry, err := s.catalogRepo.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSetNotFound
		}
		return nil, err
	}

	count, err := s.videoRepo.CountByLegoNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	videos, _, err := s.videoRepo.List(ctx, repository.VideoFilter{LegoNumber: number, Limit: 100})
	if err != nil {
		return nil, err
	}
	return &SetDetail{CatalogEntry: *entry, VideoCount: count, Videos: videos}, nil
}

// VideoListResponse is one page of video records.
type VideoListResponse struct {
	Results []domain.Video `json:"results"`
	Total   int64          `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

// ListVideos retrieves video records, optionally filtered by set number.
func (s *DatasetService) ListVideos(ctx context.Context, filter repository.VideoFilter) (*VideoListResponse, error) {
	filter.Limit, filter.Offset = clampPage(filter.Limit, filter.Offset)
	videos, total, err := s.videoRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &VideoListResponse{Results: videos, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// VideoDetail is a video with its transcript record, if one exists.
type VideoDetail struct {
	domain.Video
	Details *domain.TranscriptDetail `json:"details,omitempty"`
	Failed  bool                     `json:"transcript_failed"`
}

// GetVideo returns one video with its transcript record.
// Returns:
//   - *VideoDetail: the video; Details is nil when no transcript was fetched.
//   - error: ErrVideoNotFound for an unknown id.
func (s *DatasetService) GetVideo(ctx context.Context, videoID string) (*VideoDetail, error) {
	video, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}

	detail := &VideoDetail{Video: *video}
	transcript, err := s.transcriptRepo.GetByVideoID(ctx, videoID)
	switch {
	case err == nil:
		detail.Details = transcript
		detail.Failed = transcript.IsSentinel()
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, err
	}
	return detail, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
