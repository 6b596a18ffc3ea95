package repository

import (
	"context"

	"github.com/timmy/legoreviews/internal/domain"
	"gorm.io/gorm"
)

// VideoRepository handles the video registry. Rows are append-only.
type VideoRepository struct {
	db *gorm.DB
}

// NewVideoRepository creates a new VideoRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *VideoRepository: repository instance bound to db.
func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Create inserts a new video row. The insert commits on its own.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - video: video record to persist.
// Returns:
//   - error: non-nil if the insert fails (including a duplicate key).
func (r *VideoRepository) Create(ctx context.Context, video *domain.Video) error {
	return r.db.WithContext(ctx).Create(video).Error
}

// ExistsByID checks if a video with the given identifier is registered.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - videoID: platform video identifier.
// Returns:
//   - bool: true if a record exists.
//   - error: non-nil if the lookup fails.
func (r *VideoRepository) ExistsByID(ctx context.Context, videoID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Video{}).Where("video_id = ?", videoID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetByID retrieves a video by identifier.
// Returns gorm.ErrRecordNotFound when absent.
func (r *VideoRepository) GetByID(ctx context.Context, videoID string) (*domain.Video, error) {
	var video domain.Video
	if err := r.db.WithContext(ctx).First(&video, "video_id = ?", videoID).Error; err != nil {
		return nil, err
	}
	return &video, nil
}

// ListWithoutTranscript returns registered videos that have no video_details
// row yet. This is the transcript fetch work queue.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum rows; <= 0 means no limit.
// Returns:
//   - []domain.Video: pending videos ordered by identifier.
//   - error: non-nil if the query fails.
func (r *VideoRepository) ListWithoutTranscript(ctx context.Context, limit int) ([]domain.Video, error) {
	query := r.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM video_details d WHERE d.video_id = videos.video_id)").
		Order("video_id")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var videos []domain.Video
	if err := query.Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

// VideoFilter narrows List results.
type VideoFilter struct {
	LegoNumber string
	Uploader   string
	Limit      int
	Offset     int
}

// List returns videos matching filter together with the unpaged total.
func (r *VideoRepository) List(ctx context.Context, filter VideoFilter) ([]domain.Video, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Video{})
	if filter.LegoNumber != "" {
		query = query.Where("lego_number = ?", filter.LegoNumber)
	}
	if filter.Uploader != "" {
		query = query.Where("uploader = ?", filter.Uploader)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("upload_date DESC, video_id")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var videos []domain.Video
	if err := query.Find(&videos).Error; err != nil {
		return nil, 0, err
	}
	return videos, total, nil
}

// CountByLegoNumber returns how many videos reference a catalog entry.
func (r *VideoRepository) CountByLegoNumber(ctx context.Context, number string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Video{}).Where("lego_number = ?", number).Count(&count).Error
	return count, err
}

// Count returns the total number of registered videos.
func (r *VideoRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Video{}).Count(&count).Error
	return count, err
}
