package repository

import (
	"context"

	"github.com/timmy/legoreviews/internal/domain"
	"gorm.io/gorm"
)

// TranscriptRepository handles video_details rows.
type TranscriptRepository struct {
	db *gorm.DB
}

// NewTranscriptRepository creates a new TranscriptRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *TranscriptRepository: repository instance bound to db.
func NewTranscriptRepository(db *gorm.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// Create inserts the ingestion columns of a transcript record. Classification
// columns are left NULL for the classifier.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - detail: transcript record to persist.
// Returns:
//   - error: non-nil if the insert fails (including a duplicate key).
func (r *TranscriptRepository) Create(ctx context.Context, detail *domain.TranscriptDetail) error {
	return r.db.WithContext(ctx).
		Select("video_id", "description", "transcript").
		Create(detail).Error
}

// ExistsByVideoID checks if a transcript record exists for the video.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - videoID: platform video identifier.
// Returns:
//   - bool: true if a record exists, sentinel or not.
//   - error: non-nil if the lookup fails.
func (r *TranscriptRepository) ExistsByVideoID(ctx context.Context, videoID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.TranscriptDetail{}).Where("video_id = ?", videoID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetByVideoID retrieves the transcript record of a video.
// Returns gorm.ErrRecordNotFound when absent.
func (r *TranscriptRepository) GetByVideoID(ctx context.Context, videoID string) (*domain.TranscriptDetail, error) {
	var detail domain.TranscriptDetail
	if err := r.db.WithContext(ctx).First(&detail, "video_id = ?", videoID).Error; err != nil {
		return nil, err
	}
	return &detail, nil
}

// UnclassifiedTranscript is a transcript awaiting classification.
type UnclassifiedTranscript struct {
	VideoID    string
	Title      string
	Transcript string
}

// ListUnclassified returns transcripts with no review category yet.
// Sentinel rows are excluded since there is nothing to classify.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum rows; <= 0 means no limit.
// Returns:
//   - []UnclassifiedTranscript: pending transcripts ordered by video id.
//   - error: non-nil if the query fails.
func (r *TranscriptRepository) ListUnclassified(ctx context.Context, limit int) ([]UnclassifiedTranscript, error) {
	query := r.db.WithContext(ctx).
		Table("video_details AS d").
		Select("d.video_id AS video_id, v.title AS title, d.transcript AS transcript").
		Joins("JOIN videos v ON v.video_id = d.video_id").
		Where("d.review_category IS NULL AND d.transcript IS NOT NULL").
		Where("d.transcript <> ?", domain.TranscriptDownloadFailed).
		Where("d.transcript NOT LIKE ? AND d.transcript NOT LIKE ?",
			domain.DownloadErrorPrefix+"%", domain.GeneralErrorPrefix+"%").
		Order("d.video_id")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []UnclassifiedTranscript
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateClassification writes the classifier-owned columns of one record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - videoID: platform video identifier.
//   - c: validated classification.
// Returns:
//   - error: non-nil if the update fails or no row matched.
func (r *TranscriptRepository) UpdateClassification(ctx context.Context, videoID string, c *domain.Classification) error {
	result := r.db.WithContext(ctx).
		Model(&domain.TranscriptDetail{}).
		Where("video_id = ?", videoID).
		Updates(map[string]interface{}{
			"review_category":        string(c.Category),
			"review_rationale":       c.Rationale,
			"confidence_score":       c.ConfidenceScore,
			"sponsored":              c.Sponsored,
			"transcript_word_count":  c.WordCount,
			"transcript_char_length": c.CharLength,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// TranscriptCounts summarises the video_details table.
type TranscriptCounts struct {
	Total      int64 `json:"total"`
	Sentinels  int64 `json:"sentinels"`
	Classified int64 `json:"classified"`
	Sponsored  int64 `json:"sponsored"`
}

// Counts returns aggregate counts over video_details.
func (r *TranscriptRepository) Counts(ctx context.Context) (*TranscriptCounts, error) {
	db := r.db.WithContext(ctx)
	var c TranscriptCounts

	if err := db.Model(&domain.TranscriptDetail{}).Count(&c.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&domain.TranscriptDetail{}).
		Where("transcript = ? OR transcript LIKE ? OR transcript LIKE ?",
			domain.TranscriptDownloadFailed, domain.DownloadErrorPrefix+"%", domain.GeneralErrorPrefix+"%").
		Count(&c.Sentinels).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&domain.TranscriptDetail{}).Where("review_category IS NOT NULL").Count(&c.Classified).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&domain.TranscriptDetail{}).Where("sponsored = ?", true).Count(&c.Sponsored).Error; err != nil {
		return nil, err
	}
	return &c, nil
}
