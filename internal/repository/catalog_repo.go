package repository

import (
	"context"
	"strings"

	"github.com/timmy/legoreviews/internal/domain"
	"gorm.io/gorm"
)

// CatalogRepository handles legosets rows. The pipeline only reads them;
// Create exists for the catalog loader.
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new CatalogRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *CatalogRepository: repository instance bound to db.
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Create inserts a new catalog entry.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - entry: catalog entry to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *CatalogRepository) Create(ctx context.Context, entry *domain.CatalogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ExistsByNumber checks if a catalog entry with the given set number exists.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - number: set number.
// Returns:
//   - bool: true if a record exists.
//   - error: non-nil if the lookup fails.
func (r *CatalogRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.CatalogEntry{}).Where("number = ?", number).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetByNumber retrieves a catalog entry by set number.
// Returns gorm.ErrRecordNotFound when absent.
func (r *CatalogRepository) GetByNumber(ctx context.Context, number string) (*domain.CatalogEntry, error) {
	var entry domain.CatalogEntry
	if err := r.db.WithContext(ctx).First(&entry, "number = ?", number).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListWithoutVideos returns entries of the given packaging type that have no
// video rows yet. This is the candidate search work queue.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - packagingType: packaging classification, compared case-insensitively.
//   - limit: maximum rows; <= 0 means no limit.
// Returns:
//   - []domain.CatalogEntry: pending entries ordered by number.
//   - error: non-nil if the query fails.
func (r *CatalogRepository) ListWithoutVideos(ctx context.Context, packagingType string, limit int) ([]domain.CatalogEntry, error) {
	query := r.db.WithContext(ctx).
		Where("LOWER(packaging_type) = ?", strings.ToLower(packagingType)).
		Where("NOT EXISTS (SELECT 1 FROM videos v WHERE v.lego_number = legosets.number)").
		Order("number")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []domain.CatalogEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// List returns catalog entries ordered by number, optionally filtered by theme.
func (r *CatalogRepository) List(ctx context.Context, theme string, limit, offset int) ([]domain.CatalogEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.CatalogEntry{})
	if theme != "" {
		query = query.Where("theme = ?", theme)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("number")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}

	var entries []domain.CatalogEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Count returns the total number of catalog entries.
func (r *CatalogRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.CatalogEntry{}).Count(&count).Error
	return count, err
}
