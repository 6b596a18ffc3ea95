package source

import (
	"context"

	"github.com/timmy/legoreviews/internal/domain"
)

// CatalogSource yields catalog entries to seed the legosets table.
type CatalogSource interface {
	// GetSourceID returns the unique identifier for this source.
	GetSourceID() string

	// FetchBatch fetches a batch of catalog entries starting from the given cursor.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - cursor: pagination cursor or empty for first page.
	//   - limit: maximum number of entries to fetch.
	// Returns:
	//   - entries: batch of catalog entries.
	//   - nextCursor: cursor for the next batch or empty if done.
	//   - err: non-nil if reading fails; header mismatches fail on the first call.
	FetchBatch(ctx context.Context, cursor string, limit int) (entries []domain.CatalogEntry, nextCursor string, err error)
}
