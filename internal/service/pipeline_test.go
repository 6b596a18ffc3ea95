package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/legoreviews/internal/domain"
	"github.com/timmy/legoreviews/internal/logger"
	"github.com/timmy/legoreviews/internal/platform"
	"github.com/timmy/legoreviews/internal/source/csvcatalog"
)

func TestParseStages(t *testing.T) {
	stages, err := ParseStages("all")
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageCatalog, StageSearch, StageTranscripts}, stages)

	stages, err = ParseStages("search")
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageSearch}, stages)

	_, err = ParseStages("render")
	assert.Error(t, err)
}

func TestRunTracker_RecordsRun(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	tracker := NewRunTracker(store.runs)

	var seenRunID string
	stats, err := tracker.Track(ctx, StageSearch, func(ctx context.Context) (*IngestStats, error) {
		seenRunID = logger.GetRunID(ctx)
		return &IngestStats{TotalItems: 3, ProcessedItems: 2, SkippedItems: 1}, nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalItems)

	runs, err := store.runs.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, seenRunID, runs[0].ID)
	assert.Equal(t, "search", runs[0].Stage)
	assert.Equal(t, domain.RunStatusCompleted, runs[0].Status)
	assert.EqualValues(t, 2, runs[0].ProcessedItems)
	assert.EqualValues(t, 1, runs[0].SkippedItems)
	assert.NotNil(t, runs[0].FinishedAt)
}

func TestRunTracker_FailedAndCancelled(t *testing.T) {
	store := newTestStore(t)
	tracker := NewRunTracker(store.runs)

	_, err := tracker.Track(context.Background(), StageTranscripts, func(ctx context.Context) (*IngestStats, error) {
		return nil, errors.New("database is locked")
	})
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	_, err = tracker.Track(ctx, StageSearch, func(ctx context.Context) (*IngestStats, error) {
		cancel()
		return &IngestStats{}, ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)

	// A signal that lands after every item was handled does not make the
	// stage cancelled.
	lateCtx, lateCancel := context.WithCancel(context.Background())
	_, err = tracker.Track(lateCtx, StageCatalog, func(ctx context.Context) (*IngestStats, error) {
		lateCancel()
		return &IngestStats{ProcessedItems: 2}, nil
	})
	require.NoError(t, err)

	runs, err := store.runs.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	statuses := map[string]domain.RunStatus{}
	for _, r := range runs {
		statuses[r.Stage] = r.Status
	}
	assert.Equal(t, domain.RunStatusFailed, statuses["transcripts"])
	assert.Equal(t, domain.RunStatusCancelled, statuses["search"])
	assert.Equal(t, domain.RunStatusCompleted, statuses["catalog"])
}

func TestPipeline_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	path := filepath.Join(t.TempDir(), "sets.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"Number,SetName,Theme,YearFrom,PackagingType,LaunchDate\n"+
			"75192,Millennium Falcon,Star Wars,2017,Box,2017-10-01\n"+
			"30654,X-Wing Starfighter,Star Wars,2024,Polybag,2024-03-01\n",
	), 0o644))

	searcher := &fakeSearcher{results: map[string][]platform.SearchEntry{
		"LEGO 75192 review": {reviewEntry("abc123")},
	}}
	lookup := &fakeLookup{infos: map[string]*platform.VideoInfo{"abc123": playableInfo("abc123", "en")}}
	captions := &fakeCaptions{payloads: map[string]*platform.Captions{enTrackURL: helloWorldCaptions()}}

	pipeline := NewPipeline(
		NewCatalogService(store.catalog, 0),
		newSearchService(store, searcher, false),
		NewTranscriptService(store.videos, store.transcripts, lookup, captions, nil, &TranscriptConfig{}),
		NewRunTracker(store.runs),
	)

	stages, err := ParseStages("all")
	require.NoError(t, err)
	opts := &PipelineOptions{Stages: stages, Catalog: csvcatalog.NewAdapter(path, ',')}

	results, err := pipeline.Run(ctx, opts)
	require.NoError(t, err)
	assert.EqualValues(t, 2, results[StageCatalog].CreatedRecords)
	assert.EqualValues(t, 1, results[StageSearch].CreatedRecords)
	assert.EqualValues(t, 1, results[StageTranscripts].CreatedRecords)

	video, err := store.videos.GetByID(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "75192", video.LegoNumber)

	detail, err := store.transcripts.GetByVideoID(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", detail.Transcript)

	// A second full run processes only the delta, which is now empty.
	results, err = pipeline.Run(ctx, &PipelineOptions{Stages: stages, Catalog: csvcatalog.NewAdapter(path, ',')})
	require.NoError(t, err)
	assert.EqualValues(t, 2, results[StageCatalog].SkippedItems)
	assert.Zero(t, results[StageSearch].TotalItems)
	assert.Zero(t, results[StageTranscripts].TotalItems)

	runs, err := store.runs.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 6)
}

func TestCatalogService_HeaderMismatchInsertsNothing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	path := filepath.Join(t.TempDir(), "sets.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"Number,SetName,Theme,PackagingType,LaunchDate,Pieces\n"+
			"75192,Millennium Falcon,Star Wars,Box,2017-10-01,7541\n",
	), 0o644))

	_, err := NewCatalogService(store.catalog, 0).Load(ctx, csvcatalog.NewAdapter(path, ','))
	var headerErr *csvcatalog.HeaderError
	require.ErrorAs(t, err, &headerErr)
	assert.Equal(t, []string{"YearFrom"}, headerErr.Missing)
	assert.Equal(t, []string{"Pieces"}, headerErr.Unexpected)

	count, err := store.catalog.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
