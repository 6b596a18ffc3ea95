package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/timmy/legoreviews/internal/config"
	"github.com/timmy/legoreviews/internal/domain"
	"github.com/timmy/legoreviews/internal/platform"
	"github.com/timmy/legoreviews/internal/repository"
	"gorm.io/gorm"
)

type testStore struct {
	db          *gorm.DB
	catalog     *repository.CatalogRepository
	videos      *repository.VideoRepository
	transcripts *repository.TranscriptRepository
	runs        *repository.RunRepository
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "reviews.db"),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close(db) })

	return &testStore{
		db:          db,
		catalog:     repository.NewCatalogRepository(db),
		videos:      repository.NewVideoRepository(db),
		transcripts: repository.NewTranscriptRepository(db),
		runs:        repository.NewRunRepository(db),
	}
}

func (s *testStore) seedSet(t *testing.T, number, packaging string) {
	t.Helper()
	require.NoError(t, s.catalog.Create(context.Background(), &domain.CatalogEntry{
		Number:        number,
		SetName:       "Set " + number,
		PackagingType: packaging,
	}))
}

func (s *testStore) seedVideo(t *testing.T, videoID, number string) {
	t.Helper()
	require.NoError(t, s.videos.Create(context.Background(), &domain.Video{
		VideoID:    videoID,
		Title:      "LEGO " + number + " review",
		LegoNumber: number,
	}))
}

func intPtr(v int) *int { return &v }

func captionIndex(langs ...string) platform.CaptionIndex {
	index := platform.CaptionIndex{}
	for _, lang := range langs {
		index[lang] = []platform.CaptionTrack{{URL: "https://captions.test/" + lang, Ext: "json3"}}
	}
	return index
}

// reviewEntry is a search entry that passes every admissibility rule.
func reviewEntry(id string) platform.SearchEntry {
	return platform.SearchEntry{
		ID:                id,
		Title:             "LEGO 75192 review",
		Uploader:          "Brick Channel",
		UploadDate:        "20240115",
		ViewCount:         10000,
		Duration:          intPtr(600),
		AutomaticCaptions: captionIndex("en"),
	}
}

type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]platform.SearchEntry
	errs    map[string]error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, maxResults int) ([]platform.SearchEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	results := f.results[query]
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

type fakeLookup struct {
	infos map[string]*platform.VideoInfo
	errs  map[string]error
	calls map[string]int
}

func (f *fakeLookup) VideoInfo(_ context.Context, videoID string) (*platform.VideoInfo, error) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[videoID]++
	if err := f.errs[videoID]; err != nil {
		return nil, err
	}
	return f.infos[videoID], nil
}

type fakeCaptions struct {
	payloads map[string]*platform.Captions
	errs     map[string]error
	afterGet func() // runs once the payload is in hand
}

func (f *fakeCaptions) FetchCaptions(_ context.Context, track platform.CaptionTrack) (*platform.Captions, error) {
	if f.afterGet != nil {
		defer f.afterGet()
	}
	if err := f.errs[track.URL]; err != nil {
		return nil, err
	}
	return f.payloads[track.URL], nil
}

type fakeArchive struct {
	saved map[string][]byte
	err   error
}

func (f *fakeArchive) Save(_ context.Context, videoID string, raw []byte) error {
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	f.saved[videoID] = raw
	return nil
}
