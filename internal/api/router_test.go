package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/legoreviews/internal/config"
	"github.com/timmy/legoreviews/internal/domain"
	"github.com/timmy/legoreviews/internal/logger"
	"github.com/timmy/legoreviews/internal/repository"
	"github.com/timmy/legoreviews/internal/service"
)

func newTestRouter(t *testing.T) (*gin.Engine, *repository.VideoRepository, *repository.TranscriptRepository) {
	t.Helper()
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "api.db"),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close(db) })

	ctx := context.Background()
	catalogRepo := repository.NewCatalogRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	transcriptRepo := repository.NewTranscriptRepository(db)

	require.NoError(t, catalogRepo.Create(ctx, &domain.CatalogEntry{Number: "75192", SetName: "Millennium Falcon", Theme: "Star Wars", PackagingType: "Box"}))
	require.NoError(t, catalogRepo.Create(ctx, &domain.CatalogEntry{Number: "10294", SetName: "Titanic", Theme: "Icons", PackagingType: "Box"}))

	dataset := service.NewDatasetService(catalogRepo, videoRepo, transcriptRepo, repository.NewRunRepository(db))
	log := logger.New(&logger.Config{Level: "error", Format: "json", Output: io.Discard})

	router := SetupRouter(db, dataset, &config.ServerConfig{
		Mode: "test",
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
	}, log)
	return router, videoRepo, transcriptRepo
}

func doGet(t *testing.T, router http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doGet(t, router, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, repository.LatestSchemaVersion(), body["schema_version"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doGet(t, router, "/health", map[string]string{"X-Request-ID": "req-42"})
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}

func TestListSets(t *testing.T) {
	router, _, _ := newTestRouter(t)

	var page service.SetListResponse
	w := doGet(t, router, "/api/v1/sets?theme=Icons", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.EqualValues(t, 1, page.Total)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "10294", page.Results[0].Number)
	assert.Equal(t, 20, page.Limit)

	w = doGet(t, router, "/api/v1/sets?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSet(t *testing.T) {
	router, videos, _ := newTestRouter(t)
	require.NoError(t, videos.Create(context.Background(), &domain.Video{VideoID: "abc123", Title: "LEGO 75192 review", LegoNumber: "75192"}))

	var set service.SetDetail
	w := doGet(t, router, "/api/v1/sets/75192", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &set))
	assert.Equal(t, "Millennium Falcon", set.SetName)
	assert.EqualValues(t, 1, set.VideoCount)
	require.Len(t, set.Videos, 1)
	assert.Equal(t, "abc123", set.Videos[0].VideoID)

	w = doGet(t, router, "/api/v1/sets/00000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVideosAndDetail(t *testing.T) {
	router, videos, transcripts := newTestRouter(t)
	ctx := context.Background()

	require.NoError(t, videos.Create(ctx, &domain.Video{VideoID: "abc123", Title: "LEGO 75192 review", Uploader: "Brick Channel", LegoNumber: "75192"}))
	require.NoError(t, videos.Create(ctx, &domain.Video{VideoID: "def456", Title: "Titanic review", Uploader: "Other", LegoNumber: "10294"}))
	require.NoError(t, transcripts.Create(ctx, &domain.TranscriptDetail{
		VideoID:     "abc123",
		Description: "Unboxing the Falcon",
		Transcript:  "Hello world",
	}))
	require.NoError(t, transcripts.Create(ctx, &domain.TranscriptDetail{
		VideoID:     "def456",
		Description: domain.DescriptionDownloadError,
		Transcript:  domain.DownloadErrorPrefix + "connection reset",
	}))

	var page service.VideoListResponse
	w := doGet(t, router, "/api/v1/videos?set=75192", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Results, 1)
	assert.Equal(t, "abc123", page.Results[0].VideoID)

	var detail service.VideoDetail
	w = doGet(t, router, "/api/v1/videos/abc123", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, "LEGO 75192 review", detail.Title)
	require.NotNil(t, detail.Details)
	assert.Equal(t, "Hello world", detail.Details.Transcript)
	assert.False(t, detail.Failed)

	w = doGet(t, router, "/api/v1/videos/def456", nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail = service.VideoDetail{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.True(t, detail.Failed)

	w = doGet(t, router, "/api/v1/videos/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStats(t *testing.T) {
	router, _, _ := newTestRouter(t)

	var stats service.DatasetStats
	w := doGet(t, router, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 2, stats.Sets)
	assert.Zero(t, stats.Videos)
}

func TestCORS(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doGet(t, router, "/api/v1/stats", map[string]string{"Origin": "http://localhost:5173"})
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	w = doGet(t, router, "/api/v1/stats", map[string]string{"Origin": "http://evil.test"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/stats", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
