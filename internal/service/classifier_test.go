package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/legoreviews/internal/domain"
)

func chatServer(t *testing.T, status int, content string, captured *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		if captured != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"model not found","type":"invalid_request_error"}}`))
			return
		}
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClassifierService_Classify(t *testing.T) {
	var req chatRequest
	srv := chatServer(t, http.StatusOK,
		"```json\n{\"review_category\": \"Slightly Positive\", \"review_rationale\": \"Solid set with flaws.\", \"confidence_score\": 87.6, \"sponsored\": true}\n```",
		&req)

	svc := NewClassifierService(&ClassifierConfig{Model: "llama3.2", APIKey: "secret", BaseURL: srv.URL + "/v1/"})
	c, err := svc.Classify(context.Background(), "  Thanks to LEGO for sending this set. Great build.  ")
	require.NoError(t, err)

	assert.Equal(t, domain.ReviewSlightlyPositive, c.Category)
	assert.Equal(t, "Solid set with flaws.", c.Rationale)
	assert.Equal(t, 88, c.ConfidenceScore)
	assert.True(t, c.Sponsored)
	assert.Equal(t, 9, c.WordCount)
	assert.Equal(t, 49, c.CharLength)

	assert.Equal(t, "llama3.2", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Contains(t, req.Messages[1].Content, "Thanks to LEGO for sending this set. Great build.")
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, "json_object", req.ResponseFormat.Type)
}

func TestClassifierService_HTTPError(t *testing.T) {
	srv := chatServer(t, http.StatusNotFound, "", nil)
	svc := NewClassifierService(&ClassifierConfig{Model: "missing", APIKey: "secret", BaseURL: srv.URL + "/v1"})

	_, err := svc.Classify(context.Background(), "transcript")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestNewClassifierService_Provider(t *testing.T) {
	tests := []struct {
		name         string
		cfg          ClassifierConfig
		wantProvider string
		wantEndpoint string
	}{
		{name: "default", wantProvider: "ollama", wantEndpoint: "http://localhost:11434/v1/chat/completions"},
		{name: "openai", cfg: ClassifierConfig{Provider: "OpenAI"}, wantProvider: "openai", wantEndpoint: "https://api.openai.com/v1/chat/completions"},
		{name: "explicit base url wins", cfg: ClassifierConfig{Provider: "openai", BaseURL: "http://proxy:8080/v1/"}, wantProvider: "openai", wantEndpoint: "http://proxy:8080/v1/chat/completions"},
		{name: "vllm", cfg: ClassifierConfig{Provider: "vllm", BaseURL: "http://gpu:8000/v1"}, wantProvider: "vllm", wantEndpoint: "http://gpu:8000/v1/chat/completions"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewClassifierService(&tc.cfg)
			assert.Equal(t, tc.wantProvider, svc.GetProvider())
			assert.Equal(t, tc.wantEndpoint, svc.endpoint)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	got := truncate(strings.Repeat("é", 5), 3)
	assert.True(t, utf8.ValidString(got), "got %q", got)
	assert.Equal(t, "é...", got)

	got = truncate("Klemmbaustein-Kritik 👍👍", 22)
	assert.True(t, utf8.ValidString(got), "got %q", got)
	assert.Equal(t, "Klemmbaustein-Kritik ...", got)
}

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "valid", content: `{"review_category":"strongly negative","review_rationale":"Avoid.","confidence_score":90,"sponsored":false}`},
		{name: "score as string", content: `{"review_category":"strongly positive","review_rationale":"Love it.","confidence_score":"95","sponsored":false}`},
		{name: "not json", content: "I think it is positive", wantErr: true},
		{name: "unknown category", content: `{"review_category":"neutral","review_rationale":"Meh.","confidence_score":50,"sponsored":false}`, wantErr: true},
		{name: "missing rationale", content: `{"review_category":"slightly negative","confidence_score":50,"sponsored":false}`, wantErr: true},
		{name: "score out of range", content: `{"review_category":"slightly negative","review_rationale":"x","confidence_score":150,"sponsored":false}`, wantErr: true},
		{name: "missing sponsored", content: `{"review_category":"slightly negative","review_rationale":"x","confidence_score":50}`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := parseClassification(tc.content)
			if tc.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidClassification), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.True(t, c.Category.Valid())
		})
	}
}

type fakeClassifier struct {
	answers map[string]*domain.Classification
	err     error
}

func (f *fakeClassifier) Classify(_ context.Context, transcript string) (*domain.Classification, error) {
	if c, ok := f.answers[transcript]; ok {
		return c, nil
	}
	if f.err != nil {
		return nil, f.err
	}
	return nil, ErrInvalidClassification
}

func TestClassificationService_Run(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	store.seedSet(t, "75192", "Box")
	for _, id := range []string{"good1", "bad1", "fail1"} {
		store.seedVideo(t, id, "75192")
	}
	require.NoError(t, store.transcripts.Create(ctx, &domain.TranscriptDetail{VideoID: "good1", Transcript: "Great set, sent by LEGO"}))
	require.NoError(t, store.transcripts.Create(ctx, &domain.TranscriptDetail{VideoID: "bad1", Transcript: "hmm"}))
	require.NoError(t, store.transcripts.Create(ctx, &domain.TranscriptDetail{VideoID: "fail1", Transcript: domain.TranscriptDownloadFailed}))

	classifier := &fakeClassifier{answers: map[string]*domain.Classification{
		"Great set, sent by LEGO": {
			Category:        domain.ReviewStronglyPositive,
			Rationale:       "Enthusiastic, gifted by LEGO.",
			ConfidenceScore: 93,
			Sponsored:       true,
			WordCount:       5,
			CharLength:      23,
		},
	}}
	svc := NewClassificationService(store.transcripts, classifier, &ClassificationConfig{BatchSize: 10, MinTranscriptChars: 100})

	stats, err := svc.Run(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalItems, "sentinel rows are not classified")
	assert.EqualValues(t, 1, stats.ProcessedItems)
	assert.EqualValues(t, 1, stats.FailedItems)

	good, err := store.transcripts.GetByVideoID(ctx, "good1")
	require.NoError(t, err)
	require.NotNil(t, good.ReviewCategory)
	assert.Equal(t, "strongly positive", *good.ReviewCategory)
	require.NotNil(t, good.Sponsored)
	assert.True(t, *good.Sponsored)
	require.NotNil(t, good.TranscriptCharLength)
	assert.Equal(t, 23, *good.TranscriptCharLength)

	bad, err := store.transcripts.GetByVideoID(ctx, "bad1")
	require.NoError(t, err)
	assert.Nil(t, bad.ReviewCategory)

	// Only the invalid row is still pending.
	pending, err := store.transcripts.ListUnclassified(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "bad1", pending[0].VideoID)
}
