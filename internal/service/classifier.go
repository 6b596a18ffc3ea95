package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/legoreviews/internal/domain"
	"github.com/timmy/legoreviews/internal/logger"
	"github.com/timmy/legoreviews/internal/prompts"
	"github.com/timmy/legoreviews/internal/repository"
)

// ErrInvalidClassification is returned when the model answer fails validation.
var ErrInvalidClassification = errors.New("invalid classification answer")

// ClassifierConfig holds configuration for the review classifier.
type ClassifierConfig struct {
	Provider string // ollama, openai or any OpenAI-compatible server with BaseURL set
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// ClassifierService labels review transcripts through an OpenAI-compatible
// chat completions endpoint (OpenAI, Ollama, vLLM).
type ClassifierService struct {
	client   *resty.Client
	model    string
	provider string
	endpoint string
}

// NewClassifierService creates a new classifier client.
// Parameters:
//   - cfg: classifier configuration including model, base URL and API key.
//
// Returns:
//   - *ClassifierService: initialized client wrapper.
func NewClassifierService(cfg *ClassifierConfig) *ClassifierService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	client.SetTimeout(timeout)

	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = ProviderOllama
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = providerBaseURLs[provider]
	}
	if baseURL == "" {
		baseURL = providerBaseURLs[ProviderOllama]
	}

	return &ClassifierService{
		client:   client,
		model:    cfg.Model,
		provider: provider,
		endpoint: baseURL + "/chat/completions",
	}
}

// Known providers. Any other provider should set a base URL; without one it
// falls back to the local Ollama endpoint.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

var providerBaseURLs = map[string]string{
	ProviderOllama: "http://localhost:11434/v1",
	ProviderOpenAI: "https://api.openai.com/v1",
}

// GetModel returns the model name being used.
func (s *ClassifierService) GetModel() string {
	return s.model
}

// GetProvider returns the normalized provider name.
func (s *ClassifierService) GetProvider() string {
	return s.provider
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type classificationAnswer struct {
	ReviewCategory  string       `json:"review_category"`
	ReviewRationale *string      `json:"review_rationale"`
	ConfidenceScore *json.Number `json:"confidence_score"`
	Sponsored       *bool        `json:"sponsored"`
}

// Classify labels one transcript.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - transcript: transcript text; surrounding whitespace is ignored.
//
// Returns:
//   - *domain.Classification: validated labels plus transcript length metrics.
//   - error: non-nil if the request fails or the answer is invalid
//     (wrapping ErrInvalidClassification).
func (s *ClassifierService) Classify(ctx context.Context, transcript string) (*domain.Classification, error) {
	clean := strings.TrimSpace(transcript)

	req := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.ReviewSystemPrompt},
			{Role: "user", Content: prompts.ReviewUserPrompt(clean)},
		},
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	var resp chatResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call classifier API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
		if resp.Error != nil {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		}
		return nil, fmt.Errorf("classifier API returned error: %s", errorMsg)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("classifier API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in classifier response")
	}

	c, err := parseClassification(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	c.WordCount = len(strings.Fields(clean))
	c.CharLength = utf8.RuneCountInString(clean)
	return c, nil
}

// parseClassification decodes and validates the model's JSON answer. Text
// around the outermost object (markdown fences, chatter) is ignored.
func parseClassification(content string) (*domain.Classification, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in %q", ErrInvalidClassification, truncate(content, 200))
	}

	var answer classificationAnswer
	if err := json.Unmarshal([]byte(content[start:end+1]), &answer); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClassification, err)
	}

	category := domain.ReviewCategory(strings.ToLower(strings.TrimSpace(answer.ReviewCategory)))
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown review_category %q", ErrInvalidClassification, answer.ReviewCategory)
	}
	if answer.ReviewRationale == nil || strings.TrimSpace(*answer.ReviewRationale) == "" {
		return nil, fmt.Errorf("%w: missing review_rationale", ErrInvalidClassification)
	}
	if answer.ConfidenceScore == nil {
		return nil, fmt.Errorf("%w: missing confidence_score", ErrInvalidClassification)
	}
	score, err := answer.ConfidenceScore.Float64()
	if err != nil || score < 0 || score > 100 {
		return nil, fmt.Errorf("%w: confidence_score %q out of range", ErrInvalidClassification, answer.ConfidenceScore.String())
	}
	if answer.Sponsored == nil {
		return nil, fmt.Errorf("%w: missing sponsored", ErrInvalidClassification)
	}

	return &domain.Classification{
		Category:        category,
		Rationale:       strings.TrimSpace(*answer.ReviewRationale),
		ConfidenceScore: int(math.Round(score)),
		Sponsored:       *answer.Sponsored,
	}, nil
}

// truncate shortens s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// TranscriptClassifier labels a transcript. *ClassifierService satisfies it.
type TranscriptClassifier interface {
	Classify(ctx context.Context, transcript string) (*domain.Classification, error)
}

// ClassificationConfig holds configuration for the classification run.
type ClassificationConfig struct {
	BatchSize          int
	MinTranscriptChars int // shorter transcripts are classified with a warning
}

// ClassificationService classifies pending Transcript Records and writes the
// classifier-owned columns.
type ClassificationService struct {
	repo       *repository.TranscriptRepository
	classifier TranscriptClassifier
	batchSize  int
	minChars   int
}

// NewClassificationService creates a new classification service.
func NewClassificationService(repo *repository.TranscriptRepository, classifier TranscriptClassifier, cfg *ClassificationConfig) *ClassificationService {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 50
	}
	return &ClassificationService{
		repo:       repo,
		classifier: classifier,
		batchSize:  batch,
		minChars:   cfg.MinTranscriptChars,
	}
}

// Run classifies up to one batch of unclassified transcripts. Rows whose
// answer is invalid stay unclassified for the next run.
// Parameters:
//   - ctx: context for cancellation; cancellation stops between rows.
//   - limit: overrides the batch size when > 0.
//
// Returns:
//   - *IngestStats: processed counts classified rows, failed counts rows
//     left unclassified.
//   - error: non-nil if the pending list cannot be read, or ctx.Err() when
//     cancellation stopped the run early.
func (s *ClassificationService) Run(ctx context.Context, limit int) (*IngestStats, error) {
	stats := &IngestStats{StartTime: time.Now()}
	defer func() { stats.EndTime = time.Now() }()

	if limit <= 0 {
		limit = s.batchSize
	}
	rows, err := s.repo.ListUnclassified(ctx, limit)
	if err != nil {
		return stats, fmt.Errorf("list unclassified transcripts: %w", err)
	}
	stats.TotalItems = int64(len(rows))
	logger.With(logger.Fields{"limit": limit}).WithCount(len(rows)).Info(ctx, "Classifying transcripts")

	for _, row := range rows {
		if ctx.Err() != nil {
			logger.CtxWarn(ctx, "Classification interrupted")
			return stats, ctx.Err()
		}

		rowCtx := logger.WithField(ctx, logger.FieldVideoID, row.VideoID)
		if n := utf8.RuneCountInString(strings.TrimSpace(row.Transcript)); n < s.minChars {
			logger.With(logger.Fields{logger.FieldSize: n}).
				Warn(rowCtx, "Transcript is very short, classification may be unreliable")
		}

		start := time.Now()
		c, err := s.classifier.Classify(rowCtx, row.Transcript)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.FailedItems++
			logger.FromContext(rowCtx).WithError(err).Warn("Classification failed, leaving row unclassified")
			continue
		}

		if err := s.repo.UpdateClassification(rowCtx, row.VideoID, c); err != nil {
			stats.FailedItems++
			logger.FromContext(rowCtx).WithError(err).Error("Failed to store classification")
			continue
		}

		stats.ProcessedItems++
		logger.With(logger.Fields{
			"category":   string(c.Category),
			"confidence": c.ConfidenceScore,
			"sponsored":  c.Sponsored,
		}).WithDuration(time.Since(start).Milliseconds()).Info(rowCtx, "Classified %q", row.Title)
	}

	return stats, nil
}
