package service

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/legoreviews/internal/domain"
	"github.com/timmy/legoreviews/internal/logger"
	"github.com/timmy/legoreviews/internal/platform"
	"github.com/timmy/legoreviews/internal/repository"
)

// TranscriptOutcome is what happened to one video in the transcript stage.
type TranscriptOutcome string

const (
	// OutcomeStored means a real transcript was written.
	OutcomeStored TranscriptOutcome = "stored"
	// OutcomeSentinel means a failure sentinel was written; the video will not
	// be retried.
	OutcomeSentinel TranscriptOutcome = "sentinel"
	// OutcomeSkipped means nothing was written; a later run tries again.
	OutcomeSkipped TranscriptOutcome = "skipped"
	// OutcomeExists means a Transcript Record was already present.
	OutcomeExists TranscriptOutcome = "exists"
)

// CaptionArchiver stores raw caption payloads. *storage.CaptionArchive
// satisfies it.
type CaptionArchiver interface {
	Save(ctx context.Context, videoID string, raw []byte) error
}

// TranscriptConfig holds configuration for the transcript stage.
type TranscriptConfig struct {
	Language string // caption language to fetch
}

// TranscriptService fetches captions for registered videos and writes one
// Transcript Record per video, either the transcript or a sentinel.
type TranscriptService struct {
	videoRepo      *repository.VideoRepository
	transcriptRepo *repository.TranscriptRepository
	lookup         platform.VideoLookup
	captions       platform.CaptionFetcher
	archive        CaptionArchiver
	language       string
}

// NewTranscriptService creates a new transcript service.
// Parameters:
//   - videoRepo: read access to the video registry.
//   - transcriptRepo: the transcript store written by this stage.
//   - lookup: platform metadata capability.
//   - captions: platform caption download capability.
//   - archive: optional raw caption archive; nil disables archiving.
//   - cfg: transcript stage configuration.
//
// Returns:
//   - *TranscriptService: initialized service.
func NewTranscriptService(
	videoRepo *repository.VideoRepository,
	transcriptRepo *repository.TranscriptRepository,
	lookup platform.VideoLookup,
	captions platform.CaptionFetcher,
	archive CaptionArchiver,
	cfg *TranscriptConfig,
) *TranscriptService {
	lang := cfg.Language
	if lang == "" {
		lang = "en"
	}
	return &TranscriptService{
		videoRepo:      videoRepo,
		transcriptRepo: transcriptRepo,
		lookup:         lookup,
		captions:       captions,
		archive:        archive,
		language:       lang,
	}
}

// Fetch resolves the transcript of one video and persists the result.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - videoID: registered video identifier.
//
// Returns:
//   - TranscriptOutcome: stored, sentinel, skipped or exists.
//   - error: non-nil if the store cannot be read or written, or ctx was
//     cancelled before a transcript was downloaded. Nothing is written in
//     that case.
func (s *TranscriptService) Fetch(ctx context.Context, videoID string) (TranscriptOutcome, error) {
	exists, err := s.transcriptRepo.ExistsByVideoID(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("check transcript %s: %w", videoID, err)
	}
	if exists {
		return OutcomeExists, nil
	}

	detail, outcome := s.resolve(ctx, videoID)
	if ctx.Err() != nil && outcome != OutcomeStored {
		// A cancelled request must not be recorded as a permanent failure.
		return "", ctx.Err()
	}
	if detail == nil {
		return outcome, nil
	}

	// A downloaded transcript is kept even if ctx was cancelled meanwhile.
	if err := s.transcriptRepo.Create(context.WithoutCancel(ctx), detail); err != nil {
		return "", fmt.Errorf("store transcript %s: %w", videoID, err)
	}
	return outcome, nil
}

// resolve decides what to persist for videoID. A nil detail means skip.
func (s *TranscriptService) resolve(ctx context.Context, videoID string) (*domain.TranscriptDetail, TranscriptOutcome) {
	info, err := s.lookup.VideoInfo(ctx, videoID)
	if err != nil {
		return s.fromLookupError(ctx, videoID, err)
	}

	if info.Unavailable || info.AgeLimit > 0 {
		s.skip(ctx, "restricted", "Video restricted or unavailable")
		return nil, OutcomeSkipped
	}

	tracks := info.AutomaticCaptions[s.language]
	if len(tracks) == 0 {
		s.skip(ctx, "no_caption_track", "No automatic "+s.language+" caption track")
		return nil, OutcomeSkipped
	}

	description := info.Description
	if description == "" {
		description = domain.DescriptionMissing
	}

	caps, err := s.captions.FetchCaptions(ctx, tracks[0])
	if err != nil {
		if code := platform.StatusCodeOf(err); code != 0 {
			logger.With(logger.Fields{
				logger.FieldDecision: "sentinel",
				logger.FieldStatus:   code,
			}).Warn(ctx, "Caption download failed")
			return &domain.TranscriptDetail{
				VideoID:     videoID,
				Description: description,
				Transcript:  domain.TranscriptDownloadFailed,
			}, OutcomeSentinel
		}
		return unexpectedFailure(ctx, videoID, err), OutcomeSentinel
	}

	if s.archive != nil && len(caps.Raw) > 0 {
		if err := s.archive.Save(ctx, videoID, caps.Raw); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Failed to archive raw captions")
		}
	}

	text := caps.Text()
	logger.With(logger.Fields{logger.FieldSize: len(text)}).
		WithDecision("stored").Info(ctx, "Transcript fetched")
	return &domain.TranscriptDetail{
		VideoID:     videoID,
		Description: description,
		Transcript:  text,
	}, OutcomeStored
}

// fromLookupError applies the retry policy to a metadata failure: access
// problems and premieres are skipped, other platform errors are recorded.
func (s *TranscriptService) fromLookupError(ctx context.Context, videoID string, err error) (*domain.TranscriptDetail, TranscriptOutcome) {
	switch kind := platform.KindOf(err); kind {
	case platform.KindAgeRestricted, platform.KindUnavailable, platform.KindPremierePending:
		s.skip(ctx, string(kind), err.Error())
		return nil, OutcomeSkipped
	case platform.KindTransport, platform.KindUnknown:
		logger.With(logger.Fields{
			logger.FieldDecision:  "sentinel",
			logger.FieldErrorKind: string(kind),
		}).Warn(ctx, "Platform error: %v", err)
		return &domain.TranscriptDetail{
			VideoID:     videoID,
			Description: domain.DescriptionDownloadError,
			Transcript:  domain.DownloadErrorPrefix + err.Error(),
		}, OutcomeSentinel
	default:
		return unexpectedFailure(ctx, videoID, err), OutcomeSentinel
	}
}

func unexpectedFailure(ctx context.Context, videoID string, err error) *domain.TranscriptDetail {
	logger.With(logger.Fields{logger.FieldDecision: "sentinel"}).
		Error(ctx, "Unexpected error loading video: %v", err)
	return &domain.TranscriptDetail{
		VideoID:     videoID,
		Description: domain.DescriptionLoadError,
		Transcript:  domain.GeneralErrorPrefix + err.Error(),
	}
}

func (s *TranscriptService) skip(ctx context.Context, reason, msg string) {
	logger.With(logger.Fields{
		logger.FieldDecision: "skipped",
		logger.FieldReason:   reason,
	}).Info(ctx, "%s", msg)
}

// Run fetches transcripts for every registered video without a Transcript
// Record, one at a time.
// Parameters:
//   - ctx: context for cancellation; cancellation stops between videos.
//   - limit: maximum number of videos to process; <= 0 means all.
//
// Returns:
//   - *IngestStats: processed counts stored and sentinel rows, skipped counts
//     videos left for a later run.
//   - error: non-nil if the pending list cannot be read, or ctx.Err() when
//     cancellation stopped the run early.
func (s *TranscriptService) Run(ctx context.Context, limit int) (*IngestStats, error) {
	stats := &IngestStats{StartTime: time.Now()}
	defer func() { stats.EndTime = time.Now() }()

	videos, err := s.videoRepo.ListWithoutTranscript(ctx, limit)
	if err != nil {
		return stats, fmt.Errorf("list videos without transcript: %w", err)
	}
	stats.TotalItems = int64(len(videos))
	logger.With(logger.Fields{"limit": limit}).WithCount(len(videos)).Info(ctx, "Fetching transcripts")

	for _, video := range videos {
		if ctx.Err() != nil {
			logger.CtxWarn(ctx, "Transcript fetch interrupted")
			return stats, ctx.Err()
		}

		videoCtx := logger.WithFields(ctx, logger.Fields{
			logger.FieldVideoID:   video.VideoID,
			logger.FieldSetNumber: video.LegoNumber,
		})

		outcome, err := s.Fetch(videoCtx, video.VideoID)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.FailedItems++
			logger.FromContext(videoCtx).WithError(err).Error("Transcript stage failed for video")
			continue
		}

		switch outcome {
		case OutcomeStored, OutcomeSentinel:
			stats.ProcessedItems++
			stats.CreatedRecords++
		default:
			stats.SkippedItems++
		}
	}

	return stats, nil
}
