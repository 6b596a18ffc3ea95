package domain

import "strings"

// Sentinel values written when a transcript could not be obtained. A row
// carrying one of them marks the video as processed for good.
const (
	TranscriptDownloadFailed = "❌ Error downloading transcript"
	DownloadErrorPrefix      = "DownloadError: "
	GeneralErrorPrefix       = "Error: "

	DescriptionDownloadError = "Download error"
	DescriptionLoadError     = "Error loading video"
	DescriptionMissing       = "No description available"
)

// ReviewCategory is the sentiment label assigned by the classifier.
type ReviewCategory string

const (
	ReviewStronglyPositive ReviewCategory = "strongly positive"
	ReviewSlightlyPositive ReviewCategory = "slightly positive"
	ReviewSlightlyNegative ReviewCategory = "slightly negative"
	ReviewStronglyNegative ReviewCategory = "strongly negative"
)

// ReviewCategories lists every valid ReviewCategory.
var ReviewCategories = []ReviewCategory{
	ReviewStronglyPositive,
	ReviewSlightlyPositive,
	ReviewSlightlyNegative,
	ReviewStronglyNegative,
}

// Valid reports whether c is one of ReviewCategories.
func (c ReviewCategory) Valid() bool {
	for _, known := range ReviewCategories {
		if c == known {
			return true
		}
	}
	return false
}

// TranscriptDetail holds the fetched transcript (or a sentinel) for one video.
// The ingestion pipeline writes VideoID, Description and Transcript exactly
// once. The nullable columns belong to the classifier.
type TranscriptDetail struct {
	VideoID     string `gorm:"column:video_id;type:text;primaryKey" json:"video_id"`
	Description string `gorm:"column:description;type:text" json:"description"`
	Transcript  string `gorm:"column:transcript;type:text" json:"transcript"`

	ReviewCategory       *string `gorm:"column:review_category;type:text" json:"review_category,omitempty"`
	ReviewRationale      *string `gorm:"column:review_rationale;type:text" json:"review_rationale,omitempty"`
	ConfidenceScore      *int    `gorm:"column:confidence_score" json:"confidence_score,omitempty"`
	Sponsored            *bool   `gorm:"column:sponsored" json:"sponsored,omitempty"`
	TranscriptWordCount  *int    `gorm:"column:transcript_word_count" json:"transcript_word_count,omitempty"`
	TranscriptCharLength *int    `gorm:"column:transcript_char_length" json:"transcript_char_length,omitempty"`
}

// TableName returns the database table name for TranscriptDetail.
func (TranscriptDetail) TableName() string {
	return "video_details"
}

// IsSentinel reports whether the stored transcript marks a failed fetch.
func (d TranscriptDetail) IsSentinel() bool {
	return IsSentinelTranscript(d.Transcript)
}

// IsSentinelTranscript reports whether text is one of the failure sentinels.
func IsSentinelTranscript(text string) bool {
	return text == TranscriptDownloadFailed ||
		strings.HasPrefix(text, DownloadErrorPrefix) ||
		strings.HasPrefix(text, GeneralErrorPrefix)
}

// Classification is the validated classifier output for one transcript.
type Classification struct {
	Category        ReviewCategory
	Rationale       string
	ConfidenceScore int
	Sponsored       bool
	WordCount       int
	CharLength      int
}
