// Package platform describes the video platform the pipeline depends on:
// search, per-video metadata, and caption downloads. Adapters translate
// platform failures into a closed set of error kinds so callers never
// inspect error text.
package platform

import (
	"context"
	"sort"
	"strings"
)

// CaptionTrack is one downloadable caption variant.
type CaptionTrack struct {
	URL  string
	Name string
	Ext  string
}

// CaptionIndex maps a caption language code to its tracks.
type CaptionIndex map[string][]CaptionTrack

// Has reports whether lang has at least one track.
func (c CaptionIndex) Has(lang string) bool {
	return len(c[lang]) > 0
}

// Languages returns the language codes in the index, sorted.
func (c CaptionIndex) Languages() []string {
	langs := make([]string, 0, len(c))
	for lang := range c {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// JoinedLanguages returns the codes joined with ", ".
func (c CaptionIndex) JoinedLanguages() string {
	return strings.Join(c.Languages(), ", ")
}

// SearchEntry is one search result with the fields admissibility needs.
type SearchEntry struct {
	ID                string
	Title             string
	Uploader          string
	UploadDate        string // YYYYMMDD, empty if unknown
	ViewCount         int64
	Duration          *int // seconds; nil when unknown
	Unavailable       bool
	AgeLimit          int
	AutomaticCaptions CaptionIndex
}

// VideoInfo is the per-video metadata used by the transcript fetcher.
type VideoInfo struct {
	ID                string
	Title             string
	Description       string
	Unavailable       bool
	AgeLimit          int
	AutomaticCaptions CaptionIndex
}

// CaptionEvent is one timed event of a json3 caption payload.
type CaptionEvent struct {
	StartMs    int64            `json:"tStartMs"`
	DurationMs int64            `json:"dDurationMs"`
	Segments   []CaptionSegment `json:"segs"`
}

// CaptionSegment is a piece of text inside an event.
type CaptionSegment struct {
	UTF8 string `json:"utf8"`
}

// Captions is a decoded json3 caption payload.
type Captions struct {
	Events []CaptionEvent `json:"events"`
	Raw    []byte         `json:"-"`
}

// Text concatenates every segment of every event in order. Newlines inside a
// segment become spaces, segments are joined by a single space and the result
// is trimmed.
func (c *Captions) Text() string {
	var parts []string
	for _, ev := range c.Events {
		for _, seg := range ev.Segments {
			parts = append(parts, strings.ReplaceAll(seg.UTF8, "\n", " "))
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Searcher runs a bounded search query.
type Searcher interface {
	// Search returns at most maxResults entries for query. A premiere in the
	// result set is reported as an *Error of KindPremierePending.
	Search(ctx context.Context, query string, maxResults int) ([]SearchEntry, error)
}

// VideoLookup fetches metadata of a single video.
type VideoLookup interface {
	VideoInfo(ctx context.Context, videoID string) (*VideoInfo, error)
}

// CaptionFetcher downloads a caption track in json3 form. A non-200 reply is
// reported as an *Error with StatusCode set.
type CaptionFetcher interface {
	FetchCaptions(ctx context.Context, track CaptionTrack) (*Captions, error)
}

// Platform is everything the pipeline needs from the video platform.
type Platform interface {
	Searcher
	VideoLookup
	CaptionFetcher
}
