package youtube

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/timmy/legoreviews/internal/logger"
	"github.com/timmy/legoreviews/internal/platform"
)

type playerRequest struct {
	VideoID        string           `json:"videoId"`
	Context        innertubeContext `json:"context"`
	RacyCheckOk    bool             `json:"racyCheckOk"`
	ContentCheckOk bool             `json:"contentCheckOk"`
}

type playerResponse struct {
	PlayabilityStatus playabilityStatus `json:"playabilityStatus"`
	VideoDetails      struct {
		VideoID          string `json:"videoId"`
		Title            string `json:"title"`
		LengthSeconds    string `json:"lengthSeconds"`
		Author           string `json:"author"`
		ViewCount        string `json:"viewCount"`
		ShortDescription string `json:"shortDescription"`
		IsUpcoming       bool   `json:"isUpcoming"`
	} `json:"videoDetails"`
	Microformat struct {
		PlayerMicroformatRenderer *microformatRenderer `json:"playerMicroformatRenderer"`
	} `json:"microformat"`
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks        []captionTrack        `json:"captionTracks"`
			TranslationLanguages []translationLanguage `json:"translationLanguages"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

// microformatRenderer carries the upload date and the family-safe flag. The
// ANDROID player often omits it; the watch page always embeds it.
type microformatRenderer struct {
	UploadDate   string `json:"uploadDate"`
	PublishDate  string `json:"publishDate"`
	IsFamilySafe *bool  `json:"isFamilySafe"`
}

type playabilityStatus struct {
	Status                     string `json:"status"`
	Reason                     string `json:"reason"`
	DesktopLegacyAgeGateReason int    `json:"desktopLegacyAgeGateReason"`
	LiveStreamability          *struct {
		LiveStreamabilityRenderer struct {
			OfflineSlate *struct {
				LiveStreamOfflineSlateRenderer struct {
					ScheduledStartTime string `json:"scheduledStartTime"`
				} `json:"liveStreamOfflineSlateRenderer"`
			} `json:"offlineSlate"`
		} `json:"liveStreamabilityRenderer"`
	} `json:"liveStreamability"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
	Name         struct {
		SimpleText string `json:"simpleText"`
	} `json:"name"`
}

type translationLanguage struct {
	LanguageCode string `json:"languageCode"`
	LanguageName struct {
		SimpleText string `json:"simpleText"`
	} `json:"languageName"`
}

// player fetches the Innertube player response for one video.
func (c *Client) player(ctx context.Context, videoID string) (*playerResponse, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	body := playerRequest{
		VideoID:        videoID,
		Context:        c.innertubeContext("ANDROID", androidClientVersion, 30),
		RacyCheckOk:    true,
		ContentCheckOk: true,
	}

	resp, err := req.
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", androidUserAgent).
		SetHeader("X-Youtube-Client-Name", "3").
		SetHeader("X-Youtube-Client-Version", androidClientVersion).
		SetBody(body).
		Post(c.baseURL + "/youtubei/v1/player?prettyPrint=false")
	if err != nil || resp.StatusCode() != http.StatusOK {
		return nil, transportError(videoID, resp, err)
	}

	var pr playerResponse
	if err := json.Unmarshal(resp.Body(), &pr); err != nil {
		return nil, &platform.Error{Kind: platform.KindUnknown, VideoID: videoID, Message: "decode player response", Err: err}
	}
	return &pr, nil
}

// completeMicroformat fills a missing microformat from the watch page. A watch
// page that cannot be read leaves the age signal unknown, which ageLimit
// treats as gated; only cancellation is returned as an error.
func (c *Client) completeMicroformat(ctx context.Context, videoID string, pr *playerResponse) error {
	if !pr.needsMicroformat() {
		return nil
	}
	mf, err := c.watchMicroformat(ctx, videoID)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		logger.CtxDebug(ctx, "Watch page unreadable for %s, age signal unknown: %v", videoID, err)
		return nil
	}
	if mf != nil {
		pr.Microformat.PlayerMicroformatRenderer = mf
	}
	return nil
}

// watchMicroformat reads the microformat embedded in the watch page as part
// of ytInitialPlayerResponse.
func (c *Client) watchMicroformat(ctx context.Context, videoID string) (*microformatRenderer, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := req.
		SetHeader("User-Agent", browserUserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8").
		SetQueryParam("v", videoID).
		Get(c.baseURL + "/watch")
	if err != nil || resp.StatusCode() != http.StatusOK {
		return nil, transportError(videoID, resp, err)
	}

	data, err := extractScriptObject(resp.Body(), initialPlayerResponseMarker)
	if err != nil {
		return nil, &platform.Error{Kind: platform.KindUnknown, VideoID: videoID, Message: "parse watch page", Err: err}
	}

	var pr playerResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil, &platform.Error{Kind: platform.KindUnknown, VideoID: videoID, Message: "decode ytInitialPlayerResponse", Err: err}
	}
	return pr.Microformat.PlayerMicroformatRenderer, nil
}

// classify maps the playability block to an error kind. It returns "" for a
// playable video.
func (pr *playerResponse) classify() platform.Kind {
	ps := pr.PlayabilityStatus
	switch ps.Status {
	case "OK":
		if pr.VideoDetails.IsUpcoming {
			return platform.KindPremierePending
		}
		return ""
	case "LIVE_STREAM_OFFLINE":
		if pr.VideoDetails.IsUpcoming || pr.scheduledStart() != "" {
			return platform.KindPremierePending
		}
		return platform.KindUnavailable
	case "AGE_CHECK_REQUIRED", "AGE_VERIFICATION_REQUIRED", "CONTENT_CHECK_REQUIRED":
		return platform.KindAgeRestricted
	case "LOGIN_REQUIRED":
		if safe, known := pr.familySafe(); ps.DesktopLegacyAgeGateReason > 0 || (known && !safe) {
			return platform.KindAgeRestricted
		}
		return platform.KindUnavailable
	case "UNPLAYABLE", "ERROR":
		return platform.KindUnavailable
	default:
		return platform.KindUnknown
	}
}

func (pr *playerResponse) scheduledStart() string {
	ls := pr.PlayabilityStatus.LiveStreamability
	if ls == nil || ls.LiveStreamabilityRenderer.OfflineSlate == nil {
		return ""
	}
	return ls.LiveStreamabilityRenderer.OfflineSlate.LiveStreamOfflineSlateRenderer.ScheduledStartTime
}

// familySafe reports the family-safe flag and whether the response carried one.
func (pr *playerResponse) familySafe() (safe, known bool) {
	mf := pr.Microformat.PlayerMicroformatRenderer
	if mf == nil || mf.IsFamilySafe == nil {
		return false, false
	}
	return *mf.IsFamilySafe, true
}

// ageLimit treats an unknown age signal as gated.
func (pr *playerResponse) ageLimit() int {
	if safe, known := pr.familySafe(); known && safe {
		return 0
	}
	return ageGatedLimit
}

// needsMicroformat reports whether the age signal or the upload date is missing.
func (pr *playerResponse) needsMicroformat() bool {
	_, known := pr.familySafe()
	return !known || pr.uploadDate() == ""
}

// errorFor builds the platform error for a non-playable response.
func (pr *playerResponse) errorFor(videoID string, kind platform.Kind) *platform.Error {
	msg := pr.PlayabilityStatus.Reason
	if msg == "" {
		msg = pr.PlayabilityStatus.Status
	}
	if kind == platform.KindPremierePending && pr.scheduledStart() != "" {
		msg += " (scheduled " + pr.scheduledStart() + ")"
	}
	return &platform.Error{Kind: kind, VideoID: videoID, Message: msg}
}

// automaticCaptions builds the automatic caption index: each auto-generated
// track under its own language, plus every machine translation it offers.
func (pr *playerResponse) automaticCaptions() platform.CaptionIndex {
	index := platform.CaptionIndex{}
	if pr.Captions == nil {
		return index
	}

	list := pr.Captions.PlayerCaptionsTracklistRenderer
	for _, track := range list.CaptionTracks {
		if track.Kind != "asr" || track.BaseURL == "" {
			continue
		}
		index[track.LanguageCode] = append(index[track.LanguageCode], platform.CaptionTrack{
			URL:  track.BaseURL,
			Name: track.Name.SimpleText,
			Ext:  "json3",
		})
		for _, tl := range list.TranslationLanguages {
			if tl.LanguageCode == track.LanguageCode {
				continue
			}
			index[tl.LanguageCode] = append(index[tl.LanguageCode], platform.CaptionTrack{
				URL:  track.BaseURL + "&tlang=" + tl.LanguageCode,
				Name: tl.LanguageName.SimpleText,
				Ext:  "json3",
			})
		}
	}
	return index
}

// uploadDate converts the microformat date to YYYYMMDD.
func (pr *playerResponse) uploadDate() string {
	mf := pr.Microformat.PlayerMicroformatRenderer
	if mf == nil {
		return ""
	}
	raw := mf.UploadDate
	if raw == "" {
		raw = mf.PublishDate
	}
	if len(raw) < 10 {
		return ""
	}
	return strings.ReplaceAll(raw[:10], "-", "")
}

func (pr *playerResponse) duration() *int {
	secs, err := strconv.Atoi(pr.VideoDetails.LengthSeconds)
	if err != nil {
		return nil
	}
	return &secs
}

func (pr *playerResponse) viewCount() int64 {
	n, _ := strconv.ParseInt(pr.VideoDetails.ViewCount, 10, 64)
	return n
}

// VideoInfo fetches metadata and the automatic caption index of one video.
// Unplayable videos are reported as *platform.Error with the matching kind.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - videoID: platform video identifier.
// Returns:
//   - *platform.VideoInfo: metadata of a playable video.
//   - error: *platform.Error on any failure.
func (c *Client) VideoInfo(ctx context.Context, videoID string) (*platform.VideoInfo, error) {
	pr, err := c.player(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if kind := pr.classify(); kind != "" {
		return nil, pr.errorFor(videoID, kind)
	}
	if err := c.completeMicroformat(ctx, videoID, pr); err != nil {
		return nil, err
	}

	return &platform.VideoInfo{
		ID:                videoID,
		Title:             pr.VideoDetails.Title,
		Description:       pr.VideoDetails.ShortDescription,
		AgeLimit:          pr.ageLimit(),
		AutomaticCaptions: pr.automaticCaptions(),
	}, nil
}

// searchEntry resolves one search hit into a full entry. Age-gated and
// unavailable videos are returned flagged so the admissibility rules can
// reject them; a premiere aborts the search.
func (c *Client) searchEntry(ctx context.Context, hit searchHit) (*platform.SearchEntry, error) {
	pr, err := c.player(ctx, hit.ID)
	if err != nil {
		return nil, err
	}

	entry := &platform.SearchEntry{
		ID:       hit.ID,
		Title:    hit.Title,
		Uploader: hit.Channel,
	}

	switch kind := pr.classify(); kind {
	case "":
	case platform.KindAgeRestricted:
		entry.AgeLimit = ageGatedLimit
		return entry, nil
	case platform.KindUnavailable:
		entry.Unavailable = true
		return entry, nil
	default:
		return nil, pr.errorFor(hit.ID, kind)
	}

	if err := c.completeMicroformat(ctx, hit.ID, pr); err != nil {
		return nil, err
	}

	if pr.VideoDetails.Title != "" {
		entry.Title = pr.VideoDetails.Title
	}
	if pr.VideoDetails.Author != "" {
		entry.Uploader = pr.VideoDetails.Author
	}
	entry.UploadDate = pr.uploadDate()
	entry.ViewCount = pr.viewCount()
	entry.Duration = pr.duration()
	entry.AgeLimit = pr.ageLimit()
	entry.AutomaticCaptions = pr.automaticCaptions()
	return entry, nil
}
