package youtube

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/timmy/legoreviews/internal/platform"
)

// FetchCaptions downloads a caption track as json3.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - track: caption track from the automatic caption index.
// Returns:
//   - *platform.Captions: decoded events plus the raw payload.
//   - error: *platform.Error with StatusCode set for a non-200 reply,
//     or a decode error for a malformed payload.
func (c *Client) FetchCaptions(ctx context.Context, track platform.CaptionTrack) (*platform.Captions, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := req.
		SetHeader("User-Agent", androidUserAgent).
		Get(json3URL(track.URL))
	if err != nil || resp.StatusCode() != http.StatusOK {
		return nil, transportError("", resp, err)
	}

	var caps platform.Captions
	if err := json.Unmarshal(resp.Body(), &caps); err != nil {
		return nil, err
	}
	caps.Raw = resp.Body()
	return &caps, nil
}

// json3URL sets fmt=json3 on a timedtext URL.
func json3URL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw + "&fmt=json3"
	}
	q := u.Query()
	q.Set("fmt", "json3")
	u.RawQuery = q.Encode()
	return u.String()
}
