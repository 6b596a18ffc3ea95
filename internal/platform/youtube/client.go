// Package youtube implements platform.Platform against YouTube's public web
// endpoints: the results page for search, the Innertube player endpoint for
// metadata and caption tracks, and timedtext for json3 captions.
package youtube

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/legoreviews/internal/platform"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://www.youtube.com"

	webClientVersion     = "2.20250222.10.00"
	androidClientVersion = "20.10.38"
	androidUserAgent     = "com.google.android.youtube/" + androidClientVersion + " (Linux; U; Android 11) gzip"
	browserUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	// videosOnlyFilter is the "sp" search parameter restricting results to videos.
	videosOnlyFilter = "EgIQAQ%3D%3D"

	ageGatedLimit = 18
)

// Config holds adapter settings.
type Config struct {
	BaseURL         string
	RequestInterval time.Duration // minimum spacing between any two requests
	Timeout         time.Duration
	HL              string
	GL              string
}

// Client talks to YouTube. Every request, whatever the endpoint, waits on the
// same limiter so the platform sees a fixed inter-request delay.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	baseURL string
	hl      string
	gl      string
}

var _ platform.Platform = (*Client)(nil)

// New creates a YouTube client.
// Parameters:
//   - cfg: adapter configuration; zero values fall back to defaults.
// Returns:
//   - *Client: ready-to-use client.
func New(cfg *Config) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestInterval > 0 {
		limit = rate.Every(cfg.RequestInterval)
	}

	hl, gl := cfg.HL, cfg.GL
	if hl == "" {
		hl = "en"
	}
	if gl == "" {
		gl = "US"
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept-Language", hl+";q=0.9").
		// Skips the EU consent interstitial on the results page.
		SetCookie(consentCookie())

	return &Client{
		http:    client,
		limiter: rate.NewLimiter(limit, 1),
		baseURL: baseURL,
		hl:      hl,
		gl:      gl,
	}
}

// request waits for the limiter and returns a request bound to ctx.
func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &platform.Error{Kind: platform.KindTransport, Message: "rate limiter wait", Err: err}
	}
	return c.http.R().SetContext(ctx), nil
}

// transportError wraps a failed round trip or a non-200 reply.
func transportError(videoID string, resp *resty.Response, err error) *platform.Error {
	if err != nil {
		return &platform.Error{Kind: platform.KindTransport, VideoID: videoID, Message: err.Error(), Err: err}
	}
	return &platform.Error{
		Kind:       platform.KindTransport,
		VideoID:    videoID,
		StatusCode: resp.StatusCode(),
		Message:    "HTTP " + resp.Status(),
	}
}

func (c *Client) innertubeContext(clientName, clientVersion string, androidSDK int) innertubeContext {
	return innertubeContext{Client: innertubeClient{
		ClientName:        clientName,
		ClientVersion:     clientVersion,
		AndroidSdkVersion: androidSDK,
		Hl:                c.hl,
		Gl:                c.gl,
	}}
}

type innertubeContext struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}
