package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/timmy/legoreviews/internal/platform"
)

const (
	initialDataMarker           = "var ytInitialData = "
	initialPlayerResponseMarker = "var ytInitialPlayerResponse = "
)

// searchHit is a result row before it is resolved through the player endpoint.
type searchHit struct {
	ID      string
	Title   string
	Channel string
}

type textRuns struct {
	Runs []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (t textRuns) String() string {
	var b strings.Builder
	for _, r := range t.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

type videoRenderer struct {
	VideoID   string   `json:"videoId"`
	Title     textRuns `json:"title"`
	OwnerText textRuns `json:"ownerText"`
}

type sectionItem struct {
	ItemSectionRenderer *struct {
		Contents []struct {
			VideoRenderer *videoRenderer `json:"videoRenderer"`
		} `json:"contents"`
	} `json:"itemSectionRenderer"`
	ContinuationItemRenderer *struct {
		ContinuationEndpoint struct {
			ContinuationCommand struct {
				Token string `json:"token"`
			} `json:"continuationCommand"`
		} `json:"continuationEndpoint"`
	} `json:"continuationItemRenderer"`
}

type initialData struct {
	Contents struct {
		TwoColumnSearchResultsRenderer struct {
			PrimaryContents struct {
				SectionListRenderer struct {
					Contents []sectionItem `json:"contents"`
				} `json:"sectionListRenderer"`
			} `json:"primaryContents"`
		} `json:"twoColumnSearchResultsRenderer"`
	} `json:"contents"`
}

type continuationRequest struct {
	Context      innertubeContext `json:"context"`
	Continuation string           `json:"continuation"`
}

type continuationResponse struct {
	OnResponseReceivedCommands []struct {
		AppendContinuationItemsAction struct {
			ContinuationItems []sectionItem `json:"continuationItems"`
		} `json:"appendContinuationItemsAction"`
	} `json:"onResponseReceivedCommands"`
}

// collect appends the videos of items to hits and returns the continuation
// token found among them, if any.
func collect(items []sectionItem, hits []searchHit, max int) ([]searchHit, string) {
	token := ""
	for _, item := range items {
		if item.ContinuationItemRenderer != nil {
			token = item.ContinuationItemRenderer.ContinuationEndpoint.ContinuationCommand.Token
			continue
		}
		if item.ItemSectionRenderer == nil {
			continue
		}
		for _, content := range item.ItemSectionRenderer.Contents {
			if len(hits) >= max {
				return hits, ""
			}
			vr := content.VideoRenderer
			if vr == nil || vr.VideoID == "" {
				continue
			}
			hits = append(hits, searchHit{ID: vr.VideoID, Title: vr.Title.String(), Channel: vr.OwnerText.String()})
		}
	}
	return hits, token
}

// Search returns up to maxResults fully resolved entries for query, in the
// order the platform ranks them.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - query: free-text search query.
//   - maxResults: upper bound on returned entries.
// Returns:
//   - []platform.SearchEntry: resolved entries; age-gated and unavailable ones are flagged.
//   - error: *platform.Error; KindPremierePending when a hit is an unreleased premiere.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]platform.SearchEntry, error) {
	hits, err := c.searchHits(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}

	entries := make([]platform.SearchEntry, 0, len(hits))
	for _, hit := range hits {
		entry, err := c.searchEntry(ctx, hit)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// searchHits reads the first results page and follows continuations until
// maxResults hits are collected or the results run out.
func (c *Client) searchHits(ctx context.Context, query string, maxResults int) ([]searchHit, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := req.
		SetHeader("User-Agent", browserUserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8").
		Get(c.baseURL + "/results?search_query=" + url.QueryEscape(query) + "&sp=" + videosOnlyFilter)
	if err != nil || resp.StatusCode() != http.StatusOK {
		return nil, transportError("", resp, err)
	}

	data, err := extractScriptObject(resp.Body(), initialDataMarker)
	if err != nil {
		return nil, &platform.Error{Kind: platform.KindUnknown, Message: "parse search page", Err: err}
	}

	var page initialData
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, &platform.Error{Kind: platform.KindUnknown, Message: "decode ytInitialData", Err: err}
	}

	hits, token := collect(page.Contents.TwoColumnSearchResultsRenderer.PrimaryContents.SectionListRenderer.Contents, nil, maxResults)
	for token != "" && len(hits) < maxResults {
		var items []sectionItem
		items, err = c.continuation(ctx, token)
		if err != nil {
			return nil, err
		}
		before := len(hits)
		hits, token = collect(items, hits, maxResults)
		if len(hits) == before {
			break
		}
	}
	return hits, nil
}

func (c *Client) continuation(ctx context.Context, token string) ([]sectionItem, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := req.
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", browserUserAgent).
		SetHeader("X-Youtube-Client-Name", "1").
		SetHeader("X-Youtube-Client-Version", webClientVersion).
		SetBody(continuationRequest{
			Context:      c.innertubeContext("WEB", webClientVersion, 0),
			Continuation: token,
		}).
		Post(c.baseURL + "/youtubei/v1/search?prettyPrint=false")
	if err != nil || resp.StatusCode() != http.StatusOK {
		return nil, transportError("", resp, err)
	}

	var cr continuationResponse
	if err := json.Unmarshal(resp.Body(), &cr); err != nil {
		return nil, &platform.Error{Kind: platform.KindUnknown, Message: "decode search continuation", Err: err}
	}

	var items []sectionItem
	for _, cmd := range cr.OnResponseReceivedCommands {
		items = append(items, cmd.AppendContinuationItemsAction.ContinuationItems...)
	}
	return items, nil
}

// extractScriptObject finds the inline script containing marker and returns
// the JSON object assigned right after it.
func extractScriptObject(page []byte, marker string) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	var data []byte
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, marker)
		if idx < 0 {
			return true
		}
		data = extractJSON([]byte(text[idx+len(marker):]))
		return data == nil
	})
	if data == nil {
		return nil, fmt.Errorf("script %q not found", strings.TrimSpace(marker))
	}
	return data, nil
}

// extractJSON returns the JSON object starting at b[0] by tracking brace depth.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

func consentCookie() *http.Cookie {
	return &http.Cookie{Name: "SOCS", Value: "CAI", Path: "/"}
}
