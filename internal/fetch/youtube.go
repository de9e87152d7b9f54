package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// fetchTranscript pulls the first available caption track from YouTube's
// timedtext endpoint, trying languages in configured priority order. An empty
// body for every language means captions are disabled or missing.
func (f *Fetcher) fetchTranscript(ctx context.Context, rawURL string) (Result, error) {
	videoID, err := ParseVideoID(rawURL)
	if err != nil {
		return Result{}, &Error{URL: rawURL, Reason: "could not parse video id", Err: err}
	}

	for _, lang := range f.cfg.Languages {
		text, err := f.fetchTimedText(ctx, videoID, lang)
		if err != nil {
			return Result{}, &Error{URL: rawURL, Reason: "transcript request failed", Err: err}
		}
		if text != "" {
			return Result{Text: text, Kind: KindVideoTranscript}, nil
		}
	}

	return Result{}, &Error{URL: rawURL, Reason: "transcripts are disabled or unavailable for this video"}
}

func (f *Fetcher) fetchTimedText(ctx context.Context, videoID, lang string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/timedtext?v=%s&lang=%s", f.cfg.TimedTextBase, url.QueryEscape(videoID), url.QueryEscape(lang))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build timedtext request: %w", err)
	}

	resp, err := f.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("timedtext request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("read timedtext response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("timedtext status %d", resp.StatusCode)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		// No caption track for this language.
		return "", nil
	}

	return parseTimedText(body)
}

func parseTimedText(body []byte) (string, error) {
	var doc struct {
		Texts []struct {
			Value string `xml:",chardata"`
		} `xml:"text"`
	}
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("decode timedtext xml: %w", err)
	}

	parts := make([]string, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		snippet := strings.TrimSpace(html.UnescapeString(t.Value))
		if snippet != "" {
			parts = append(parts, snippet)
		}
	}
	return strings.Join(parts, " "), nil
}
