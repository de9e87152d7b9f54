// Package fetch turns a URL into plain text the session can chat about:
// YouTube caption tracks for video links, extracted body text for everything
// else.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Kind string

const (
	KindVideoTranscript Kind = "video_transcript"
	KindWebpage         Kind = "webpage"
)

type Result struct {
	Text string
	Kind Kind
}

// Error is the single failure type of the content source. It wraps the cause
// and keeps the URL and a human-readable reason for the caller to render.
type Error struct {
	URL    string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Cache is an optional read-through store for fetched content. A nil cache
// disables caching; cache failures never fail a fetch.
type Cache interface {
	Get(ctx context.Context, url string) (Result, bool)
	Set(ctx context.Context, url string, res Result)
}

type Config struct {
	HTTPClient    *http.Client
	Cache         Cache
	Languages     []string
	TimedTextBase string
	Logger        zerolog.Logger
}

type Fetcher struct {
	cfg Config
}

func New(cfg Config) *Fetcher {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"de", "en"}
	}
	if cfg.TimedTextBase == "" {
		cfg.TimedTextBase = "https://www.youtube.com"
	}
	cfg.TimedTextBase = strings.TrimRight(cfg.TimedTextBase, "/")
	return &Fetcher{cfg: cfg}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Result, error) {
	if cached, ok := f.cacheGet(ctx, rawURL); ok {
		f.cfg.Logger.Debug().Str("url", rawURL).Msg("content cache hit")
		return cached, nil
	}

	var res Result
	var err error
	if IsVideoURL(rawURL) {
		res, err = f.fetchTranscript(ctx, rawURL)
	} else {
		res, err = f.fetchWebpage(ctx, rawURL)
	}
	if err != nil {
		return Result{}, err
	}

	f.cacheSet(ctx, rawURL, res)
	return res, nil
}

func (f *Fetcher) cacheGet(ctx context.Context, url string) (Result, bool) {
	if f.cfg.Cache == nil {
		return Result{}, false
	}
	return f.cfg.Cache.Get(ctx, url)
}

func (f *Fetcher) cacheSet(ctx context.Context, url string, res Result) {
	if f.cfg.Cache == nil {
		return
	}
	f.cfg.Cache.Set(ctx, url, res)
}

// IsVideoURL reports whether the URL points at a YouTube video.
func IsVideoURL(url string) bool {
	for _, marker := range []string{"youtube.com", "youtu.be", "watch?v="} {
		if strings.Contains(url, marker) {
			return true
		}
	}
	return false
}

// ParseVideoID extracts the video identifier from the common YouTube URL
// shapes, falling back to the last path segment.
func ParseVideoID(url string) (string, error) {
	if _, after, found := strings.Cut(url, "watch?v="); found {
		id, _, _ := strings.Cut(after, "&")
		if id != "" {
			return id, nil
		}
	}
	trimmed := strings.TrimRight(url, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if id, _, found := strings.Cut(trimmed, "?"); found {
		trimmed = id
	}
	if trimmed == "" {
		return "", fmt.Errorf("no video id in %q", url)
	}
	return trimmed, nil
}
