package fetch

import (
	"context"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

func (f *Fetcher) fetchWebpage(ctx context.Context, rawURL string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, &Error{URL: rawURL, Reason: "invalid url", Err: err}
	}
	req.Header.Set("User-Agent", "pagetalk/1.0")

	resp, err := f.cfg.HTTPClient.Do(req)
	if err != nil {
		return Result{}, &Error{URL: rawURL, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &Error{URL: rawURL, Reason: "unexpected status " + resp.Status}
	}

	text, err := extractText(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return Result{}, &Error{URL: rawURL, Reason: "could not parse html", Err: err}
	}
	if text == "" {
		return Result{}, &Error{URL: rawURL, Reason: "no textual content extracted from webpage"}
	}
	return Result{Text: text, Kind: KindWebpage}, nil
}

// extractText walks the HTML tree collecting text nodes, skipping script,
// style and noscript subtrees, and joins the fragments with single spaces.
func extractText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, strings.Join(strings.Fields(t), " "))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(parts, " "), nil
}
