package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pagetalk/internal/providers"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// FreeModel is OpenRouter's routing model for the free tier. Requests sent to
// it are dispatched to whichever free model is currently available, so the
// model list is this single entry.
const FreeModel = "openrouter/free"

type Config struct {
	BaseURL     string
	APIKey      string
	Referer     string
	HTTPClient  *http.Client
	MaxRetries  int
	BackoffBase time.Duration
}

type Client struct {
	cfg Config
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 400 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Client{cfg: cfg}
}

var _ providers.Provider = (*Client)(nil)

// ListModels validates the credential with a lightweight HEAD request and
// returns the free routing model.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.cfg.BaseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("build models request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("validate openrouter key: %w: %w", providers.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("openrouter rejected the API key (status %d): %w", resp.StatusCode, providers.ErrAuth)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("openrouter models status %d: %w", resp.StatusCode, providers.ErrProvider)
	}
	return []string{FreeModel}, nil
}

func (c *Client) Chat(ctx context.Context, req providers.ChatRequest) (providers.ChatResponse, error) {
	body, err := buildPayload(req)
	if err != nil {
		return providers.ChatResponse{}, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		text, retry, err := c.callOnce(ctx, body)
		if err == nil {
			return providers.ChatResponse{Text: text}, nil
		}
		lastErr = err
		if !retry || attempt == c.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return providers.ChatResponse{}, ctx.Err()
		case <-time.After(c.cfg.BackoffBase * (1 << attempt)):
		}
	}

	return providers.ChatResponse{}, lastErr
}

func buildPayload(req providers.ChatRequest) ([]byte, error) {
	messages := make([]map[string]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, map[string]string{"role": m.Role, "content": m.Content})
	}
	payload := map[string]any{
		"model":    req.Model,
		"messages": messages,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal openrouter payload: %w", err)
	}
	return b, nil
}

func (c *Client) callOnce(ctx context.Context, body []byte) (text string, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("openrouter chat: %w: %w", providers.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", false, fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", false, fmt.Errorf("openrouter rejected the API key (status %d): %w", resp.StatusCode, providers.ErrAuth)
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return "", true, fmt.Errorf("openrouter temporary status %d: %w", resp.StatusCode, providers.ErrProvider)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", false, fmt.Errorf("openrouter status %d: %w", resp.StatusCode, providers.ErrProvider)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", false, fmt.Errorf("decode chat response: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", false, fmt.Errorf("empty choices in openrouter response: %w", providers.ErrProvider)
	}
	return out.Choices[0].Message.Content, false, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
}
