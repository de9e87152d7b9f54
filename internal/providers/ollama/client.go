package ollama

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

type Config struct {
	Host        string
	HTTPClient  *http.Client
	MaxRetries  int
	BackoffBase time.Duration
}

type Client struct {
	cfg Config
}

func New(cfg Config) *Client {
	if cfg.Host == "" {
		cfg.Host = "http://127.0.0.1:11434"
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
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

func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("build tags request: %w", err)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list ollama models: %w: %w", providers.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read tags response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("ollama tags status %d: %w", resp.StatusCode, providers.ErrProvider)
	}

	var out struct {
		Models []struct {
			Model string `json:"model"`
			Name  string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode tags response: %w", err)
	}

	models := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		if m.Model != "" {
			models = append(models, m.Model)
			continue
		}
		if m.Name != "" {
			models = append(models, m.Name)
		}
	}
	return models, nil
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
		"stream":   false,
	}
	if req.ContextWindow > 0 {
		payload["options"] = map[string]any{"num_ctx": req.ContextWindow}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal ollama payload: %w", err)
	}
	return b, nil
}

func (c *Client) callOnce(ctx context.Context, body []byte) (text string, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("ollama chat: %w: %w", providers.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", false, fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return "", true, fmt.Errorf("ollama temporary status %d: %w", resp.StatusCode, providers.ErrProvider)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", false, fmt.Errorf("ollama status %d: %w", resp.StatusCode, providers.ErrProvider)
	}

	var out struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", false, fmt.Errorf("decode chat response: %w", err)
	}
	if strings.TrimSpace(out.Message.Content) == "" {
		return "", false, fmt.Errorf("empty message content in ollama response: %w", providers.ErrProvider)
	}
	return out.Message.Content, false, nil
}
