package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"pagetalk/internal/providers"
)

func TestChatSuccess(t *testing.T) {
	var gotAuth, gotReferer, gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Alice"}}]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "sk-test", Referer: "https://example.com"})
	resp, err := c.Chat(context.Background(), providers.ChatRequest{
		Model:    FreeModel,
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "who said hi?"}},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Text != "Alice" {
		t.Fatalf("expected Alice, got %q", resp.Text)
	}
	if gotPath != "/chat/completions" {
		t.Fatalf("expected /chat/completions, got %s", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("expected bearer credential, got %q", gotAuth)
	}
	if gotReferer != "https://example.com" {
		t.Fatalf("expected referer header, got %q", gotReferer)
	}
	if gotBody["model"] != FreeModel {
		t.Fatalf("expected model %q, got %v", FreeModel, gotBody["model"])
	}
}

func TestChatRejectedKey(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "bad", MaxRetries: 3, BackoffBase: time.Millisecond})
	_, err := c.Chat(context.Background(), providers.ChatRequest{Model: FreeModel, Messages: []providers.Message{{Role: providers.RoleUser, Content: "q"}}})
	if !errors.Is(err, providers.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("auth failures must not be retried, got %d calls", n)
	}
}

func TestChatRetriesTemporaryErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "k", MaxRetries: 2, BackoffBase: time.Millisecond})
	resp, err := c.Chat(context.Background(), providers.ChatRequest{Model: FreeModel, Messages: []providers.Message{{Role: providers.RoleUser, Content: "q"}}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Text != "ok" {
		t.Fatalf("expected ok, got %q", resp.Text)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("expected 2 calls, got %d", n)
	}
}

func TestChatEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "k"})
	_, err := c.Chat(context.Background(), providers.ChatRequest{Model: FreeModel, Messages: []providers.Message{{Role: providers.RoleUser, Content: "q"}}})
	if !errors.Is(err, providers.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}

func TestListModelsValidKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		if r.URL.Path != "/models" {
			t.Errorf("expected /models, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "k"})
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("list models: %v", err)
	}
	if len(models) != 1 || models[0] != FreeModel {
		t.Fatalf("expected [%s], got %v", FreeModel, models)
	}
}

func TestListModelsRejectedKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "bad"})
	if _, err := c.ListModels(context.Background()); !errors.Is(err, providers.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
}
