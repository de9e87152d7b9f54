package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"pagetalk/internal/fetch"
	"pagetalk/internal/providers"
	"pagetalk/internal/session"
)

type stubProvider struct {
	reply   string
	chatErr error
	models  []string
}

func (s *stubProvider) Chat(context.Context, providers.ChatRequest) (providers.ChatResponse, error) {
	if s.chatErr != nil {
		return providers.ChatResponse{}, s.chatErr
	}
	return providers.ChatResponse{Text: s.reply}, nil
}

func (s *stubProvider) ListModels(context.Context) ([]string, error) {
	return s.models, nil
}

type stubFetcher struct {
	res fetch.Result
	err error
}

func (s *stubFetcher) Fetch(context.Context, string) (fetch.Result, error) {
	if s.err != nil {
		return fetch.Result{}, s.err
	}
	return s.res, nil
}

type memSettings struct{ values map[string]string }

func (m *memSettings) SetSetting(_ context.Context, key, value string) error {
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	return nil
}

func run(t *testing.T, p *stubProvider, f session.Fetcher, input string) string {
	t.Helper()
	ctrl, err := session.New(session.Config{
		Fetcher:      f,
		Provider:     session.NewProviderHandle("ollama", p, "test-model"),
		ContextWords: 32000,
		Logger:       zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}

	var out bytes.Buffer
	r := New(Config{
		Controller: ctrl,
		BuildProvider: func(kind string) (*session.ProviderHandle, error) {
			return session.NewProviderHandle(kind, p, "switched-model"), nil
		},
		Settings: &memSettings{},
		In:       strings.NewReader(input),
		Out:      &out,
		Logger:   zerolog.Nop(),
	})
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	return out.String()
}

func TestAskRendersAnswer(t *testing.T) {
	p := &stubProvider{reply: "Alice"}
	f := &stubFetcher{res: fetch.Result{Text: "Alice said hi.", Kind: fetch.KindWebpage}}

	out := run(t, p, f, "/load https://example.com\nwho said hi?\n/exit\n")
	if !strings.Contains(out, "Alice") {
		t.Fatalf("expected answer in output, got:\n%s", out)
	}
	if !strings.Contains(out, "Goodbye!") {
		t.Fatalf("expected farewell, got:\n%s", out)
	}
}

func TestAskWithoutContentIsFriendly(t *testing.T) {
	p := &stubProvider{reply: "never used"}
	f := &stubFetcher{}

	out := run(t, p, f, "anything loaded?\n/exit\n")
	if !strings.Contains(out, "No content loaded") {
		t.Fatalf("expected friendly no-content message, got:\n%s", out)
	}
}

func TestLoadErrorIsFriendly(t *testing.T) {
	p := &stubProvider{}
	f := &stubFetcher{err: &fetch.Error{URL: "https://bad", Reason: "request failed"}}

	out := run(t, p, f, "/load https://bad\n/exit\n")
	if !strings.Contains(out, "request failed") {
		t.Fatalf("expected fetch reason surfaced, got:\n%s", out)
	}
}

func TestModelByIndex(t *testing.T) {
	p := &stubProvider{reply: "ok", models: []string{"llama3", "mistral"}}
	f := &stubFetcher{res: fetch.Result{Text: "text", Kind: fetch.KindWebpage}}

	out := run(t, p, f, "/models\n/model 1\n/model\n/exit\n")
	if !strings.Contains(out, "llama3") {
		t.Fatalf("expected model listing, got:\n%s", out)
	}
	if !strings.Contains(out, "Using model: mistral") {
		t.Fatalf("expected second model selected, got:\n%s", out)
	}
	if !strings.Contains(out, "Active model: mistral") {
		t.Fatalf("expected active model echoed, got:\n%s", out)
	}
}

func TestUnknownCommand(t *testing.T) {
	p := &stubProvider{}
	out := run(t, p, &stubFetcher{}, "/dance\n/exit\n")
	if !strings.Contains(out, "Unknown command /dance") {
		t.Fatalf("expected unknown command notice, got:\n%s", out)
	}
}

func TestEOFEndsSession(t *testing.T) {
	p := &stubProvider{}
	// No /exit: the reader just runs dry.
	out := run(t, p, &stubFetcher{}, "/help\n")
	if !strings.Contains(out, "Commands:") {
		t.Fatalf("expected help output, got:\n%s", out)
	}
}
