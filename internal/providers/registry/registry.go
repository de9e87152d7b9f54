// Package registry constructs concrete providers from a kind string and
// connection options. Construction never touches the network; model listing
// stays lazy until explicitly requested.
package registry

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pagetalk/internal/providers"
	"pagetalk/internal/providers/ollama"
	"pagetalk/internal/providers/openrouter"
)

const (
	KindOllama     = "ollama"
	KindOpenRouter = "openrouter"
)

var (
	ErrUnknownKind   = errors.New("unknown provider kind")
	ErrMissingAPIKey = errors.New("openrouter requires an API key")
)

type BuildOptions struct {
	Kind        string
	Host        string // ollama
	BaseURL     string // openrouter
	APIKey      string
	Referer     string
	HTTPClient  *http.Client
	MaxRetries  int
	BackoffBase time.Duration
}

// Build returns the provider for opts.Kind together with its default model.
// An empty default model means "first listed model", resolved lazily at the
// first chat call.
func Build(opts BuildOptions) (providers.Provider, string, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Kind)) {
	case KindOllama:
		return ollama.New(ollama.Config{
			Host:        opts.Host,
			HTTPClient:  opts.HTTPClient,
			MaxRetries:  opts.MaxRetries,
			BackoffBase: opts.BackoffBase,
		}), "", nil

	case KindOpenRouter:
		if strings.TrimSpace(opts.APIKey) == "" {
			return nil, "", ErrMissingAPIKey
		}
		return openrouter.New(openrouter.Config{
			BaseURL:     opts.BaseURL,
			APIKey:      opts.APIKey,
			Referer:     opts.Referer,
			HTTPClient:  opts.HTTPClient,
			MaxRetries:  opts.MaxRetries,
			BackoffBase: opts.BackoffBase,
		}), openrouter.FreeModel, nil

	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownKind, opts.Kind)
	}
}
