package session

import (
	"context"
	"sync"

	"pagetalk/internal/providers"
)

// ProviderHandle pairs a provider with its kind and default model and caches
// the model list. The cache is populated on the first ListModels call, never
// at construction; switching providers installs a fresh handle, which is what
// invalidates the previous cache.
type ProviderHandle struct {
	kind         string
	provider     providers.Provider
	defaultModel string

	mu     sync.Mutex
	models []string
}

func NewProviderHandle(kind string, p providers.Provider, defaultModel string) *ProviderHandle {
	return &ProviderHandle{kind: kind, provider: p, defaultModel: defaultModel}
}

func (h *ProviderHandle) Kind() string { return h.kind }

func (h *ProviderHandle) DefaultModel() string { return h.defaultModel }

func (h *ProviderHandle) Provider() providers.Provider { return h.provider }

func (h *ProviderHandle) ListModels(ctx context.Context) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.models == nil {
		models, err := h.provider.ListModels(ctx)
		if err != nil {
			return nil, err
		}
		h.models = models
	}
	out := make([]string, len(h.models))
	copy(out, h.models)
	return out, nil
}
