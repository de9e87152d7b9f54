// Package session owns all mutable application state: the loaded content,
// the conversation history, the active provider/model and the context-window
// budget. Every state transition goes through the Controller, one operation
// at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"pagetalk/internal/fetch"
	"pagetalk/internal/metrics"
)

var (
	ErrNoContent          = errors.New("no content loaded")
	ErrEmptyQuestion      = errors.New("question is empty")
	ErrInvalidContextSize = errors.New("context size must be a positive integer")
	ErrUnknownModel       = errors.New("model is not available on the active provider")
)

// Fetcher is the content source collaborator.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (fetch.Result, error)
}

// Settings is the narrow write side of the persisted configuration store.
// Persistence failures are logged, never surfaced: they must not fail a
// provider or model switch.
type Settings interface {
	SetSetting(ctx context.Context, key, value string) error
}

const (
	SettingProvider = "provider"
	SettingModel    = "model"
)

type Config struct {
	Fetcher      Fetcher
	Provider     *ProviderHandle
	Model        string // overrides the provider's default, e.g. a persisted choice
	ContextWords int
	Settings     Settings
	Logger       zerolog.Logger
	Metrics      *metrics.Metrics
}

type Controller struct {
	mu sync.Mutex

	fetcher  Fetcher
	settings Settings
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	handle *ProviderHandle
	model  string
	// baselineModel is what Reset restores: the construction-time model,
	// updated by explicit model selection and provider switches, mirroring
	// the persisted setting.
	baselineModel string

	content    string
	sourceURL  string
	sourceKind fetch.Kind
	history    History

	contextWords        int
	defaultContextWords int
}

func New(cfg Config) (*Controller, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("provider handle is required")
	}
	if cfg.ContextWords <= 0 {
		return nil, ErrInvalidContextSize
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	model := cfg.Model
	if model == "" {
		model = cfg.Provider.DefaultModel()
	}
	return &Controller{
		fetcher:             cfg.Fetcher,
		settings:            cfg.Settings,
		logger:              cfg.Logger,
		metrics:             m,
		handle:              cfg.Provider,
		model:               model,
		baselineModel:       model,
		contextWords:        cfg.ContextWords,
		defaultContextWords: cfg.ContextWords,
	}, nil
}

// Load fetches the URL and, only on success, installs the text as the new
// background content and starts a fresh conversation. On failure the session
// is left exactly as it was.
func (c *Controller) Load(ctx context.Context, url string) (fetch.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		c.metrics.FetchErrors.Inc()
		return fetch.Result{}, err
	}

	c.content = res.Text
	c.sourceURL = url
	c.sourceKind = res.Kind
	c.history.Clear()
	c.metrics.ContentLoads.Inc()
	c.logger.Info().Str("url", url).Str("kind", string(res.Kind)).Int("words", wordCount(res.Text)).Msg("content loaded")
	return res, nil
}

// Ask appends the question as a user turn, sends the assembled prompt to the
// active provider and appends the reply as an assistant turn. If the provider
// fails, the user turn stays (the question is not lost) and no assistant turn
// is added.
func (c *Controller) Ask(ctx context.Context, question string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}
	return c.exchange(ctx, question)
}

// Summarize behaves like Ask with a fixed instruction to summarize the loaded
// content. The exchange lands in history like any other, keeping a single
// source of truth for context.
func (c *Controller) Summarize(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exchange(ctx, summaryInstruction)
}

func (c *Controller) exchange(ctx context.Context, question string) (string, error) {
	if c.content == "" {
		return "", ErrNoContent
	}
	if err := c.ensureModel(ctx); err != nil {
		return "", err
	}

	prior := c.history.Turns()
	c.history.Append(Turn{Role: RoleUser, Text: question})

	msgs, dropped := assemblePrompt(promptInput{
		SourceKind:  c.sourceKind,
		SourceURL:   c.sourceURL,
		Background:  c.content,
		History:     prior,
		Question:    question,
		BudgetWords: c.contextWords,
	})
	if dropped > 0 {
		c.metrics.TrimmedTurns.Add(float64(dropped))
		c.logger.Debug().Int("dropped_turns", dropped).Msg("trimmed prompt to context budget")
	}

	resp, err := c.handle.Provider().Chat(ctx, chatRequest(c.model, msgs, c.contextWords))
	if err != nil {
		c.metrics.ProviderErrors.Inc()
		return "", err
	}

	c.history.Append(Turn{Role: RoleAssistant, Text: resp.Text})
	c.metrics.Questions.Inc()
	return resp.Text, nil
}

// ensureModel resolves an empty active model to the provider's first listed
// model. This is the only place listing happens implicitly, and only because
// a chat call cannot proceed without a model.
func (c *Controller) ensureModel(ctx context.Context) error {
	if c.model != "" {
		return nil
	}
	models, err := c.handle.ListModels(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		return fmt.Errorf("%w: provider lists no models", ErrUnknownModel)
	}
	c.model = models[0]
	c.persistSetting(ctx, SettingModel, c.model)
	return nil
}

// SwitchProvider installs a new provider handle and resets the active model
// to the handle's default. History and loaded content are untouched. Handle
// construction happens in the registry before this call, so a misconfigured
// provider never replaces the active one.
func (c *Controller) SwitchProvider(ctx context.Context, h *ProviderHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handle = h
	c.model = h.DefaultModel()
	c.baselineModel = c.model
	c.persistSetting(ctx, SettingProvider, h.Kind())
	c.persistSetting(ctx, SettingModel, c.model)
	c.logger.Info().Str("provider", h.Kind()).Str("model", c.model).Msg("provider switched")
}

// ListModels returns the active provider's models, fetched lazily and cached
// on the handle.
func (c *Controller) ListModels(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	h := c.handle
	c.mu.Unlock()
	return h.ListModels(ctx)
}

// SetModel selects a model by name; it must be one of the listed models.
func (c *Controller) SetModel(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	models, err := c.handle.ListModels(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(models, name) {
		return fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	c.model = name
	c.baselineModel = name
	c.persistSetting(ctx, SettingModel, name)
	return nil
}

func (c *Controller) SetContextSize(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 {
		return ErrInvalidContextSize
	}
	c.contextWords = n
	return nil
}

// ClearHistory empties the conversation only; content, source and provider
// selection stay.
func (c *Controller) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history.Clear()
}

// Reset returns the session to its freshly constructed state: no content, no
// history, default model and context budget. The active provider stays, as it
// did at construction.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content = ""
	c.sourceURL = ""
	c.sourceKind = ""
	c.history.Clear()
	c.model = c.baselineModel
	c.contextWords = c.defaultContextWords
}

func (c *Controller) persistSetting(ctx context.Context, key, value string) {
	if c.settings == nil {
		return
	}
	if err := c.settings.SetSetting(ctx, key, value); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to persist setting")
	}
}

func (c *Controller) Content() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content
}

func (c *Controller) SourceURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sourceURL
}

func (c *Controller) SourceKind() fetch.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sourceKind
}

func (c *Controller) History() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Turns()
}

func (c *Controller) ProviderKind() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle.Kind()
}

func (c *Controller) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

func (c *Controller) ContextSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contextWords
}
