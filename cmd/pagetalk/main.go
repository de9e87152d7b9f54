package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"pagetalk/internal/cache"
	"pagetalk/internal/cli"
	"pagetalk/internal/config"
	"pagetalk/internal/crypto"
	"pagetalk/internal/fetch"
	"pagetalk/internal/metrics"
	"pagetalk/internal/providers/registry"
	"pagetalk/internal/session"
	"pagetalk/internal/storage"
)

func main() {
	logLevel := pflag.String("log-level", "", "log level (debug, info, warn, error)")
	dbDSN := pflag.String("db", "", "settings database DSN")
	providerKind := pflag.String("provider", "", "startup provider (ollama, openrouter)")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *dbDSN != "" {
		cfg.DB.DSN = *dbDSN
	}
	if *providerKind != "" {
		cfg.Provider = strings.ToLower(*providerKind)
	}

	setupLogger(cfg.Log.Level)
	log.Info().
		Str("provider", cfg.Provider).
		Str("db_driver", cfg.DB.Driver).
		Int("context_words", cfg.ContextWords).
		Msg("starting pagetalk")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.DB.Driver == "sqlite" {
		if dir := filepath.Dir(cfg.DB.DSN); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				log.Fatal().Err(err).Str("dir", dir).Msg("failed to create settings directory")
			}
		}
	}
	store, err := storage.Open(ctx, cfg.DB.Driver, cfg.DB.DSN, cfg.DB.AutoMigrate, "migrations")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open settings store")
	}
	defer store.Close()

	var sealer *crypto.Manager
	if len(cfg.MasterKey) > 0 {
		sealer, err = crypto.NewManager(cfg.MasterKey)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize crypto manager")
		}
	}
	settings := &settingsStore{store: store, sealer: sealer}

	var contentCache fetch.Cache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, content cache disabled")
		} else {
			defer rdb.Close()
			contentCache = cache.New(rdb, cfg.Redis.ContentTTL, log.Logger)
		}
	}

	httpClient := &http.Client{Timeout: cfg.HTTP.ClientTimeout}
	fetcher := fetch.New(fetch.Config{
		HTTPClient: httpClient,
		Cache:      contentCache,
		Logger:     log.Logger,
	})

	buildProvider := func(kind string) (*session.ProviderHandle, error) {
		p, defaultModel, err := registry.Build(registry.BuildOptions{
			Kind:        kind,
			Host:        cfg.Ollama.Host,
			BaseURL:     cfg.OpenRouter.BaseURL,
			APIKey:      resolveAPIKey(ctx, cfg, settings),
			Referer:     cfg.OpenRouter.Referer,
			HTTPClient:  httpClient,
			MaxRetries:  cfg.HTTP.MaxRetries,
			BackoffBase: cfg.HTTP.BackoffBase,
		})
		if err != nil {
			return nil, err
		}
		return session.NewProviderHandle(kind, p, defaultModel), nil
	}

	startupProvider, startupModel := startupSelection(ctx, cfg, settings)
	handle, err := buildProvider(startupProvider)
	if err != nil {
		log.Fatal().Err(err).Str("provider", startupProvider).Msg("failed to build startup provider")
	}

	controller, err := session.New(session.Config{
		Fetcher:      fetcher,
		Provider:     handle,
		Model:        startupModel,
		ContextWords: cfg.ContextWords,
		Settings:     settings,
		Logger:       log.Logger,
		Metrics:      metrics.Global(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create session controller")
	}

	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr)
	}

	repl := cli.New(cli.Config{
		Controller:    controller,
		BuildProvider: buildProvider,
		Settings:      settings,
		In:            os.Stdin,
		Out:           os.Stdout,
		Logger:        log.Logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- repl.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("repl error")
		}
	}
	log.Info().Msg("stopped")
}

// startupSelection resolves the provider and model to start with: persisted
// settings win over environment defaults, matching how the last /provider and
// /model choices are saved.
func startupSelection(ctx context.Context, cfg *config.Config, settings *settingsStore) (provider, model string) {
	provider = cfg.Provider
	if v, err := settings.store.GetSetting(ctx, session.SettingProvider); err == nil && v != "" {
		provider = v
	}
	model = cfg.Model
	if v, err := settings.store.GetSetting(ctx, session.SettingModel); err == nil && v != "" {
		model = v
	}
	return provider, model
}

func resolveAPIKey(ctx context.Context, cfg *config.Config, settings *settingsStore) string {
	if cfg.OpenRouter.APIKey != "" {
		return cfg.OpenRouter.APIKey
	}
	key, err := settings.GetAPIKey(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Warn().Err(err).Msg("failed to read stored api key")
	}
	return key
}

// settingsStore adapts the storage layer to the narrow settings interface the
// controller and REPL use, sealing the API key at rest when a master key is
// configured.
type settingsStore struct {
	store  *storage.Store
	sealer *crypto.Manager
}

func (s *settingsStore) SetSetting(ctx context.Context, key, value string) error {
	if key == cli.SettingAPIKey && s.sealer != nil {
		sealed, err := s.sealer.SealString(value)
		if err != nil {
			return fmt.Errorf("seal api key: %w", err)
		}
		value = sealed
	}
	return s.store.SetSetting(ctx, key, value)
}

func (s *settingsStore) GetAPIKey(ctx context.Context) (string, error) {
	raw, err := s.store.GetSetting(ctx, cli.SettingAPIKey)
	if err != nil {
		return "", err
	}
	if s.sealer == nil {
		return raw, nil
	}
	return s.sealer.OpenString(raw)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info().Str("addr", addr).Msg("metrics server started")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("metrics server failed")
	}
}

func setupLogger(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLogLevel(level))
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
