package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderOllama     = "ollama"
	ProviderOpenRouter = "openrouter"
)

var (
	ErrInvalidProvider     = errors.New("PROVIDER must be 'ollama' or 'openrouter'")
	ErrInvalidContextWords = errors.New("CONTEXT_WORDS must be > 0")
	ErrInvalidMasterKey    = errors.New("MASTER_KEY_B64 must decode to 32 bytes")
)

type Config struct {
	Provider     string
	Model        string
	ContextWords int

	Ollama     OllamaConfig
	OpenRouter OpenRouterConfig
	HTTP       HTTPConfig
	DB         DBConfig
	Redis      RedisConfig
	Metrics    MetricsConfig
	Log        LogConfig

	MasterKey []byte
}

type OllamaConfig struct {
	Host string
}

type OpenRouterConfig struct {
	BaseURL string
	APIKey  string
	Referer string
}

type HTTPConfig struct {
	ClientTimeout time.Duration
	MaxRetries    int
	BackoffBase   time.Duration
}

type DBConfig struct {
	Driver      string
	DSN         string
	AutoMigrate bool
}

type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	ContentTTL time.Duration
}

type MetricsConfig struct {
	Addr string
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Provider:     strings.ToLower(mustEnv("PROVIDER", ProviderOllama)),
		Model:        mustEnv("MODEL", ""),
		ContextWords: mustInt("CONTEXT_WORDS", 32000),
		Ollama: OllamaConfig{
			Host: mustEnv("OLLAMA_HOST", "http://127.0.0.1:11434"),
		},
		OpenRouter: OpenRouterConfig{
			BaseURL: mustEnv("OPENROUTER_BASE_URL", ""),
			APIKey:  mustEnv("OPENROUTER_API_KEY", ""),
			Referer: mustEnv("OPENROUTER_REFERER", ""),
		},
		HTTP: HTTPConfig{
			ClientTimeout: mustDuration("HTTP_TIMEOUT", 60*time.Second),
			MaxRetries:    mustInt("HTTP_MAX_RETRIES", 2),
			BackoffBase:   mustDuration("HTTP_BACKOFF_BASE", 400*time.Millisecond),
		},
		DB: DBConfig{
			Driver:      strings.ToLower(mustEnv("DB_DRIVER", "sqlite")),
			DSN:         mustEnv("DB_DSN", defaultDBPath()),
			AutoMigrate: mustBool("AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:       mustEnv("REDIS_ADDR", ""),
			Password:   mustEnv("REDIS_PASSWORD", ""),
			DB:         mustInt("REDIS_DB", 0),
			ContentTTL: mustDuration("CONTENT_CACHE_TTL", 24*time.Hour),
		},
		Metrics: MetricsConfig{
			Addr: mustEnv("METRICS_ADDR", ""),
		},
		Log: LogConfig{
			Level: strings.ToLower(mustEnv("LOG_LEVEL", "info")),
		},
	}

	if cfg.Provider != ProviderOllama && cfg.Provider != ProviderOpenRouter {
		return nil, ErrInvalidProvider
	}
	if cfg.ContextWords <= 0 {
		return nil, ErrInvalidContextWords
	}

	if raw := mustEnv("MASTER_KEY_B64", ""); raw != "" {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMasterKey, err)
		}
		if len(key) != 32 {
			return nil, ErrInvalidMasterKey
		}
		cfg.MasterKey = key
	}

	return cfg, nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "pagetalk.db"
	}
	return filepath.Join(home, ".pagetalk", "pagetalk.db")
}

func mustEnv(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func mustInt(key string, def int) int {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func mustBool(key string, def bool) bool {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func mustDuration(key string, def time.Duration) time.Duration {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
