package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "settings.db")
	s, err := Open(context.Background(), "sqlite", dsn, true, "")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSettingRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetSetting(ctx, "provider", "ollama"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := s.GetSetting(ctx, "provider")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "ollama" {
		t.Fatalf("expected ollama, got %q", got)
	}
}

func TestSettingUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetSetting(ctx, "model", "llama3"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetSetting(ctx, "model", "mistral"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := s.GetSetting(ctx, "model")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "mistral" {
		t.Fatalf("expected mistral, got %q", got)
	}
}

func TestGetMissingSetting(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetSetting(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteSetting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetSetting(ctx, "api_key", "sealed"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.DeleteSetting(ctx, "api_key"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetSetting(ctx, "api_key"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteSetting(ctx, "api_key"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for second delete, got %v", err)
	}
}

func TestSettingsMap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := map[string]string{"provider": "openrouter", "model": "openrouter/free"}
	for k, v := range want {
		if err := s.SetSetting(ctx, k, v); err != nil {
			t.Fatalf("set %q: %v", k, err)
		}
	}

	got, err := s.Settings(ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d settings, got %d", len(want), len(got))
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("setting %q: expected %q, got %q", k, v, got[k])
		}
	}
}

func TestNormalizeDriver(t *testing.T) {
	cases := map[string]string{
		"sqlite":   "sqlite",
		"sqlite3":  "sqlite",
		"postgres": "postgres",
		"pgx":      "postgres",
		" SQLite ": "sqlite",
	}
	for in, want := range cases {
		if got := normalizeDriver(in); got != want {
			t.Errorf("normalizeDriver(%q) = %q, want %q", in, got, want)
		}
	}
}
