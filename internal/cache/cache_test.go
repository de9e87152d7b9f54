package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"pagetalk/internal/fetch"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, ttl, zerolog.Nop()), mr
}

func TestRoundTrip(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	want := fetch.Result{Text: "Alice said hi.", Kind: fetch.KindWebpage}
	store.Set(ctx, "https://example.com", want)

	got, ok := store.Get(ctx, "https://example.com")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestMiss(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	if _, ok := store.Get(context.Background(), "https://nowhere"); ok {
		t.Fatalf("expected cache miss")
	}
}

func TestEntriesExpire(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	store.Set(ctx, "https://example.com", fetch.Result{Text: "t", Kind: fetch.KindWebpage})
	mr.FastForward(2 * time.Minute)

	if _, ok := store.Get(ctx, "https://example.com"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestCorruptEntryIsAMiss(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	if err := mr.Set(keyPrefix+"https://example.com", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok := store.Get(context.Background(), "https://example.com"); ok {
		t.Fatalf("corrupt entries must read as a miss")
	}
}

func TestUnreachableRedisDegrades(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := New(rdb, time.Hour, zerolog.Nop())
	mr.Close()

	ctx := context.Background()
	store.Set(ctx, "https://example.com", fetch.Result{Text: "t", Kind: fetch.KindWebpage})
	if _, ok := store.Get(ctx, "https://example.com"); ok {
		t.Fatalf("a dead cache must behave like a miss")
	}
}
