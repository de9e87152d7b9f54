// Package cache is a redis-backed read-through store for fetched content,
// keyed by URL. It is best effort: redis trouble degrades to a direct fetch
// and is only logged.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"pagetalk/internal/fetch"
)

const keyPrefix = "pagetalk:content:"

type Store struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

var _ fetch.Cache = (*Store)(nil)

type entry struct {
	Kind fetch.Kind `json:"kind"`
	Text string     `json:"text"`
}

func New(rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{redis: rdb, ttl: ttl, logger: logger}
}

func (s *Store) Get(ctx context.Context, url string) (fetch.Result, bool) {
	raw, err := s.redis.Get(ctx, keyPrefix+url).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("url", url).Msg("content cache get failed")
		}
		return fetch.Result{}, false
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		s.logger.Warn().Err(err).Str("url", url).Msg("corrupt content cache entry")
		return fetch.Result{}, false
	}
	return fetch.Result{Text: e.Text, Kind: e.Kind}, true
}

func (s *Store) Set(ctx context.Context, url string, res fetch.Result) {
	raw, err := json.Marshal(entry{Kind: res.Kind, Text: res.Text})
	if err != nil {
		s.logger.Warn().Err(err).Str("url", url).Msg("marshal content cache entry failed")
		return
	}
	if err := s.redis.Set(ctx, keyPrefix+url, raw, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("url", url).Msg("content cache set failed")
	}
}
