package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const rateLimitKeyPrefix = "ratelimit:"

// RateLimitStore is a fixed-window request counter shared by every API
// instance. It satisfies echo's middleware.RateLimiterStore.
type RateLimitStore struct {
	client  redis.Cmdable
	limit   int64
	window  time.Duration
	timeout time.Duration
	log     zerolog.Logger
}

// NewRateLimitStore allows limit requests per identifier in each window.
func NewRateLimitStore(client redis.Cmdable, limit int, window time.Duration, log zerolog.Logger) *RateLimitStore {
	return &RateLimitStore{
		client:  client,
		limit:   int64(limit),
		window:  window,
		timeout: defaultTimeout,
		log:     log,
	}
}

// Allow counts one request for identifier. The window starts with the first
// request and is not extended by later ones. Redis failures let the request
// through.
func (s *RateLimitStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	count, err := s.incr(ctx, rateLimitKeyPrefix+identifier)
	if err != nil {
		s.log.Warn().Err(err).Str("identifier", identifier).Msg("rate limit store unavailable")
		return true, nil
	}
	return count <= s.limit, nil
}

// incr seeds the window key with its TTL and increments it in one MULTI
// block, so a counter can never be left without an expiry.
func (s *RateLimitStore) incr(ctx context.Context, key string) (int64, error) {
	var count *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, s.window)
		count = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("rate limit incr: %w", err)
	}
	return count.Val(), nil
}
