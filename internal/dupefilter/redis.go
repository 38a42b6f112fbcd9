package dupefilter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spidermesh/frontier/internal/request"
	"github.com/spidermesh/frontier/internal/stats"
)

// Redis is a duplicate filter backed by a Redis set, for dedup state
// shared between crawler processes or kept across restarts without a
// job directory.
//
// The fingerprint set lives at "<prefix>fingerprints". An optional TTL
// expires the whole set some time after the last insertion, so
// abandoned crawls do not leak keys forever.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration

	logger *slog.Logger
	stats  stats.Collector

	debug       bool
	loggedFirst bool
}

// RedisOption configures a Redis filter.
type RedisOption func(*Redis)

// WithRedisTTL expires the fingerprint set ttl after the most recent
// insertion. Zero (the default) keeps the set until deleted externally.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		r.ttl = ttl
	}
}

// WithRedisLogger sets the logger used by the Log hook.
func WithRedisLogger(logger *slog.Logger) RedisOption {
	return func(r *Redis) {
		r.logger = logger
	}
}

// WithRedisStats sets the counter collector for dupefilter/filtered.
func WithRedisStats(collector stats.Collector) RedisOption {
	return func(r *Redis) {
		r.stats = collector
	}
}

// WithRedisDebug makes the Log hook report every duplicate.
func WithRedisDebug(debug bool) RedisOption {
	return func(r *Redis) {
		r.debug = debug
	}
}

// NewRedis creates a Redis-backed duplicate filter. prefix namespaces
// the fingerprint set so several crawls can share one Redis instance.
func NewRedis(addr, prefix string, opts ...RedisOption) *Redis {
	r := &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		key:    prefix + "fingerprints",
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.stats == nil {
		r.stats = stats.Discard{}
	}
	return r
}

// Open verifies the connection.
func (r *Redis) Open(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	return nil
}

// Seen records req's fingerprint via SADD, whose reply distinguishes a
// fresh insertion from an already-present member.
func (r *Redis) Seen(ctx context.Context, req *request.Request) (bool, error) {
	added, err := r.client.SAdd(ctx, r.key, req.Fingerprint()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record fingerprint: %w", err)
	}

	if r.ttl > 0 {
		if err := r.client.Expire(ctx, r.key, r.ttl).Err(); err != nil {
			return false, fmt.Errorf("failed to refresh fingerprint TTL: %w", err)
		}
	}

	return added == 0, nil
}

// Log reports a dropped duplicate, with the same once-then-silent
// behavior as the memory filter.
func (r *Redis) Log(req *request.Request) {
	if r.debug {
		r.logger.Debug("filtered duplicate request", "url", req.URL)
	} else if !r.loggedFirst {
		r.logger.Debug("filtered duplicate request (no more duplicates will be shown, enable dupefilter debug to see all)",
			"url", req.URL,
		)
		r.loggedFirst = true
	}
	r.stats.Inc(stats.Filtered)
}

// Close closes the Redis client. The fingerprint set is left in place:
// it is the state a future crawl resumes against.
func (r *Redis) Close(_ context.Context, _ string) error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return nil
}
