// Package ratelimit throttles repeated failed logins.
//
// Counters live in Redis so they survive restarts and are shared between
// server instances. When no Redis address is configured the server runs
// with NoOp, which never blocks.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts failures per key (for logins, the email address).
type Limiter interface {
	// Allow reports whether key is still under its failure budget.
	Allow(ctx context.Context, key string) (bool, error)
	// Fail records one failed attempt for key.
	Fail(ctx context.Context, key string) error
	// Reset clears key, e.g. after a successful login.
	Reset(ctx context.Context, key string) error
	Close() error
}

// Options bound the failure budget: at most MaxAttempts failures per
// Window, counted from the first failure.
type Options struct {
	MaxAttempts int
	Window      time.Duration
}

type redisLimiter struct {
	client *redis.Client
	opts   Options
	logger *slog.Logger
}

// Connect dials Redis and verifies the connection before returning.
func Connect(addr, password string, db int, opts Options, logger *slog.Logger) (Limiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ratelimit: connecting to redis at %s: %w", addr, err)
	}

	logger.Info("login rate limiting enabled",
		slog.String("redis", addr),
		slog.Int("max_attempts", opts.MaxAttempts),
		slog.Duration("window", opts.Window),
	)
	return NewRedisLimiter(client, opts, logger), nil
}

// NewRedisLimiter wraps an existing client. Tests pass a client pointed
// at miniredis.
func NewRedisLimiter(client *redis.Client, opts Options, logger *slog.Logger) Limiter {
	return &redisLimiter{client: client, opts: opts, logger: logger}
}

// key is case-insensitive so "A@x.com" and "a@x.com" share a budget.
func key(k string) string {
	return "login:fail:" + strings.ToLower(strings.TrimSpace(k))
}

func (r *redisLimiter) Allow(ctx context.Context, k string) (bool, error) {
	if r.opts.MaxAttempts <= 0 {
		return true, nil
	}

	n, err := r.client.Get(ctx, key(k)).Int()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("ratelimit: reading counter: %w", err)
	}
	return n < r.opts.MaxAttempts, nil
}

func (r *redisLimiter) Fail(ctx context.Context, k string) error {
	var incr *redis.IntCmd
	// INCR and EXPIRE NX run as one MULTI/EXEC, so a counter never exists
	// without a TTL. NX keeps the window anchored at the first failure.
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key(k))
		pipe.ExpireNX(ctx, key(k), r.opts.Window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("ratelimit: recording failure: %w", err)
	}
	if int(incr.Val()) == r.opts.MaxAttempts {
		r.logger.Warn("login attempts exhausted", slog.String("key", k), slog.Duration("window", r.opts.Window))
	}
	return nil
}

func (r *redisLimiter) Reset(ctx context.Context, k string) error {
	if err := r.client.Del(ctx, key(k)).Err(); err != nil {
		return fmt.Errorf("ratelimit: clearing counter: %w", err)
	}
	return nil
}

func (r *redisLimiter) Close() error {
	return r.client.Close()
}

// NoOp never limits. Used when Redis is not configured.
type NoOp struct{}

func NewNoOp(logger *slog.Logger) Limiter {
	logger.Warn("REDIS_ADDR not set; login rate limiting is disabled")
	return NoOp{}
}

func (NoOp) Allow(context.Context, string) (bool, error) { return true, nil }
func (NoOp) Fail(context.Context, string) error          { return nil }
func (NoOp) Reset(context.Context, string) error         { return nil }
func (NoOp) Close() error                                { return nil }
