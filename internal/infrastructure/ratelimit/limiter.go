// Package ratelimit throttles repeated failed logins with Redis counters.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domain "forum/backend/internal/domain/auth"
	usecase "forum/backend/internal/usecase/auth"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps failures talking to Redis.
var ErrRedisUnavailable = errors.New("ratelimit: redis unavailable")

// Config holds limiter tuning parameters.
type Config struct {
	MaxAttempts      int
	Cooldown         time.Duration
	EnableIPThrottle bool
}

// Limiter counts failed logins per identifier (and per client IP when enabled)
// in fixed windows. Redis errors are logged and let the login proceed.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
	log    *slog.Logger
}

// New creates a limiter backed by the given Redis client.
func New(client redis.UniversalClient, cfg Config, log *slog.Logger) *Limiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Minute
	}
	return &Limiter{redis: client, config: cfg, log: log}
}

var _ usecase.LoginLimiter = (*Limiter)(nil)

// Check rejects the attempt once the failure budget for the window is spent.
func (l *Limiter) Check(ctx context.Context, identifier, ip string) error {
	for _, key := range l.keys(identifier, ip) {
		count, err := l.redis.Get(ctx, key).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			l.warn(ctx, "check", err)
			return nil
		}
		if count >= int64(l.config.MaxAttempts) {
			return domain.ErrRateLimited
		}
	}
	return nil
}

// Fail records a failed attempt.
func (l *Limiter) Fail(ctx context.Context, identifier, ip string) error {
	for _, key := range l.keys(identifier, ip) {
		if _, err := l.incrementWithTTL(ctx, key); err != nil {
			l.warn(ctx, "fail", err)
			return err
		}
	}
	return nil
}

// Reset clears the counters after a successful login.
func (l *Limiter) Reset(ctx context.Context, identifier, ip string) error {
	if err := l.redis.Del(ctx, l.keys(identifier, ip)...).Err(); err != nil {
		err = fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		l.warn(ctx, "reset", err)
		return err
	}
	return nil
}

// Attempts returns the failures recorded for identifier in the current window.
func (l *Limiter) Attempts(ctx context.Context, identifier string) (int, error) {
	count, err := l.redis.Get(ctx, identifierKey(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(count), nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	// fixed window: the first failure starts the cooldown
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Cooldown).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}

func (l *Limiter) keys(identifier, ip string) []string {
	keys := []string{identifierKey(identifier)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, ipKey(ip))
	}
	return keys
}

func (l *Limiter) warn(ctx context.Context, op string, err error) {
	if l.log != nil {
		l.log.WarnContext(ctx, "login limiter degraded", "op", op, "error", err)
	}
}

func identifierKey(identifier string) string { return "forum:login:id:" + identifier }
func ipKey(ip string) string                 { return "forum:login:ip:" + ip }
