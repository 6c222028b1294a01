// Package lock provides best-effort distributed locks backed by Redis.
// Callers must not rely on the lock for correctness; it only reduces
// contention in front of database row locks.
package lock

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"time"

	"crm_backend/platform/config"
	"crm_backend/platform/logger"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ReleaseFunc releases a held lock. It is always safe to call.
type ReleaseFunc func()

// Locker obtains named locks.
type Locker interface {
	Acquire(ctx context.Context, key string) ReleaseFunc
}

// RedisLocker implements Locker with bsm/redislock.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NoopLocker is used when Redis is not configured.
type NoopLocker struct{}

// Acquire returns immediately.
func (NoopLocker) Acquire(context.Context, string) ReleaseFunc { return func() {} }

// New returns a RedisLocker when REDIS_URL is set and a NoopLocker otherwise.
// The returned close function shuts down the Redis client.
func New(cfg config.LockConfig, log *logger.Logger) (Locker, func() error, error) {
	if cfg.GetRedisURL() == "" {
		return NoopLocker{}, func() error { return nil }, nil
	}
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, nil, err
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	rdb := redis.NewClient(opt)
	return NewRedisLocker(rdb, cfg.GetLeadLockTTL(), log), rdb.Close, nil
}

// NewRedisLocker wraps an existing go-redis client.
func NewRedisLocker(rdb redislock.RedisClient, ttl time.Duration, log *logger.Logger) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb), ttl: ttl, log: log}
}

// Acquire tries to obtain "lock:<key>" for the configured TTL, retrying
// briefly. If the lock cannot be obtained the caller proceeds without it.
func (l *RedisLocker) Acquire(ctx context.Context, key string) ReleaseFunc {
	name := "lock:" + key
	held, err := l.client.Obtain(ctx, name, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(25*time.Millisecond), 40),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			l.log.WithContext(ctx).Warn("could not obtain redis lock; proceeding without redis lock", slog.String("key", name))
		} else {
			l.log.WithContext(ctx).Warn("error obtaining redis lock; proceeding without redis lock", slog.String("key", name), slog.String("error", err.Error()))
		}
		return func() {}
	}
	return func() {
		// the lock may have expired, which is fine
		if err := held.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.log.Warn("release redis lock", slog.String("key", name), slog.String("error", err.Error()))
		}
	}
}
