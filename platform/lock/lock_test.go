package lock

import (
	"context"
	"testing"
	"time"

	"crm_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLocker(rdb, time.Second, logger.Discard()), mr
}

func TestAcquireHoldsAndReleasesKey(t *testing.T) {
	locker, mr := newTestLocker(t)

	release := locker.Acquire(context.Background(), "lead:42")
	assert.True(t, mr.Exists("lock:lead:42"))

	release()
	assert.False(t, mr.Exists("lock:lead:42"))
}

func TestAcquireProceedsWhenLockIsHeldElsewhere(t *testing.T) {
	locker, mr := newTestLocker(t)
	require.NoError(t, mr.Set("lock:lead:7", "someone-else"))
	mr.SetTTL("lock:lead:7", time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	release := locker.Acquire(ctx, "lead:7")
	release()

	got, err := mr.Get("lock:lead:7")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestAcquireProceedsWhenRedisIsDown(t *testing.T) {
	locker, mr := newTestLocker(t)
	mr.Close()

	release := locker.Acquire(context.Background(), "lead:1")
	assert.NotPanics(t, func() { release() })
}

type lockConfig struct{ url string }

func (c lockConfig) GetRedisURL() string           { return c.url }
func (c lockConfig) GetRedisTLSInsecure() bool     { return false }
func (c lockConfig) GetLeadLockTTL() time.Duration { return time.Second }

func TestNewWithoutRedisIsNoop(t *testing.T) {
	locker, closeFn, err := New(lockConfig{}, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, NoopLocker{}, locker)
	assert.NoError(t, closeFn())
}

func TestNewRejectsBadURL(t *testing.T) {
	_, _, err := New(lockConfig{url: "://nope"}, logger.Discard())
	assert.Error(t, err)
}
