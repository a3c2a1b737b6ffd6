package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/quotaguard/internal/domain"
)

func setupLocker(t *testing.T, opts ...Option) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client, opts...), mr
}

func TestLocker_LockKey(t *testing.T) {
	assert.Equal(t, "quotaguard:lock:acct-1", NewLocker(nil).lockKey("acct-1"))
	assert.Equal(t, "app:lock:acct-1", NewLocker(nil, WithKeyPrefix("app:lock:")).lockKey("acct-1"))
}

func TestNewToken(t *testing.T) {
	a, b := newToken(), newToken()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestLocker_LockAndRelease(t *testing.T) {
	locker, mr := setupLocker(t, WithTTL(time.Minute))

	unlock, err := locker.Lock(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("quotaguard:lock:acct-1"))
	assert.Equal(t, time.Minute, mr.TTL("quotaguard:lock:acct-1"))

	unlock()
	assert.False(t, mr.Exists("quotaguard:lock:acct-1"))

	unlock()
}

func TestLocker_ContendedLockTimesOut(t *testing.T) {
	locker, _ := setupLocker(t, WithWait(60*time.Millisecond))

	unlock, err := locker.Lock(context.Background(), "acct-1")
	require.NoError(t, err)
	defer unlock()

	_, err = locker.Lock(context.Background(), "acct-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLockNotAcquired)
}

func TestLocker_AcquiresAfterRelease(t *testing.T) {
	locker, _ := setupLocker(t, WithWait(time.Second))

	unlock, err := locker.Lock(context.Background(), "acct-1")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		second, err := locker.Lock(context.Background(), "acct-1")
		if err == nil {
			second()
		}
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	unlock()
	require.NoError(t, <-done)
}

func TestLocker_ReleaseDoesNotStealForeignLease(t *testing.T) {
	locker, mr := setupLocker(t)

	unlock, err := locker.Lock(context.Background(), "acct-1")
	require.NoError(t, err)

	require.NoError(t, mr.Set("quotaguard:lock:acct-1", "someone-else"))
	unlock()

	got, err := mr.Get("quotaguard:lock:acct-1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestLocker_RenewsLeaseWhileHeld(t *testing.T) {
	locker, mr := setupLocker(t, WithTTL(300*time.Millisecond))
	const key = "quotaguard:lock:acct-1"

	unlock, err := locker.Lock(context.Background(), "acct-1")
	require.NoError(t, err)

	// miniredis only ages keys on FastForward, so each round drains most of
	// the lease and waits for the holder to renew it.
	for range 3 {
		mr.FastForward(250 * time.Millisecond)
		require.True(t, mr.Exists(key))
		require.Eventually(t, func() bool {
			return mr.TTL(key) > 200*time.Millisecond
		}, 2*time.Second, 10*time.Millisecond)
	}

	unlock()
	assert.False(t, mr.Exists(key))
}

func TestLocker_RenewalStopsWhenLeaseLost(t *testing.T) {
	locker, mr := setupLocker(t, WithTTL(150*time.Millisecond))
	const key = "quotaguard:lock:acct-1"

	unlock, err := locker.Lock(context.Background(), "acct-1")
	require.NoError(t, err)
	defer unlock()

	require.NoError(t, mr.Set(key, "someone-else"))
	mr.SetTTL(key, 10*time.Second)

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 10*time.Second, mr.TTL(key))
}

func TestLocker_ConnectionError(t *testing.T) {
	locker, mr := setupLocker(t)
	mr.Close()

	_, err := locker.Lock(context.Background(), "acct-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLockNotAcquired)
}
