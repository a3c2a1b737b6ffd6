// Package redis serializes account transitions across processes with a
// SET NX PX lease. The lease is renewed while held, and both renewal and
// release are token-checked scripts.
package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bnema/quotaguard/internal/domain"
	"github.com/bnema/quotaguard/internal/ports"
)

var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

var renewScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("pexpire", KEYS[1], ARGV[2])
else
    return 0
end
`)

const (
	defaultKeyPrefix = "quotaguard:lock:"
	defaultTTL       = 30 * time.Second
	defaultWait      = 5 * time.Second
	retryInterval    = 25 * time.Millisecond
	releaseTimeout   = 2 * time.Second
)

type Locker struct {
	client    goredis.Cmdable
	keyPrefix string
	ttl       time.Duration
	wait      time.Duration
	logger    *zap.Logger
}

var _ ports.AccountLocker = (*Locker)(nil)

type Option func(*Locker)

func WithKeyPrefix(prefix string) Option {
	return func(l *Locker) {
		if prefix != "" {
			l.keyPrefix = prefix
		}
	}
}

// WithTTL bounds how long a crashed holder can keep an account locked. A live
// holder renews the lease every third of the TTL.
func WithTTL(ttl time.Duration) Option {
	return func(l *Locker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

func WithWait(wait time.Duration) Option {
	return func(l *Locker) {
		if wait > 0 {
			l.wait = wait
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Locker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func NewLocker(client goredis.Cmdable, opts ...Option) *Locker {
	l := &Locker{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		ttl:       defaultTTL,
		wait:      defaultWait,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Locker) lockKey(id domain.AccountID) string {
	return l.keyPrefix + string(id)
}

func (l *Locker) Lock(ctx context.Context, id domain.AccountID) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := l.lockKey(id)
	token := newToken()

	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrLockNotAcquired, id, err)
		}
		if ok {
			return l.hold(key, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrLockNotAcquired, id, ctx.Err())
		case <-ticker.C:
		}
	}
}

// hold keeps the lease alive until the returned release func is called.
func (l *Locker) hold(key, token string) func() {
	stop := make(chan struct{})
	done := make(chan struct{})
	go l.renew(key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			l.release(key, token)
		})
	}
}

func (l *Locker) renew(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(max(l.ttl/3, retryInterval))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		n, err := renewScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int64()
		cancel()
		if err != nil {
			l.logger.Warn("renew account lock", zap.String("key", key), zap.Error(err))
			continue
		}
		if n == 0 {
			l.logger.Warn("account lock lease lost", zap.String("key", key))
			return
		}
	}
}

func (l *Locker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int64()
	if err != nil {
		l.logger.Warn("release account lock", zap.String("key", key), zap.Error(err))
		return
	}
	if n == 0 {
		l.logger.Warn("account lock lease expired before release", zap.String("key", key))
	}
}

func newToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
