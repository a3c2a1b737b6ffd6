// Package chain tries a primary notifier and falls back to a secondary one.
package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bnema/quotaguard/internal/domain"
	"github.com/bnema/quotaguard/internal/metrics"
	"github.com/bnema/quotaguard/internal/ports"
)

const (
	channelPrimary  = "primary"
	channelFallback = "fallback"

	defaultFallbackTimeout = 5 * time.Second
)

type Notifier struct {
	primary         ports.Notifier
	fallback        ports.Notifier
	fallbackTimeout time.Duration
	logger          *zap.Logger
	metrics         *metrics.Metrics
}

var _ ports.Notifier = (*Notifier)(nil)

var (
	errNilPrimaryNotifier  = errors.New("primary notifier is nil")
	errNilFallbackNotifier = errors.New("fallback notifier is nil")
)

type Option func(*Notifier)

func WithLogger(logger *zap.Logger) Option {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(n *Notifier) { n.metrics = m }
}

// WithFallbackTimeout bounds the fallback attempt independently of the time
// the primary used up.
func WithFallbackTimeout(timeout time.Duration) Option {
	return func(n *Notifier) {
		if timeout > 0 {
			n.fallbackTimeout = timeout
		}
	}
}

func NewNotifier(primary, fallback ports.Notifier, opts ...Option) (*Notifier, error) {
	if primary == nil {
		return nil, errNilPrimaryNotifier
	}
	if fallback == nil {
		return nil, errNilFallbackNotifier
	}

	n := &Notifier{
		primary:         primary,
		fallback:        fallback,
		fallbackTimeout: defaultFallbackTimeout,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

func (n *Notifier) Send(ctx context.Context, notification domain.Notification) error {
	err := n.primary.Send(ctx, notification)
	n.metrics.Notification(channelPrimary, err == nil)
	if err == nil {
		return nil
	}
	// A primary that timed out on its own deadline still gets a fallback;
	// only the caller giving up stops the chain.
	if ctx.Err() != nil {
		return err
	}

	n.logger.Warn("primary notification channel failed, trying fallback",
		zap.String("account_id", string(notification.AccountID)),
		zap.String("kind", string(notification.Kind)),
		zap.Error(err))

	fallbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.fallbackTimeout)
	defer cancel()

	fallbackErr := n.fallback.Send(fallbackCtx, notification)
	n.metrics.Notification(channelFallback, fallbackErr == nil)
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("primary notifier failed: %w; fallback notifier failed: %w", err, fallbackErr)
}
