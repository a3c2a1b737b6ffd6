package application

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/quotaguard/internal/domain"
	"github.com/bnema/quotaguard/internal/metrics"
	"github.com/bnema/quotaguard/internal/ports"
	"go.uber.org/zap"
)

const (
	defaultQueueSize   = 256
	defaultWorkers     = 2
	defaultSendTimeout = 5 * time.Second
)

// Dispatcher delivers notifications from a bounded queue so that callers
// holding an account lock never wait on a notification channel.
type Dispatcher struct {
	notifier ports.Notifier
	queue    chan domain.Notification
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ NotificationSink = (*Dispatcher)(nil)

type DispatcherOptions struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

func NewDispatcher(notifier ports.Notifier, opts DispatcherOptions) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultSendTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	d := &Dispatcher{
		notifier: notifier,
		queue:    make(chan domain.Notification, opts.QueueSize),
		timeout:  opts.Timeout,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}

	d.wg.Add(opts.Workers)
	for range opts.Workers {
		go d.work()
	}

	return d
}

// Enqueue reports false when the queue is full or the dispatcher is closed.
func (d *Dispatcher) Enqueue(notification domain.Notification) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}

	select {
	case d.queue <- notification:
		return true
	default:
		d.logger.Warn("notification queue full",
			zap.String("account_id", string(notification.AccountID)),
			zap.String("kind", string(notification.Kind)))
		return false
	}
}

// Close stops accepting notifications and waits for queued ones to drain or
// for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()

	for notification := range d.queue {
		d.deliver(notification)
	}
}

func (d *Dispatcher) deliver(notification domain.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := d.notifier.Send(ctx, notification)
	d.metrics.Notification("dispatch", err == nil)
	if err != nil {
		d.logger.Error("notification delivery failed",
			zap.String("notification_id", notification.ID),
			zap.String("account_id", string(notification.AccountID)),
			zap.String("kind", string(notification.Kind)),
			zap.Error(err))
		return
	}

	d.logger.Debug("notification delivered",
		zap.String("notification_id", notification.ID),
		zap.String("kind", string(notification.Kind)))
}
