package application

import (
	"time"

	"github.com/bnema/quotaguard/internal/domain"
	"github.com/bnema/quotaguard/internal/metrics"
	"github.com/bnema/quotaguard/internal/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultStoreTimeout = 5 * time.Second
	defaultSyncTimeout  = 10 * time.Second
)

// Stores groups the persistence ports shared by the engine components.
type Stores struct {
	Accounts ports.AccountRepository
	Blocks   ports.BlockRecordRepository
	Usage    ports.UsageReader
	Audit    ports.AuditLog
}

type Options struct {
	Location     *time.Location
	Limits       domain.Limits
	WarningRatio float64
	StoreTimeout time.Duration
	SyncTimeout  time.Duration
	Clock        ports.Clock
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	NewID        func() string
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Limits.Daily <= 0 {
		o.Limits.Daily = domain.DefaultDailyLimit
	}
	if o.Limits.Monthly <= 0 {
		o.Limits.Monthly = domain.DefaultMonthlyLimit
	}
	if o.WarningRatio <= 0 || o.WarningRatio >= 1 {
		o.WarningRatio = domain.DefaultWarningRatio
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = defaultStoreTimeout
	}
	if o.SyncTimeout <= 0 {
		o.SyncTimeout = defaultSyncTimeout
	}
	if o.Clock == nil {
		o.Clock = ports.SystemClock{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

// NotificationSink accepts notifications for asynchronous delivery. Enqueue
// never blocks and reports whether the notification was accepted.
type NotificationSink interface {
	Enqueue(notification domain.Notification) bool
}

// DiscardNotifications is the sink used when notification delivery is
// disabled.
type DiscardNotifications struct{}

func (DiscardNotifications) Enqueue(domain.Notification) bool {
	return false
}
