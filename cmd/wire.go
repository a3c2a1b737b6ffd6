package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	locallock "github.com/bnema/quotaguard/internal/adapters/lock/local"
	redislock "github.com/bnema/quotaguard/internal/adapters/lock/redis"
	chainnotify "github.com/bnema/quotaguard/internal/adapters/notify/chain"
	httpnotify "github.com/bnema/quotaguard/internal/adapters/notify/http"
	smtpnotify "github.com/bnema/quotaguard/internal/adapters/notify/smtp"
	filepolicy "github.com/bnema/quotaguard/internal/adapters/policy/file"
	redispolicy "github.com/bnema/quotaguard/internal/adapters/policy/redis"
	statusadapter "github.com/bnema/quotaguard/internal/adapters/render/status"
	"github.com/bnema/quotaguard/internal/adapters/repo/postgres"
	tomlrepo "github.com/bnema/quotaguard/internal/adapters/repo/toml"
	"github.com/bnema/quotaguard/internal/application"
	"github.com/bnema/quotaguard/internal/config"
	"github.com/bnema/quotaguard/internal/logging"
	"github.com/bnema/quotaguard/internal/metrics"
	"github.com/bnema/quotaguard/internal/ports"
)

const closeTimeout = 10 * time.Second

type app struct {
	cfg            config.Config
	logger         *zap.Logger
	registry       *prometheus.Registry
	metrics        *metrics.Metrics
	stores         application.Stores
	machine        *application.StateMachine
	evaluator      *application.Evaluator
	gateway        *application.Gateway
	sweeper        *application.Sweeper
	statusRenderer func([]application.AccountStatus, statusadapter.RenderOptions) (string, error)
	now            func() time.Time

	wired   bool
	closers []func(context.Context) error
}

// wire loads configuration and builds every collaborator once per process.
func (a *app) wire(ctx context.Context, configPath string, logOutput io.Writer) error {
	if a.wired {
		return nil
	}

	cfg, err := config.Load(viper.New(), configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Log, logOutput)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	a.now = time.Now
	a.statusRenderer = statusadapter.Render
	a.onClose(func(context.Context) error {
		_ = logger.Sync()
		return nil
	})

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	var redisClient *goredis.Client
	if cfg.Policy.Driver == config.PolicyDriverRedis || cfg.Lock.Driver == config.LockDriverRedis {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.onClose(func(context.Context) error { return redisClient.Close() })
	}

	stores, recorder, err := a.wireStores(ctx)
	if err != nil {
		return err
	}
	a.stores = stores

	policyStore := wirePolicyStore(cfg, redisClient)
	locker := wireLocker(cfg, redisClient, logger)

	sink, err := a.wireNotifications()
	if err != nil {
		return err
	}

	opts := application.Options{
		Location:     cfg.Location,
		Limits:       cfg.DefaultLimits(),
		WarningRatio: cfg.Limits.WarningRatio,
		StoreTimeout: cfg.Timeouts.Store,
		SyncTimeout:  cfg.Timeouts.Sync,
		Clock:        ports.SystemClock{},
		Logger:       logger,
		Metrics:      a.metrics,
	}

	policy := application.NewPolicySynchronizer(policyStore, application.PolicyOptions{
		Actions:  cfg.Policy.Actions,
		AllowSID: cfg.Policy.AllowSID,
		Logger:   logger.Named("policy"),
		Metrics:  a.metrics,
	})

	if !cfg.Usage.RecordEvents {
		recorder = nil
	}

	a.machine = application.NewStateMachine(stores, policy, locker, sink, opts)
	a.evaluator = application.NewEvaluator(stores, a.machine, opts)
	a.gateway = application.NewGateway(a.evaluator, a.machine, stores, recorder, opts)
	a.sweeper = application.NewSweeper(stores, a.machine, opts)
	a.wired = true

	return nil
}

func (a *app) wireStores(ctx context.Context) (application.Stores, ports.UsageRecorder, error) {
	switch a.cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := postgres.Open(ctx, a.cfg.Store.DSN)
		if err != nil {
			return application.Stores{}, nil, fmt.Errorf("wire postgres store: %w", err)
		}
		a.onClose(func(context.Context) error { return db.Close() })

		usage := postgres.NewUsageStore(db)
		return application.Stores{
			Accounts: postgres.NewAccountRepository(db),
			Blocks:   postgres.NewBlockRecordRepository(db),
			Usage:    usage,
			Audit:    postgres.NewAuditLog(db),
		}, usage, nil
	default:
		store, err := tomlrepo.NewStore(a.cfg.Store.Path)
		if err != nil {
			return application.Stores{}, nil, fmt.Errorf("wire toml store: %w", err)
		}
		return application.Stores{
			Accounts: store,
			Blocks:   store.Records(),
			Usage:    store,
			Audit:    store,
		}, store, nil
	}
}

func wirePolicyStore(cfg config.Config, client *goredis.Client) ports.PolicyStore {
	if cfg.Policy.Driver == config.PolicyDriverRedis {
		return redispolicy.NewStore(client, redispolicy.WithKeyPrefix(cfg.Policy.KeyPrefix))
	}
	return filepolicy.NewStore(cfg.Policy.Path)
}

func wireLocker(cfg config.Config, client *goredis.Client, logger *zap.Logger) ports.AccountLocker {
	if cfg.Lock.Driver == config.LockDriverRedis {
		return redislock.NewLocker(client,
			redislock.WithKeyPrefix(cfg.Lock.KeyPrefix),
			redislock.WithTTL(cfg.Lock.TTL),
			redislock.WithWait(cfg.Lock.Wait),
			redislock.WithLogger(logger.Named("lock")),
		)
	}
	return locallock.NewLocker()
}

// wireNotifications builds the delivery chain. With notifications disabled
// every notification is dropped and recorded as not sent.
func (a *app) wireNotifications() (application.NotificationSink, error) {
	if !a.cfg.Notify.Enabled {
		return application.DiscardNotifications{}, nil
	}

	var primary, fallback ports.Notifier
	if a.cfg.Notify.ServiceURL != "" {
		primary = httpnotify.NewNotifier(a.cfg.Notify.ServiceURL, a.cfg.Notify.Timeout)
	}
	if a.cfg.SMTP.Enabled() {
		mailer, err := smtpnotify.NewNotifier(a.cfg.SMTP)
		if err != nil {
			return nil, fmt.Errorf("wire smtp notifier: %w", err)
		}
		fallback = mailer
	}

	var notifier ports.Notifier
	// Each channel gets notify.timeout; a chained delivery may use both.
	budget := a.cfg.Notify.Timeout
	switch {
	case primary != nil && fallback != nil:
		chained, err := chainnotify.NewNotifier(primary, fallback,
			chainnotify.WithLogger(a.logger.Named("notify")),
			chainnotify.WithMetrics(a.metrics),
			chainnotify.WithFallbackTimeout(a.cfg.Notify.Timeout),
		)
		if err != nil {
			return nil, fmt.Errorf("wire notifier chain: %w", err)
		}
		notifier = chained
		budget = 2 * a.cfg.Notify.Timeout
	case primary != nil:
		notifier = primary
	default:
		notifier = fallback
	}

	dispatcher := application.NewDispatcher(notifier, application.DispatcherOptions{
		QueueSize: a.cfg.Notify.QueueSize,
		Workers:   a.cfg.Notify.Workers,
		Timeout:   budget,
		Logger:    a.logger.Named("dispatcher"),
		Metrics:   a.metrics,
	})
	a.onClose(dispatcher.Close)

	return dispatcher, nil
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse order of acquisition. Queued
// notifications are drained first.
func (a *app) close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, closeTimeout)
	defer cancel()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	a.wired = false

	return errors.Join(errs...)
}
