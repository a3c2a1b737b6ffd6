package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	kafkaevents "github.com/bnema/quotaguard/internal/adapters/events/kafka"
	httpapi "github.com/bnema/quotaguard/internal/adapters/http"
	"github.com/bnema/quotaguard/internal/adapters/schedule"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	var listen string
	var noSweep bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API, the usage event consumer and the scheduled sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen == "" {
				listen = a.cfg.HTTP.Listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a, listen, !noSweep)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (default from http.listen)")
	cmd.Flags().BoolVar(&noSweep, "no-sweep", false, "Do not schedule the expiration sweep")

	return cmd
}

func runServe(ctx context.Context, a *app, listen string, sweep bool) error {
	logger := a.logger
	g, ctx := errgroup.WithContext(ctx)

	server := &http.Server{
		Addr:              listen,
		Handler:           httpapi.NewRouter(httpapi.NewHandler(a.gateway, logger.Named("http")), a.registry),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	g.Go(func() error {
		logger.Info("admin api listening", zap.String("addr", listen))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if len(a.cfg.Kafka.Brokers) > 0 {
		consumer, err := kafkaevents.NewConsumer(a.cfg.Kafka, a.gateway, logger.Named("kafka"))
		if err != nil {
			return fmt.Errorf("wire usage event consumer: %w", err)
		}
		g.Go(func() error {
			defer func() { _ = consumer.Close() }()
			return consumer.Run(ctx)
		})
	} else {
		logger.Info("kafka brokers not configured, usage events accepted over http only")
	}

	if sweep {
		scheduler, err := schedule.New(a.cfg.Sweep.Schedule, a.cfg.Location, a.sweeper, logger.Named("sweep"))
		if err != nil {
			return fmt.Errorf("wire sweep scheduler: %w", err)
		}
		g.Go(func() error {
			return scheduler.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("serve stopped")
	return nil
}
