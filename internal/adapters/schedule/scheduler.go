// Package schedule runs the expiration sweep on a cron schedule in the reset
// timezone.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/bnema/quotaguard/internal/application"
)

// SweepRunner is satisfied by *application.Sweeper.
type SweepRunner interface {
	Run(ctx context.Context) (application.SweepReport, error)
}

type Scheduler struct {
	cron   *cron.Cron
	runner SweepRunner
	logger *zap.Logger
}

// New parses a standard five-field spec or a descriptor such as @daily.
// Overlapping runs are skipped.
func New(spec string, loc *time.Location, runner SweepRunner, logger *zap.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cl := cronLogger{logger: logger.Named("cron")}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	s := &Scheduler{cron: c, runner: runner, logger: logger}
	if _, err := c.AddFunc(spec, s.sweep); err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// Run starts the schedule and blocks until ctx ends and the running sweep,
// if any, has returned.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

func (s *Scheduler) sweep() {
	report, err := s.runner.Run(context.Background())
	if err != nil {
		s.logger.Error("scheduled sweep incomplete", zap.Int("failed", report.Failed()), zap.Error(err))
	}
}

type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
