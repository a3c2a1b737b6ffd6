package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/quotaguard/internal/domain"
	"go.uber.org/zap"
)

// Transitioner is the part of the state machine the sweeper drives.
type Transitioner interface {
	ExpireBlock(ctx context.Context, id domain.AccountID) (TransitionResult, error)
	ReconcilePolicy(ctx context.Context, id domain.AccountID) (TransitionResult, error)
	ClearProtection(ctx context.Context, id domain.AccountID) (TransitionResult, error)
}

var _ Transitioner = (*StateMachine)(nil)

// Sweeper unblocks expired accounts, retries deny removals that failed during
// an unblock, and clears stale protection. It keeps no state between runs;
// unfinished work is picked up by the next run.
type Sweeper struct {
	stores  Stores
	machine Transitioner
	opts    Options
}

func NewSweeper(stores Stores, machine Transitioner, opts Options) *Sweeper {
	return &Sweeper{stores: stores, machine: machine, opts: opts.withDefaults()}
}

// Run executes the expire, reconcile and protection passes in that order. Per-account failures are counted in the report;
// the returned error covers only passes that could not run at all.
func (s *Sweeper) Run(ctx context.Context) (SweepReport, error) {
	report := SweepReport{StartedAt: s.opts.Clock.Now()}

	expireErr := s.expirePass(ctx, &report)
	reconcileErr := s.reconcilePass(ctx, &report)
	protectErr := s.protectionPass(ctx, &report)

	report.Duration = s.opts.Clock.Now().Sub(report.StartedAt)
	s.opts.Metrics.ObserveSweep(report.Duration)
	s.opts.Logger.Info("sweep finished",
		zap.Int("unblocked", report.Unblocked),
		zap.Int("unblock_failed", report.UnblockFailed),
		zap.Int("policy_reconciled", report.PolicyReconciled),
		zap.Int("policy_failed", report.PolicyFailed),
		zap.Int("protection_cleared", report.ProtectionCleared),
		zap.Int("protection_failed", report.ProtectionFailed),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", report.Duration))

	return report, errors.Join(expireErr, reconcileErr, protectErr)
}

func (s *Sweeper) expirePass(ctx context.Context, report *SweepReport) error {
	records, err := s.stores.Blocks.ListExpired(ctx, s.opts.Clock.Now())
	if err != nil {
		return fmt.Errorf("list expired blocks: %w", err)
	}

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("expire pass interrupted: %w", err)
		}

		result, err := s.machine.ExpireBlock(ctx, record.AccountID)
		switch {
		case err != nil:
			report.UnblockFailed++
			s.opts.Metrics.SweepAccount("expire", false)
			s.opts.Logger.Error("expire block failed", zap.String("account_id", string(record.AccountID)), zap.Error(err))
		case result.Outcome == OutcomeApplied:
			report.Unblocked++
			s.opts.Metrics.SweepAccount("expire", true)
		default:
			report.Skipped++
		}
	}

	return nil
}

func (s *Sweeper) reconcilePass(ctx context.Context, report *SweepReport) error {
	records, err := s.stores.Blocks.ListPolicyPending(ctx)
	if err != nil {
		return fmt.Errorf("list policy pending records: %w", err)
	}

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("reconcile pass interrupted: %w", err)
		}

		result, err := s.machine.ReconcilePolicy(ctx, record.AccountID)
		switch {
		case err != nil:
			report.PolicyFailed++
			s.opts.Metrics.SweepAccount("reconcile", false)
			s.opts.Logger.Error("deny removal retry failed", zap.String("account_id", string(record.AccountID)), zap.Error(err))
		case result.Outcome == OutcomeApplied:
			report.PolicyReconciled++
			s.opts.Metrics.SweepAccount("reconcile", true)
		default:
			report.Skipped++
		}
	}

	return nil
}

func (s *Sweeper) protectionPass(ctx context.Context, report *SweepReport) error {
	accounts, err := s.stores.Accounts.ListProtected(ctx)
	if err != nil {
		return fmt.Errorf("list protected accounts: %w", err)
	}

	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("protection pass interrupted: %w", err)
		}

		result, err := s.machine.ClearProtection(ctx, account.ID)
		switch {
		case err != nil:
			report.ProtectionFailed++
			s.opts.Metrics.SweepAccount("protection", false)
			s.opts.Logger.Error("clear protection failed", zap.String("account_id", string(account.ID)), zap.Error(err))
		case result.Outcome == OutcomeApplied:
			report.ProtectionCleared++
			s.opts.Metrics.SweepAccount("protection", true)
		default:
			report.Skipped++
		}
	}

	return nil
}
