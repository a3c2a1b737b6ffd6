package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/quotaguard/internal/domain"
	"github.com/bnema/quotaguard/internal/ports"
	"go.uber.org/zap"
)

// UsageWarner sends the once-per-day usage warning.
type UsageWarner interface {
	WarnUsage(ctx context.Context, id domain.AccountID, snapshot domain.UsageSnapshot) (bool, error)
}

var _ UsageWarner = (*StateMachine)(nil)

// Evaluator decides whether an account must be blocked. It never writes
// block state; the only side effect is the best-effort usage warning.
type Evaluator struct {
	stores Stores
	warner UsageWarner
	opts   Options
}

// NewEvaluator builds an evaluator. A nil warner disables usage warnings.
func NewEvaluator(stores Stores, warner UsageWarner, opts Options) *Evaluator {
	return &Evaluator{
		stores: stores,
		warner: warner,
		opts:   opts.withDefaults(),
	}
}

// Evaluate returns whether the account must be blocked, the reason, and the
// usage snapshot that drove the decision. Protected accounts are never
// blocked and their usage is not read.
func (e *Evaluator) Evaluate(ctx context.Context, id domain.AccountID) (bool, string, domain.UsageSnapshot, error) {
	if err := id.Validate(); err != nil {
		return false, "", domain.UsageSnapshot{}, fmt.Errorf("%w: %w", domain.ErrInvalidTransitionRequest, err)
	}

	account, err := loadAccount(ctx, e.stores.Accounts, id, e.opts.Limits)
	if err != nil {
		return false, "", domain.UsageSnapshot{}, err
	}
	if account.AdministrativeProtection {
		e.opts.Logger.Debug("usage evaluation skipped for protected account", zap.String("account_id", string(id)))
		return false, "", domain.UsageSnapshot{}, nil
	}

	now := e.opts.Clock.Now()
	snapshot, err := e.Snapshot(ctx, id, now)
	if err != nil {
		return false, "", domain.UsageSnapshot{}, err
	}

	switch {
	case snapshot.RequestsToday >= int64(account.DailyLimit):
		return true, domain.ReasonDailyLimitExceeded, snapshot, nil
	case snapshot.RequestsThisMonth >= int64(account.MonthlyLimit):
		return true, domain.ReasonMonthlyLimitExceeded, snapshot, nil
	}

	if snapshot.ReachedWarning(account.DailyLimit, e.opts.WarningRatio) && !account.WarnedToday(now, e.opts.Location) {
		e.warn(ctx, account.ID, snapshot)
	}

	return false, "", snapshot, nil
}

// Snapshot counts today's and this month's requests in the reset timezone.
func (e *Evaluator) Snapshot(ctx context.Context, id domain.AccountID, now time.Time) (domain.UsageSnapshot, error) {
	return readSnapshot(ctx, e.stores.Usage, id, now, e.opts.Location)
}

func (e *Evaluator) warn(ctx context.Context, id domain.AccountID, snapshot domain.UsageSnapshot) {
	if e.warner == nil {
		return
	}

	sent, err := e.warner.WarnUsage(ctx, id, snapshot)
	if err != nil {
		e.opts.Logger.Warn("usage warning failed", zap.String("account_id", string(id)), zap.Error(err))
		return
	}
	if sent {
		e.opts.Logger.Info("usage warning sent",
			zap.String("account_id", string(id)),
			zap.Int64("requests_today", snapshot.RequestsToday))
	}
}

// loadAccount is the get-or-default read path. It never persists the default.
func loadAccount(ctx context.Context, repo ports.AccountRepository, id domain.AccountID, limits domain.Limits) (domain.Account, error) {
	account, err := repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.DefaultAccount(id, limits), nil
		}
		return domain.Account{}, fmt.Errorf("get account %q: %w", id, err)
	}

	return account.Normalize(limits), nil
}

func loadRecord(ctx context.Context, repo ports.BlockRecordRepository, id domain.AccountID) (domain.BlockRecord, error) {
	record, err := repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrBlockRecordNotFound) {
			return domain.ActiveRecord(id), nil
		}
		return domain.BlockRecord{}, fmt.Errorf("get block record %q: %w", id, err)
	}

	return record, nil
}

func readSnapshot(ctx context.Context, usage ports.UsageReader, id domain.AccountID, now time.Time, loc *time.Location) (domain.UsageSnapshot, error) {
	dayStart, dayEnd := domain.WindowDay.Bounds(now, loc)
	today, err := usage.CountRequests(ctx, id, dayStart, dayEnd)
	if err != nil {
		return domain.UsageSnapshot{}, fmt.Errorf("count daily requests: %w", err)
	}

	monthStart, monthEnd := domain.WindowMonth.Bounds(now, loc)
	month, err := usage.CountRequests(ctx, id, monthStart, monthEnd)
	if err != nil {
		return domain.UsageSnapshot{}, fmt.Errorf("count monthly requests: %w", err)
	}

	return domain.UsageSnapshot{RequestsToday: today, RequestsThisMonth: month}, nil
}
