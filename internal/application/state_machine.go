package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bnema/quotaguard/internal/domain"
	"github.com/bnema/quotaguard/internal/ports"
	"go.uber.org/zap"
)

type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeAlreadyBlocked Outcome = "already_blocked"
	OutcomeAlreadyActive  Outcome = "already_active"
	OutcomeSkipped        Outcome = "skipped"
	OutcomeFailed         Outcome = "failed"
)

// StepResult is the outcome of one step of a transition. Only fatal failures
// fail the transition.
type StepResult struct {
	Step  domain.Step
	OK    bool
	Fatal bool
	Err   error
}

type TransitionResult struct {
	AccountID        domain.AccountID
	Operation        domain.AuditOperation
	Outcome          Outcome
	Account          domain.Account
	Record           domain.BlockRecord
	Steps            []StepResult
	PolicySynced     bool
	NotificationSent bool
}

// Err joins the fatal step errors. It is nil for applied transitions and
// idempotent no-ops.
func (r TransitionResult) Err() error {
	var errs []error
	for _, step := range r.Steps {
		if step.Fatal && step.Err != nil {
			errs = append(errs, step.Err)
		}
	}
	return errors.Join(errs...)
}

func (r TransitionResult) AlreadyBlocked() bool {
	return r.Outcome == OutcomeAlreadyBlocked
}

func (r TransitionResult) StepResult(step domain.Step) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Step == step {
			return s, true
		}
	}
	return StepResult{}, false
}

func (r *TransitionResult) ok(step domain.Step) {
	r.Steps = append(r.Steps, StepResult{Step: step, OK: true})
}

func (r *TransitionResult) fail(step domain.Step, err error, fatal bool) {
	r.Steps = append(r.Steps, StepResult{Step: step, Fatal: fatal, Err: err})
	if fatal {
		r.Outcome = OutcomeFailed
	}
}

func (r TransitionResult) outcomes() []domain.StepOutcome {
	out := make([]domain.StepOutcome, 0, len(r.Steps))
	for _, s := range r.Steps {
		entry := domain.StepOutcome{Step: s.Step, OK: s.OK}
		if s.Err != nil {
			entry.Error = s.Err.Error()
		}
		out = append(out, entry)
	}
	return out
}

// StateMachine is the only writer of block records. Each transition holds the
// account lock across the state write, the policy sync and the audit write.
type StateMachine struct {
	stores        Stores
	policy        PolicySync
	locker        ports.AccountLocker
	notifications NotificationSink
	opts          Options
}

func NewStateMachine(stores Stores, policy PolicySync, locker ports.AccountLocker, notifications NotificationSink, opts Options) *StateMachine {
	if notifications == nil {
		notifications = DiscardNotifications{}
	}

	return &StateMachine{
		stores:        stores,
		policy:        policy,
		locker:        locker,
		notifications: notifications,
		opts:          opts.withDefaults(),
	}
}

type transition struct {
	ctx     context.Context
	result  *TransitionResult
	account domain.Account
	record  domain.BlockRecord
	now     time.Time
}

// AutoBlock blocks an active, unprotected account until the next local
// midnight.
func (m *StateMachine) AutoBlock(ctx context.Context, id domain.AccountID, reason string, snapshot domain.UsageSnapshot) (TransitionResult, error) {
	return m.run(ctx, id, domain.OperationBlock, func(tx *transition) {
		if tx.record.IsBlocked() {
			tx.result.Outcome = OutcomeAlreadyBlocked
			return
		}
		if tx.account.AdministrativeProtection {
			tx.result.Outcome = OutcomeSkipped
			return
		}

		expires := domain.NextResetBoundary(tx.now, m.opts.Location)
		m.block(tx, blockSpec{
			blockType:   domain.BlockTypeAuto,
			reason:      reason,
			performedBy: domain.PerformedBySystem,
			expiresAt:   &expires,
			snapshot:    snapshot,
			kind:        domain.NotificationBlocked,
		})
	})
}

// ManualBlock blocks regardless of protection. The expiry is resolved from
// the request duration.
func (m *StateMachine) ManualBlock(ctx context.Context, req BlockRequest) (TransitionResult, error) {
	if _, err := req.Duration.ExpiresAt(m.opts.Clock.Now(), req.ExpiresAt); err != nil {
		return m.reject(req.AccountID, domain.OperationBlock, err)
	}

	return m.run(ctx, req.AccountID, domain.OperationBlock, func(tx *transition) {
		if tx.record.IsBlocked() {
			tx.result.Outcome = OutcomeAlreadyBlocked
			return
		}

		expires, err := req.Duration.ExpiresAt(tx.now, req.ExpiresAt)
		if err != nil {
			tx.result.fail(domain.StepLoad, err, true)
			return
		}

		snapshot, err := m.snapshot(tx)
		if err != nil {
			tx.result.fail(domain.StepUsageRead, err, false)
		} else {
			tx.result.ok(domain.StepUsageRead)
		}

		m.block(tx, blockSpec{
			blockType:   domain.BlockTypeManual,
			reason:      req.Reason,
			performedBy: req.PerformedBy,
			expiresAt:   expires,
			snapshot:    snapshot,
			kind:        domain.NotificationAdminBlocked,
		})
	})
}

// ManualUnblock restores access and shields the account from automatic
// blocking until the next protection sweep. An already active account is
// still protected and its policy cleaned.
func (m *StateMachine) ManualUnblock(ctx context.Context, req UnblockRequest) (TransitionResult, error) {
	return m.run(ctx, req.AccountID, domain.OperationUnblock, func(tx *transition) {
		wasBlocked := tx.record.IsBlocked()
		m.unblock(tx, unblockSpec{
			reason:      req.Reason,
			performedBy: req.PerformedBy,
			protect:     true,
			notify:      wasBlocked,
			kind:        domain.NotificationAdminUnblocked,
		})
		if !wasBlocked && tx.result.Outcome == "" {
			tx.result.Outcome = OutcomeAlreadyActive
		}
	})
}

// ExpireBlock unblocks an account whose finite block has expired. It is a
// no-op when the record is no longer due under the lock.
func (m *StateMachine) ExpireBlock(ctx context.Context, id domain.AccountID) (TransitionResult, error) {
	return m.run(ctx, id, domain.OperationUnblock, func(tx *transition) {
		if !tx.record.Expired(tx.now) {
			tx.result.Outcome = OutcomeSkipped
			return
		}

		m.unblock(tx, unblockSpec{
			reason:      expiredUnblockReason,
			performedBy: domain.PerformedBySystem,
			protect:     false,
			notify:      true,
			kind:        domain.NotificationUnblocked,
		})
	})
}

// ClearProtection drops administrative protection from an active account.
func (m *StateMachine) ClearProtection(ctx context.Context, id domain.AccountID) (TransitionResult, error) {
	return m.run(ctx, id, domain.OperationProtectionCleared, func(tx *transition) {
		if tx.record.IsBlocked() || !tx.account.AdministrativeProtection {
			tx.result.Outcome = OutcomeSkipped
			return
		}

		entry := m.newEntry(tx, domain.OperationProtectionCleared, protectionReason, domain.PerformedBySystem)

		account := tx.account
		account.AdministrativeProtection = false
		account.UpdatedAt = tx.now
		if err := m.saveAccount(tx, account); err != nil {
			tx.result.fail(domain.StepStoreWrite, err, true)
			m.appendAudit(tx, entry)
			return
		}
		tx.result.ok(domain.StepStoreWrite)
		tx.account = account

		m.appendAudit(tx, entry)
	})
}

// ReconcilePolicy retries the deny removal owed by an active record whose
// earlier removal failed. The pending flag is cleared only once the removal
// succeeds.
func (m *StateMachine) ReconcilePolicy(ctx context.Context, id domain.AccountID) (TransitionResult, error) {
	return m.run(ctx, id, domain.OperationPolicyReconciled, func(tx *transition) {
		if tx.record.IsBlocked() || !tx.record.PolicyPending {
			tx.result.Outcome = OutcomeSkipped
			return
		}

		entry := m.newEntry(tx, domain.OperationPolicyReconciled, reconcileReason, domain.PerformedBySystem)
		entry.PolicySyncSucceeded = m.syncPolicy(tx, "remove deny", m.policy.RemoveDeny, true)
		if !entry.PolicySyncSucceeded {
			m.appendAudit(tx, entry)
			return
		}

		record := tx.record
		record.PolicyPending = false
		record.UpdatedAt = tx.now
		if err := m.saveRecord(tx, record); err != nil {
			tx.result.fail(domain.StepStoreWrite, err, true)
			m.appendAudit(tx, entry)
			return
		}
		tx.result.ok(domain.StepStoreWrite)
		tx.record = record

		m.appendAudit(tx, entry)
	})
}

// WarnUsage sends the usage warning at most once per local day, for an
// active unprotected account at or past the warning threshold. The day is
// recorded on the account under the lock. It reports whether a warning was
// accepted for delivery.
func (m *StateMachine) WarnUsage(ctx context.Context, id domain.AccountID, snapshot domain.UsageSnapshot) (bool, error) {
	if err := id.Validate(); err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrInvalidTransitionRequest, err)
	}

	unlock, err := m.locker.Lock(ctx, id)
	if err != nil {
		return false, err
	}
	defer unlock()

	tx := &transition{ctx: context.WithoutCancel(ctx), result: &TransitionResult{AccountID: id}}
	if err := m.load(tx, id); err != nil {
		return false, err
	}

	account := tx.account
	switch {
	case tx.record.IsBlocked(), account.AdministrativeProtection:
		return false, nil
	case account.WarnedToday(tx.now, m.opts.Location):
		return false, nil
	case !snapshot.ReachedWarning(account.DailyLimit, m.opts.WarningRatio):
		return false, nil
	}

	accepted := m.notifications.Enqueue(domain.Notification{
		ID:        m.opts.NewID(),
		Kind:      domain.NotificationUsageWarning,
		AccountID: id,
		Recipient: account.Email,
		CreatedAt: tx.now,
		Context: map[string]string{
			"requests_today": strconv.FormatInt(snapshot.RequestsToday, 10),
			"daily_limit":    strconv.Itoa(account.DailyLimit),
			"percent":        strconv.FormatInt(snapshot.RequestsToday*100/int64(account.DailyLimit), 10),
		},
	})
	if !accepted {
		return false, fmt.Errorf("%w: usage warning not accepted for delivery", domain.ErrNotificationFailed)
	}

	account.WarnedOn = domain.DayKey(tx.now, m.opts.Location)
	account.UpdatedAt = tx.now
	if err := m.saveAccount(tx, account); err != nil {
		return true, fmt.Errorf("record usage warning: %w", err)
	}
	return true, nil
}

// Status reads the current state without taking the account lock.
func (m *StateMachine) Status(ctx context.Context, id domain.AccountID) (AccountStatus, error) {
	if err := id.Validate(); err != nil {
		return AccountStatus{}, fmt.Errorf("%w: %w", domain.ErrInvalidTransitionRequest, err)
	}

	account, err := loadAccount(ctx, m.stores.Accounts, id, m.opts.Limits)
	if err != nil {
		return AccountStatus{}, err
	}
	record, err := loadRecord(ctx, m.stores.Blocks, id)
	if err != nil {
		return AccountStatus{}, err
	}

	return AccountStatus{
		Account:   account,
		Record:    record,
		BlockType: record.EffectiveType(m.opts.Location),
		AsOf:      m.opts.Clock.Now(),
	}, nil
}

type blockSpec struct {
	blockType   domain.BlockType
	reason      string
	performedBy string
	expiresAt   *time.Time
	snapshot    domain.UsageSnapshot
	kind        domain.NotificationKind
}

func (m *StateMachine) block(tx *transition, spec blockSpec) {
	entry := m.newEntry(tx, domain.OperationBlock, spec.reason, spec.performedBy)

	record := domain.BlockRecord{
		AccountID:          tx.result.AccountID,
		Status:             domain.StatusBlocked,
		Type:               spec.blockType,
		Reason:             spec.reason,
		BlockedAt:          tx.now,
		ExpiresAt:          spec.expiresAt,
		PerformedBy:        spec.performedBy,
		RequestsAtBlocking: spec.snapshot,
		UpdatedAt:          tx.now,
	}
	if err := m.saveRecord(tx, record); err != nil {
		tx.result.fail(domain.StepStoreWrite, err, true)
		m.appendAudit(tx, entry)
		return
	}
	tx.result.ok(domain.StepStoreWrite)
	tx.record = record

	entry.PolicySyncSucceeded = m.syncPolicy(tx, "add deny", m.policy.AddDeny, true)
	if entry.PolicySyncSucceeded {
		entry.NotificationSent = m.notify(tx, spec.kind, spec.reason, spec.performedBy)
	}

	m.appendAudit(tx, entry)
}

type unblockSpec struct {
	reason      string
	performedBy string
	protect     bool
	notify      bool
	kind        domain.NotificationKind
}

func (m *StateMachine) unblock(tx *transition, spec unblockSpec) {
	entry := m.newEntry(tx, domain.OperationUnblock, spec.reason, spec.performedBy)

	previous := tx.account
	account := tx.account
	account.AdministrativeProtection = spec.protect
	accountChanged := spec.protect || previous.AdministrativeProtection
	if accountChanged {
		account.UpdatedAt = tx.now
		if err := m.saveAccount(tx, account); err != nil {
			tx.result.fail(domain.StepStoreWrite, err, true)
			m.appendAudit(tx, entry)
			return
		}
	}

	record := domain.BlockRecord{
		AccountID:   tx.result.AccountID,
		Status:      domain.StatusActive,
		Type:        domain.BlockTypeNone,
		Reason:      spec.reason,
		PerformedBy: spec.performedBy,
		UpdatedAt:   tx.now,
	}
	if err := m.saveRecord(tx, record); err != nil {
		if accountChanged {
			if rollbackErr := m.saveAccount(tx, previous); rollbackErr != nil {
				err = fmt.Errorf("save block record and restore account: %w", errors.Join(err, rollbackErr))
			}
		}
		tx.result.fail(domain.StepStoreWrite, err, true)
		m.appendAudit(tx, entry)
		return
	}
	tx.result.ok(domain.StepStoreWrite)
	tx.account = account
	tx.record = record

	entry.PolicySyncSucceeded = m.syncPolicy(tx, "remove deny", m.policy.RemoveDeny, false)
	if !entry.PolicySyncSucceeded {
		m.markPolicyPending(tx)
	}
	if spec.notify {
		entry.NotificationSent = m.notify(tx, spec.kind, spec.reason, spec.performedBy)
	}

	m.appendAudit(tx, entry)
}

// markPolicyPending flags the active record so the sweeper retries the deny
// removal.
func (m *StateMachine) markPolicyPending(tx *transition) {
	record := tx.record
	record.PolicyPending = true
	if err := m.saveRecord(tx, record); err != nil {
		tx.result.fail(domain.StepMarkPolicy, err, false)
		return
	}
	tx.result.ok(domain.StepMarkPolicy)
	tx.record = record
}

func (m *StateMachine) run(ctx context.Context, id domain.AccountID, op domain.AuditOperation, apply func(*transition)) (TransitionResult, error) {
	result := TransitionResult{AccountID: id, Operation: op}
	if err := id.Validate(); err != nil {
		return m.reject(id, op, err)
	}

	unlock, err := m.locker.Lock(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrLockNotAcquired) {
			err = fmt.Errorf("%w: %w", domain.ErrLockNotAcquired, err)
		}
		result.fail(domain.StepLock, err, true)
		return m.finish(result)
	}
	defer unlock()
	result.ok(domain.StepLock)

	// Once the lock is held the transition runs to completion even if the
	// caller goes away; every step is bounded by its own timeout.
	tx := &transition{ctx: context.WithoutCancel(ctx), result: &result}
	if err := m.load(tx, id); err != nil {
		result.fail(domain.StepLoad, err, true)
		return m.finish(result)
	}
	result.ok(domain.StepLoad)

	apply(tx)

	result.Account = tx.account
	result.Record = tx.record
	return m.finish(result)
}

func (m *StateMachine) reject(id domain.AccountID, op domain.AuditOperation, err error) (TransitionResult, error) {
	if !errors.Is(err, domain.ErrInvalidTransitionRequest) {
		err = fmt.Errorf("%w: %w", domain.ErrInvalidTransitionRequest, err)
	}
	result := TransitionResult{AccountID: id, Operation: op}
	result.fail(domain.StepLoad, err, true)
	return m.finish(result)
}

func (m *StateMachine) finish(result TransitionResult) (TransitionResult, error) {
	if result.Outcome == "" {
		result.Outcome = OutcomeApplied
	}
	for _, step := range result.Steps {
		if step.Step == domain.StepPolicySync && step.OK {
			result.PolicySynced = true
		}
		if step.Step == domain.StepNotify && step.OK {
			result.NotificationSent = true
		}
	}

	logger := m.opts.Logger.With(
		zap.String("account_id", string(result.AccountID)),
		zap.String("operation", string(result.Operation)),
		zap.String("outcome", string(result.Outcome)),
	)
	for _, step := range result.Steps {
		if step.OK || step.Fatal {
			continue
		}
		logger.Warn("transition step failed", zap.String("step", string(step.Step)), zap.Error(step.Err))
	}

	err := result.Err()
	if err != nil {
		logger.Error("transition failed", zap.Error(err))
	} else {
		logger.Info("transition finished", zap.String("performed_by", result.Record.PerformedBy))
	}
	m.opts.Metrics.Transition(string(result.Operation), string(result.Outcome))

	return result, err
}

func (m *StateMachine) load(tx *transition, id domain.AccountID) error {
	ctx, cancel := context.WithTimeout(tx.ctx, m.opts.StoreTimeout)
	defer cancel()

	account, err := loadAccount(ctx, m.stores.Accounts, id, m.opts.Limits)
	if err != nil {
		return err
	}
	record, err := loadRecord(ctx, m.stores.Blocks, id)
	if err != nil {
		return err
	}

	tx.account = account
	tx.record = record
	tx.now = m.stamp(account, record)
	return nil
}

// stamp keeps per-account timestamps strictly increasing even when the wall
// clock steps backwards.
func (m *StateMachine) stamp(account domain.Account, record domain.BlockRecord) time.Time {
	now := m.opts.Clock.Now().Truncate(time.Microsecond)
	if last := domain.LastUpdate(account, record); !now.After(last) {
		now = last.Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return now
}

func (m *StateMachine) snapshot(tx *transition) (domain.UsageSnapshot, error) {
	ctx, cancel := context.WithTimeout(tx.ctx, m.opts.StoreTimeout)
	defer cancel()
	return readSnapshot(ctx, m.stores.Usage, tx.result.AccountID, tx.now, m.opts.Location)
}

func (m *StateMachine) saveRecord(tx *transition, record domain.BlockRecord) error {
	ctx, cancel := context.WithTimeout(tx.ctx, m.opts.StoreTimeout)
	defer cancel()
	if err := m.stores.Blocks.Save(ctx, record); err != nil {
		return fmt.Errorf("%w: save block record: %w", domain.ErrStoreWriteFailed, err)
	}
	return nil
}

func (m *StateMachine) saveAccount(tx *transition, account domain.Account) error {
	ctx, cancel := context.WithTimeout(tx.ctx, m.opts.StoreTimeout)
	defer cancel()
	if err := m.stores.Accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("%w: save account: %w", domain.ErrStoreWriteFailed, err)
	}
	return nil
}

func (m *StateMachine) syncPolicy(tx *transition, name string, fn func(context.Context, domain.AccountID) (bool, error), fatal bool) bool {
	ctx, cancel := context.WithTimeout(tx.ctx, m.opts.SyncTimeout)
	defer cancel()

	ok, err := fn(ctx, tx.result.AccountID)
	if err == nil && !ok {
		err = fmt.Errorf("%s reported no change", name)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrPolicySyncFailed) {
			err = fmt.Errorf("%w: %s: %w", domain.ErrPolicySyncFailed, name, err)
		}
		tx.result.fail(domain.StepPolicySync, err, fatal)
		return false
	}

	tx.result.ok(domain.StepPolicySync)
	return true
}

func (m *StateMachine) notify(tx *transition, kind domain.NotificationKind, reason, performedBy string) bool {
	expires := "indefinite"
	if tx.record.ExpiresAt != nil {
		expires = tx.record.ExpiresAt.In(m.opts.Location).Format(time.RFC3339)
	}

	accepted := m.notifications.Enqueue(domain.Notification{
		ID:        m.opts.NewID(),
		Kind:      kind,
		AccountID: tx.result.AccountID,
		Recipient: tx.account.Email,
		CreatedAt: tx.now,
		Context: map[string]string{
			"reason":       reason,
			"performed_by": performedBy,
			"expires_at":   expires,
		},
	})
	if !accepted {
		tx.result.fail(domain.StepNotify, fmt.Errorf("%w: %s not accepted for delivery", domain.ErrNotificationFailed, kind), false)
		return false
	}

	tx.result.ok(domain.StepNotify)
	return true
}

func (m *StateMachine) newEntry(tx *transition, op domain.AuditOperation, reason, performedBy string) domain.AuditLogEntry {
	return domain.AuditLogEntry{
		ID:          m.opts.NewID(),
		AccountID:   tx.result.AccountID,
		Operation:   op,
		Reason:      reason,
		PerformedBy: performedBy,
		Timestamp:   tx.now,
	}
}

// appendAudit writes the entry with the steps recorded so far. A failed
// audit write never undoes the transition.
func (m *StateMachine) appendAudit(tx *transition, entry domain.AuditLogEntry) {
	entry.Steps = tx.result.outcomes()

	ctx, cancel := context.WithTimeout(tx.ctx, m.opts.StoreTimeout)
	defer cancel()
	if err := m.stores.Audit.Append(ctx, entry); err != nil {
		tx.result.fail(domain.StepAuditWrite, fmt.Errorf("append audit entry: %w", err), false)
		return
	}
	tx.result.ok(domain.StepAuditWrite)
}
