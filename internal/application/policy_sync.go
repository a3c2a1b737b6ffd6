package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/quotaguard/internal/domain"
	"github.com/bnema/quotaguard/internal/metrics"
	"github.com/bnema/quotaguard/internal/ports"
	"go.uber.org/zap"
)

// PolicySync adds and removes the engine deny statement.
type PolicySync interface {
	AddDeny(ctx context.Context, id domain.AccountID) (bool, error)
	RemoveDeny(ctx context.Context, id domain.AccountID) (bool, error)
}

type PolicySynchronizer struct {
	store   ports.PolicyStore
	deny    domain.Statement
	allow   domain.Statement
	logger  *zap.Logger
	metrics *metrics.Metrics
}

var _ PolicySync = (*PolicySynchronizer)(nil)

type PolicyOptions struct {
	Actions  []string
	AllowSID string
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

func NewPolicySynchronizer(store ports.PolicyStore, opts PolicyOptions) *PolicySynchronizer {
	if opts.AllowSID == "" {
		opts.AllowSID = domain.DefaultAllowSID
	}
	if len(opts.Actions) == 0 {
		opts.Actions = domain.DefaultMeteredActions
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &PolicySynchronizer{
		store:   store,
		deny:    domain.DenyStatement(opts.Actions),
		allow:   domain.AllowStatement(opts.AllowSID, opts.Actions),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// AddDeny makes the deny statement the first and only DenySID statement of
// the account document, creating a default document when none exists.
func (p *PolicySynchronizer) AddDeny(ctx context.Context, id domain.AccountID) (bool, error) {
	ok, err := p.addDeny(ctx, id)
	p.metrics.PolicySync("add_deny", ok)
	return ok, err
}

func (p *PolicySynchronizer) addDeny(ctx context.Context, id domain.AccountID) (bool, error) {
	created := false
	current, err := p.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrPolicyNotFound) {
			return false, fmt.Errorf("%w: read policy for %q: %w", domain.ErrPolicySyncFailed, id, err)
		}
		p.logger.Info("creating default policy document", zap.String("account_id", string(id)))
		current = domain.DefaultPolicyDocument(p.allow)
		created = true
	}

	next := current.WithoutSID(domain.DenySID).WithFirst(p.deny)
	if created || !next.Equal(current) {
		if err := p.store.Put(ctx, id, next); err != nil {
			return false, fmt.Errorf("%w: write policy for %q: %w", domain.ErrPolicySyncFailed, id, err)
		}
	}

	written, err := p.store.Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("%w: verify policy for %q: %w", domain.ErrPolicySyncFailed, id, err)
	}
	if !written.HasLeadingDeny() {
		return false, fmt.Errorf("%w: deny statement missing after write for %q", domain.ErrPolicySyncFailed, id)
	}

	return true, nil
}

// RemoveDeny strips the deny statement. A missing document is already in the
// desired state. If no allow statement remains a default one is appended.
func (p *PolicySynchronizer) RemoveDeny(ctx context.Context, id domain.AccountID) (bool, error) {
	ok, err := p.removeDeny(ctx, id)
	p.metrics.PolicySync("remove_deny", ok)
	return ok, err
}

func (p *PolicySynchronizer) removeDeny(ctx context.Context, id domain.AccountID) (bool, error) {
	current, err := p.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrPolicyNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("%w: read policy for %q: %w", domain.ErrPolicySyncFailed, id, err)
	}

	next := current.WithoutSID(domain.DenySID)
	if !next.HasAllow() {
		next = next.WithLast(p.allow)
	}
	if next.Equal(current) {
		return true, nil
	}

	if err := p.store.Put(ctx, id, next); err != nil {
		return false, fmt.Errorf("%w: write policy for %q: %w", domain.ErrPolicySyncFailed, id, err)
	}

	written, err := p.store.Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("%w: verify policy for %q: %w", domain.ErrPolicySyncFailed, id, err)
	}
	if written.CountSID(domain.DenySID) != 0 {
		return false, fmt.Errorf("%w: deny statement still present after write for %q", domain.ErrPolicySyncFailed, id)
	}

	return true, nil
}
