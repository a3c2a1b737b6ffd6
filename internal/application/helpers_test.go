package application

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/quotaguard/internal/adapters/lock/local"
	tomlrepo "github.com/bnema/quotaguard/internal/adapters/repo/toml"
	"github.com/bnema/quotaguard/internal/domain"
)

func mockAnyContext() interface{} {
	return mock.Anything
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type recordingSink struct {
	mu     sync.Mutex
	notes  []domain.Notification
	reject bool
}

func (s *recordingSink) Enqueue(n domain.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reject {
		return false
	}
	s.notes = append(s.notes, n)
	return true
}

func (s *recordingSink) kinds() []domain.NotificationKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]domain.NotificationKind, 0, len(s.notes))
	for _, n := range s.notes {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

// fakePolicy records calls and tracks whether the deny is in place.
type fakePolicy struct {
	mu        sync.Mutex
	denied    map[domain.AccountID]bool
	adds      int
	removes   int
	addErr    error
	removeErr error
}

func newFakePolicy() *fakePolicy {
	return &fakePolicy{denied: make(map[domain.AccountID]bool)}
}

func (p *fakePolicy) AddDeny(_ context.Context, id domain.AccountID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.adds++
	if p.addErr != nil {
		return false, p.addErr
	}
	p.denied[id] = true
	return true, nil
}

func (p *fakePolicy) RemoveDeny(_ context.Context, id domain.AccountID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removes++
	if p.removeErr != nil {
		return false, p.removeErr
	}
	delete(p.denied, id)
	return true, nil
}

func (p *fakePolicy) isDenied(id domain.AccountID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.denied[id]
}

var testStart = time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)

type engine struct {
	store     *tomlrepo.Store
	stores    Stores
	clock     *fakeClock
	policy    *fakePolicy
	sink      *recordingSink
	opts      Options
	machine   *StateMachine
	evaluator *Evaluator
	gateway   *Gateway
}

func newEngine(t *testing.T, limits domain.Limits) *engine {
	t.Helper()

	store, err := tomlrepo.NewStore(filepath.Join(t.TempDir(), "state.toml"))
	require.NoError(t, err)

	e := &engine{
		store:  store,
		stores: Stores{Accounts: store, Blocks: store.Records(), Usage: store, Audit: store},
		clock:  newFakeClock(testStart),
		policy: newFakePolicy(),
		sink:   &recordingSink{},
	}
	e.opts = Options{
		Location:     time.UTC,
		Limits:       limits,
		WarningRatio: 0.8,
		Clock:        e.clock,
	}
	e.machine = NewStateMachine(e.stores, e.policy, local.NewLocker(), e.sink, e.opts)
	e.evaluator = NewEvaluator(e.stores, e.machine, e.opts)
	e.gateway = NewGateway(e.evaluator, e.machine, e.stores, store, e.opts)
	return e
}

func (e *engine) record(t *testing.T, id domain.AccountID) domain.BlockRecord {
	t.Helper()
	record, err := loadRecord(context.Background(), e.stores.Blocks, id)
	require.NoError(t, err)
	return record
}

func (e *engine) account(t *testing.T, id domain.AccountID) domain.Account {
	t.Helper()
	account, err := loadAccount(context.Background(), e.stores.Accounts, id, e.opts.Limits)
	require.NoError(t, err)
	return account
}

func (e *engine) audit(t *testing.T, id domain.AccountID) []domain.AuditLogEntry {
	t.Helper()
	entries, err := e.store.List(context.Background(), id, 100)
	require.NoError(t, err)
	return entries
}

func (e *engine) addUsage(t *testing.T, id domain.AccountID, n int, at time.Time) {
	t.Helper()
	for range n {
		require.NoError(t, e.store.RecordRequest(context.Background(), id, at))
	}
}
