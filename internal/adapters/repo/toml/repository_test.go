package toml

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/quotaguard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	store, err := NewStore(statePath)
	require.NoError(t, err)
	return store, statePath
}

func TestStoreAccountRoundTrip(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	updated := time.Date(2026, 2, 14, 11, 0, 0, 123456000, time.UTC)

	first := domain.Account{ID: "u1", DailyLimit: 3, MonthlyLimit: 100, Email: "u1@example.com", UpdatedAt: updated}
	second := domain.Account{ID: "u2", DailyLimit: 10, MonthlyLimit: 200, AdministrativeProtection: true}

	require.NoError(t, store.Save(context.Background(), first))
	require.NoError(t, store.Save(context.Background(), second))

	got, err := store.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 3, got.DailyLimit)
	assert.Equal(t, "u1@example.com", got.Email)
	assert.True(t, got.UpdatedAt.Equal(updated))

	protected, err := store.ListProtected(context.Background())
	require.NoError(t, err)
	require.Len(t, protected, 1)
	assert.Equal(t, domain.AccountID("u2"), protected[0].ID)

	second.AdministrativeProtection = false
	require.NoError(t, store.Save(context.Background(), second))
	protected, err = store.ListProtected(context.Background())
	require.NoError(t, err)
	assert.Empty(t, protected)
}

func TestStoreBlockRecordUpsertAndExpiredQuery(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	records := store.Records()
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	require.NoError(t, records.Save(context.Background(), domain.BlockRecord{
		AccountID: "expired", Status: domain.StatusBlocked, Type: domain.BlockTypeAuto,
		Reason: domain.ReasonDailyLimitExceeded, BlockedAt: past.Add(-time.Hour), ExpiresAt: &past,
		PerformedBy: domain.PerformedBySystem, RequestsAtBlocking: domain.UsageSnapshot{RequestsToday: 3, RequestsThisMonth: 40},
	}))
	require.NoError(t, records.Save(context.Background(), domain.BlockRecord{
		AccountID: "pending", Status: domain.StatusBlocked, Type: domain.BlockTypeManual,
		Reason: "abuse", BlockedAt: past, ExpiresAt: &future, PerformedBy: "admin1",
	}))
	require.NoError(t, records.Save(context.Background(), domain.BlockRecord{
		AccountID: "forever", Status: domain.StatusBlocked, Type: domain.BlockTypeManual,
		Reason: "abuse", BlockedAt: past.Add(-1000 * time.Hour), PerformedBy: "admin1",
	}))
	require.NoError(t, records.Save(context.Background(), domain.ActiveRecord("active")))

	expired, err := records.ListExpired(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, domain.AccountID("expired"), expired[0].AccountID)
	assert.Equal(t, int64(3), expired[0].RequestsAtBlocking.RequestsToday)
	assert.Equal(t, domain.BlockTypeAuto, expired[0].Type)

	forever, err := records.Get(context.Background(), "forever")
	require.NoError(t, err)
	assert.Nil(t, forever.ExpiresAt)

	require.NoError(t, records.Save(context.Background(), domain.BlockRecord{AccountID: "expired", Status: domain.StatusActive, UpdatedAt: now}))
	expired, err = records.ListExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, expired)

	_, err = records.Get(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrBlockRecordNotFound)
}

func TestStoreListPolicyPending(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	records := store.Records()
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	require.NoError(t, records.Save(context.Background(), domain.BlockRecord{
		AccountID: "owed", Status: domain.StatusActive, Reason: "Block expired",
		PerformedBy: domain.PerformedBySystem, PolicyPending: true, UpdatedAt: now,
	}))
	require.NoError(t, records.Save(context.Background(), domain.BlockRecord{AccountID: "clean", Status: domain.StatusActive, UpdatedAt: now}))
	require.NoError(t, records.Save(context.Background(), domain.BlockRecord{
		AccountID: "reblocked", Status: domain.StatusBlocked, Reason: "abuse",
		BlockedAt: now, PerformedBy: "admin1", PolicyPending: true,
	}))

	pending, err := records.ListPolicyPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, domain.AccountID("owed"), pending[0].AccountID)
	assert.True(t, pending[0].PolicyPending)
}

func TestStoreAccountWarnedOnRoundTrip(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	require.NoError(t, store.Save(context.Background(), domain.Account{
		ID: "u1", DailyLimit: 10, MonthlyLimit: 100, WarnedOn: "2026-02-14",
	}))

	account, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-14", account.WarnedOn)
}

func TestStoreRejectsBlockedRecordWithoutReason(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	err := store.SaveRecord(context.Background(), domain.BlockRecord{AccountID: "u1", Status: domain.StatusBlocked, BlockedAt: time.Now()})
	require.Error(t, err)
}

func TestStoreAuditAppendAndList(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	base := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(context.Background(), domain.AuditLogEntry{
			ID:                  "e" + strconv.Itoa(i),
			AccountID:           "u1",
			Operation:           domain.OperationBlock,
			PerformedBy:         domain.PerformedBySystem,
			Timestamp:           base.Add(time.Duration(i) * time.Microsecond),
			PolicySyncSucceeded: i%2 == 0,
			Steps:               []domain.StepOutcome{{Step: domain.StepStoreWrite, OK: true}, {Step: domain.StepPolicySync, Error: "boom"}},
		}))
	}
	require.NoError(t, store.Append(context.Background(), domain.AuditLogEntry{ID: "other", AccountID: "u2", Operation: domain.OperationUnblock, Timestamp: base}))

	all, err := store.List(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "e0", all[0].ID)
	assert.True(t, all[0].PolicySyncSucceeded)
	assert.Equal(t, "boom", all[0].Steps[1].Error)
	assert.True(t, all[1].Timestamp.After(all[0].Timestamp))

	latest, err := store.List(context.Background(), "u1", 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "e1", latest[0].ID)
	assert.Equal(t, "e2", latest[1].ID)
}

func TestStoreUsageCountsByWindow(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	day := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)

	for _, at := range []time.Time{
		day.Add(-time.Minute),
		day.Add(time.Hour),
		day.Add(time.Hour + 10*time.Second),
		day.Add(23 * time.Hour),
	} {
		require.NoError(t, store.RecordRequest(context.Background(), "u1", at))
	}
	require.NoError(t, store.RecordRequest(context.Background(), "u2", day.Add(time.Hour)))

	today, err := store.CountRequests(context.Background(), "u1", day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), today)

	month, err := store.CountRequests(context.Background(), "u1", day.AddDate(0, 0, -13), day.AddDate(0, 0, 15))
	require.NoError(t, err)
	assert.Equal(t, int64(4), month)

	none, err := store.CountRequests(context.Background(), "u3", day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, none)
}

func TestStoreUsagePrunesOldBuckets(t *testing.T) {
	t.Parallel()

	store, statePath := newTestStore(t)
	old := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	now := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordRequest(context.Background(), "u1", old))
	require.NoError(t, store.RecordRequest(context.Background(), "u1", now))

	data, err := os.ReadFile(statePath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "2025-10-01")
}

func TestStoreSaveCreatesDirectoryAndEnforcesPermissions(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "nested", "state.toml")
	store, err := NewStore(statePath)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), domain.Account{ID: "u1", DailyLimit: 1, MonthlyLimit: 1}))

	info, err := os.Stat(statePath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStoreMissingFileBehaviors(t *testing.T) {
	t.Parallel()

	store, err := NewStore(filepath.Join(t.TempDir(), "missing", "state.toml"))
	require.NoError(t, err)

	protected, err := store.ListProtected(context.Background())
	require.NoError(t, err)
	assert.Empty(t, protected)

	_, err = store.Get(context.Background(), "u1")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestStoreMalformedTOMLReturnsError(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(statePath, []byte("accounts = ["), 0o600))

	store, err := NewStore(statePath)
	require.NoError(t, err)

	_, err = store.ListProtected(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "decode state file")
}

func TestStoreSaveCanceledContextReturnsContextError(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Save(ctx, domain.Account{ID: "u1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestStoreConcurrentWritesAcrossInstancesPreserveAll(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")

	newStore := func() *Store {
		store, err := NewStore(statePath)
		require.NoError(t, err)
		return store
	}

	storeA := newStore()
	storeB := newStore()

	const perStoreWrites = 50
	start := make(chan struct{})
	errCh := make(chan error, perStoreWrites*2)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < perStoreWrites; i++ {
			errCh <- storeA.Save(context.Background(), domain.Account{ID: domain.AccountID("a-" + strconv.Itoa(i)), AdministrativeProtection: true})
		}
	}()

	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < perStoreWrites; i++ {
			errCh <- storeB.Save(context.Background(), domain.Account{ID: domain.AccountID("b-" + strconv.Itoa(i)), AdministrativeProtection: true})
		}
	}()

	close(start)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	accounts, err := storeA.ListProtected(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, perStoreWrites*2)
}

func TestStoreSerializedTOMLIncludesVersion(t *testing.T) {
	t.Parallel()

	store, statePath := newTestStore(t)

	require.NoError(t, store.Save(context.Background(), domain.Account{ID: "u1"}))

	data, err := os.ReadFile(statePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version = 1")
}

func TestStoreFutureSchemaVersionReturnsError(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(statePath, []byte(strings.Join([]string{
		"version = 999",
		"",
		"accounts = []",
		"",
	}, "\n")), 0o600))

	store, err := NewStore(statePath)
	require.NoError(t, err)

	_, err = store.ListProtected(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported state schema version")
}
