package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bnema/quotaguard/internal/domain"
	"github.com/bnema/quotaguard/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	stateFileMode   = 0o600
	stateDirMode    = 0o700
	tempFilePattern = ".state-*.toml.tmp"
	usageRetention  = 63 * 24 * time.Hour
)

// Store keeps accounts, block records, the audit log and usage counters in
// one TOML file, rewritten atomically on every mutation.
type Store struct {
	statePath string
	mu        *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var (
	_ ports.AccountRepository = (*Store)(nil)
	_ ports.AuditLog          = (*Store)(nil)
	_ ports.UsageReader       = (*Store)(nil)
	_ ports.UsageRecorder     = (*Store)(nil)
)

func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("state path is empty")
	}
	statePath, err := normalizeStatePath(path)
	if err != nil {
		return nil, err
	}

	return &Store{statePath: statePath, mu: lockForPath(statePath)}, nil
}

func (s *Store) Path() string {
	return s.statePath
}

func (s *Store) Get(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	var account domain.Account
	err := s.view(ctx, func(file *fileSchema) error {
		for _, entry := range file.Accounts {
			if entry.ID == string(id) {
				account = accountFromSchema(entry)
				return nil
			}
		}
		return domain.ErrAccountNotFound
	})
	return account, err
}

func (s *Store) Save(ctx context.Context, account domain.Account) error {
	return s.update(ctx, func(file *fileSchema) error {
		encoded := accountToSchema(account)
		for i := range file.Accounts {
			if file.Accounts[i].ID == encoded.ID {
				file.Accounts[i] = encoded
				return nil
			}
		}
		file.Accounts = append(file.Accounts, encoded)
		return nil
	})
}

func (s *Store) ListProtected(ctx context.Context) ([]domain.Account, error) {
	var accounts []domain.Account
	err := s.view(ctx, func(file *fileSchema) error {
		for _, entry := range file.Accounts {
			if entry.AdministrativeProtection {
				accounts = append(accounts, accountFromSchema(entry))
			}
		}
		return nil
	})
	return accounts, err
}

// Records returns a BlockRecordRepository view of the store. The account and
// record repositories share method names, so they are exposed separately.
func (s *Store) Records() *RecordStore {
	return &RecordStore{store: s}
}

type RecordStore struct {
	store *Store
}

var _ ports.BlockRecordRepository = (*RecordStore)(nil)

func (r *RecordStore) Get(ctx context.Context, id domain.AccountID) (domain.BlockRecord, error) {
	return r.store.GetRecord(ctx, id)
}

func (r *RecordStore) Save(ctx context.Context, record domain.BlockRecord) error {
	return r.store.SaveRecord(ctx, record)
}

func (r *RecordStore) ListExpired(ctx context.Context, now time.Time) ([]domain.BlockRecord, error) {
	return r.store.ListExpired(ctx, now)
}

func (r *RecordStore) ListPolicyPending(ctx context.Context) ([]domain.BlockRecord, error) {
	return r.store.ListPolicyPending(ctx)
}

func (s *Store) GetRecord(ctx context.Context, id domain.AccountID) (domain.BlockRecord, error) {
	var record domain.BlockRecord
	err := s.view(ctx, func(file *fileSchema) error {
		for _, entry := range file.Blocks {
			if entry.AccountID == string(id) {
				record = blockFromSchema(entry)
				return nil
			}
		}
		return domain.ErrBlockRecordNotFound
	})
	return record, err
}

func (s *Store) SaveRecord(ctx context.Context, record domain.BlockRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validate block record: %w", err)
	}

	return s.update(ctx, func(file *fileSchema) error {
		encoded := blockToSchema(record)
		for i := range file.Blocks {
			if file.Blocks[i].AccountID == encoded.AccountID {
				file.Blocks[i] = encoded
				return nil
			}
		}
		file.Blocks = append(file.Blocks, encoded)
		return nil
	})
}

func (s *Store) ListExpired(ctx context.Context, now time.Time) ([]domain.BlockRecord, error) {
	var records []domain.BlockRecord
	err := s.view(ctx, func(file *fileSchema) error {
		for _, entry := range file.Blocks {
			record := blockFromSchema(entry)
			if record.Expired(now) {
				records = append(records, record)
			}
		}
		return nil
	})
	return records, err
}

func (s *Store) ListPolicyPending(ctx context.Context) ([]domain.BlockRecord, error) {
	var records []domain.BlockRecord
	err := s.view(ctx, func(file *fileSchema) error {
		for _, entry := range file.Blocks {
			record := blockFromSchema(entry)
			if record.PolicyPending && !record.IsBlocked() {
				records = append(records, record)
			}
		}
		return nil
	})
	return records, err
}

func (s *Store) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	return s.update(ctx, func(file *fileSchema) error {
		file.Audit = append(file.Audit, auditToSchema(entry))
		return nil
	})
}

// List returns the newest limit entries for the account in append order. A
// non-positive limit returns all of them.
func (s *Store) List(ctx context.Context, id domain.AccountID, limit int) ([]domain.AuditLogEntry, error) {
	var entries []domain.AuditLogEntry
	err := s.view(ctx, func(file *fileSchema) error {
		for _, entry := range file.Audit {
			if entry.AccountID == string(id) {
				entries = append(entries, auditFromSchema(entry))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

func (s *Store) CountRequests(ctx context.Context, id domain.AccountID, from, to time.Time) (int64, error) {
	var total int64
	err := s.view(ctx, func(file *fileSchema) error {
		for _, entry := range file.Usage {
			if entry.AccountID != string(id) {
				continue
			}
			minute := parseTime(entry.Minute)
			if !minute.Before(from) && minute.Before(to) {
				total += entry.Requests
			}
		}
		return nil
	})
	return total, err
}

func (s *Store) RecordRequest(ctx context.Context, id domain.AccountID, at time.Time) error {
	if err := id.Validate(); err != nil {
		return err
	}
	minute := formatTime(at.UTC().Truncate(time.Minute))

	return s.update(ctx, func(file *fileSchema) error {
		cutoff := at.Add(-usageRetention)
		kept := file.Usage[:0]
		found := false
		for _, entry := range file.Usage {
			if parseTime(entry.Minute).Before(cutoff) {
				continue
			}
			if entry.AccountID == string(id) && entry.Minute == minute {
				entry.Requests++
				found = true
			}
			kept = append(kept, entry)
		}
		if !found {
			kept = append(kept, usageSchema{AccountID: string(id), Minute: minute, Requests: 1})
		}
		sort.SliceStable(kept, func(i, j int) bool {
			if kept[i].AccountID != kept[j].AccountID {
				return kept[i].AccountID < kept[j].AccountID
			}
			return kept[i].Minute < kept[j].Minute
		})
		file.Usage = kept
		return nil
	})
}

func (s *Store) view(ctx context.Context, fn func(*fileSchema) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.readSchema()
	if err != nil {
		return err
	}

	return fn(&file)
}

func (s *Store) update(ctx context.Context, fn func(*fileSchema) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readSchema()
	if err != nil {
		return err
	}

	if err := fn(&file); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return s.writeSchema(file)
}

func (s *Store) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(s.statePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{Version: currentSchemaVersion}, nil
		}
		return fileSchema{}, fmt.Errorf("read state file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode state file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizeStatePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve state path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (s *Store) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(s.statePath), stateDirMode); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode state file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.statePath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}

	if err := tempFile.Chmod(stateFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp state file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tempName, s.statePath); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(s.statePath, stateFileMode); err != nil {
		return fmt.Errorf("chmod state file: %w", err)
	}

	return nil
}

func accountToSchema(account domain.Account) accountSchema {
	return accountSchema{
		ID:                       string(account.ID),
		DailyLimit:               account.DailyLimit,
		MonthlyLimit:             account.MonthlyLimit,
		AdministrativeProtection: account.AdministrativeProtection,
		Email:                    account.Email,
		WarnedOn:                 account.WarnedOn,
		UpdatedAt:                formatTime(account.UpdatedAt),
	}
}

func accountFromSchema(entry accountSchema) domain.Account {
	return domain.Account{
		ID:                       domain.AccountID(entry.ID),
		DailyLimit:               entry.DailyLimit,
		MonthlyLimit:             entry.MonthlyLimit,
		AdministrativeProtection: entry.AdministrativeProtection,
		Email:                    entry.Email,
		WarnedOn:                 entry.WarnedOn,
		UpdatedAt:                parseTime(entry.UpdatedAt),
	}
}

func blockToSchema(record domain.BlockRecord) blockSchema {
	encoded := blockSchema{
		AccountID:         string(record.AccountID),
		Status:            string(record.Status),
		Type:              string(record.Type),
		Reason:            record.Reason,
		BlockedAt:         formatTime(record.BlockedAt),
		PerformedBy:       record.PerformedBy,
		RequestsToday:     record.RequestsAtBlocking.RequestsToday,
		RequestsThisMonth: record.RequestsAtBlocking.RequestsThisMonth,
		PolicyPending:     record.PolicyPending,
		UpdatedAt:         formatTime(record.UpdatedAt),
	}
	if record.ExpiresAt != nil {
		encoded.ExpiresAt = formatTime(*record.ExpiresAt)
	}
	return encoded
}

func blockFromSchema(entry blockSchema) domain.BlockRecord {
	record := domain.BlockRecord{
		AccountID:   domain.AccountID(entry.AccountID),
		Status:      domain.BlockStatus(entry.Status),
		Type:        domain.BlockType(entry.Type),
		Reason:      entry.Reason,
		BlockedAt:   parseTime(entry.BlockedAt),
		PerformedBy: entry.PerformedBy,
		RequestsAtBlocking: domain.UsageSnapshot{
			RequestsToday:     entry.RequestsToday,
			RequestsThisMonth: entry.RequestsThisMonth,
		},
		PolicyPending: entry.PolicyPending,
		UpdatedAt:     parseTime(entry.UpdatedAt),
	}
	if expires := parseTime(entry.ExpiresAt); !expires.IsZero() {
		record.ExpiresAt = &expires
	}
	return record
}

func auditToSchema(entry domain.AuditLogEntry) auditSchema {
	steps := make([]stepSchema, 0, len(entry.Steps))
	for _, step := range entry.Steps {
		steps = append(steps, stepSchema{Step: string(step.Step), OK: step.OK, Error: step.Error})
	}
	return auditSchema{
		ID:                  entry.ID,
		AccountID:           string(entry.AccountID),
		Operation:           string(entry.Operation),
		Reason:              entry.Reason,
		PerformedBy:         entry.PerformedBy,
		Timestamp:           formatTime(entry.Timestamp),
		PolicySyncSucceeded: entry.PolicySyncSucceeded,
		NotificationSent:    entry.NotificationSent,
		Steps:               steps,
	}
}

func auditFromSchema(entry auditSchema) domain.AuditLogEntry {
	var steps []domain.StepOutcome
	for _, step := range entry.Steps {
		steps = append(steps, domain.StepOutcome{Step: domain.Step(step.Step), OK: step.OK, Error: step.Error})
	}
	return domain.AuditLogEntry{
		ID:                  entry.ID,
		AccountID:           domain.AccountID(entry.AccountID),
		Operation:           domain.AuditOperation(entry.Operation),
		Reason:              entry.Reason,
		PerformedBy:         entry.PerformedBy,
		Timestamp:           parseTime(entry.Timestamp),
		PolicySyncSucceeded: entry.PolicySyncSucceeded,
		NotificationSent:    entry.NotificationSent,
		Steps:               steps,
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339Nano)
}
