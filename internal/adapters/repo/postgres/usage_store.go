package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/quotaguard/internal/domain"
	"github.com/bnema/quotaguard/internal/ports"
)

// UsageStore reads request counts written by the ingestion collaborator.
type UsageStore struct {
	db *DB
}

var (
	_ ports.UsageReader   = (*UsageStore)(nil)
	_ ports.UsageRecorder = (*UsageStore)(nil)
)

func NewUsageStore(db *DB) *UsageStore {
	return &UsageStore{db: db}
}

func (u *UsageStore) CountRequests(ctx context.Context, id domain.AccountID, from, to time.Time) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM usage_requests WHERE account_id = $1 AND requested_at >= $2 AND requested_at < $3`
	if err := u.db.conn.GetContext(ctx, &count, query, string(id), from, to); err != nil {
		return 0, fmt.Errorf("count requests for %q: %w", id, err)
	}
	return count, nil
}

func (u *UsageStore) RecordRequest(ctx context.Context, id domain.AccountID, at time.Time) error {
	query := `INSERT INTO usage_requests (account_id, requested_at) VALUES ($1, $2)`
	if _, err := u.db.conn.ExecContext(ctx, query, string(id), at); err != nil {
		return fmt.Errorf("insert usage request for %q: %w", id, err)
	}
	return nil
}
