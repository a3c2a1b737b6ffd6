package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/quotaguard/internal/domain"
	"github.com/bnema/quotaguard/internal/ports"
)

type BlockRecordRepository struct {
	db *DB
}

var _ ports.BlockRecordRepository = (*BlockRecordRepository)(nil)

func NewBlockRecordRepository(db *DB) *BlockRecordRepository {
	return &BlockRecordRepository{db: db}
}

type blockRow struct {
	AccountID     string       `db:"account_id"`
	Status        string       `db:"status"`
	BlockType     string       `db:"block_type"`
	Reason        string       `db:"reason"`
	BlockedAt     sql.NullTime `db:"blocked_at"`
	ExpiresAt     sql.NullTime `db:"expires_at"`
	PerformedBy   string       `db:"performed_by"`
	RequestsToday int64        `db:"requests_today"`
	RequestsMonth int64        `db:"requests_month"`
	PolicyPending bool         `db:"policy_pending"`
	UpdatedAt     time.Time    `db:"updated_at"`
}

func (r blockRow) toDomain() domain.BlockRecord {
	record := domain.BlockRecord{
		AccountID:   domain.AccountID(r.AccountID),
		Status:      domain.BlockStatus(r.Status),
		Type:        domain.BlockType(r.BlockType),
		Reason:      r.Reason,
		PerformedBy: r.PerformedBy,
		RequestsAtBlocking: domain.UsageSnapshot{
			RequestsToday:     r.RequestsToday,
			RequestsThisMonth: r.RequestsMonth,
		},
		PolicyPending: r.PolicyPending,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.BlockedAt.Valid {
		record.BlockedAt = r.BlockedAt.Time
	}
	if r.ExpiresAt.Valid {
		expires := r.ExpiresAt.Time
		record.ExpiresAt = &expires
	}
	return record
}

const blockColumns = `account_id, status, block_type, reason, blocked_at, expires_at, performed_by, requests_today, requests_month, policy_pending, updated_at`

func (r *BlockRecordRepository) Get(ctx context.Context, id domain.AccountID) (domain.BlockRecord, error) {
	var row blockRow
	query := `SELECT ` + blockColumns + ` FROM block_records WHERE account_id = $1`
	if err := r.db.conn.GetContext(ctx, &row, query, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.BlockRecord{}, domain.ErrBlockRecordNotFound
		}
		return domain.BlockRecord{}, fmt.Errorf("select block record %q: %w", id, err)
	}
	return row.toDomain(), nil
}

// Save upserts the single row for the account.
func (r *BlockRecordRepository) Save(ctx context.Context, record domain.BlockRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validate block record: %w", err)
	}

	query := `INSERT INTO block_records (` + blockColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (account_id) DO UPDATE SET
			status = EXCLUDED.status,
			block_type = EXCLUDED.block_type,
			reason = EXCLUDED.reason,
			blocked_at = EXCLUDED.blocked_at,
			expires_at = EXCLUDED.expires_at,
			performed_by = EXCLUDED.performed_by,
			requests_today = EXCLUDED.requests_today,
			requests_month = EXCLUDED.requests_month,
			policy_pending = EXCLUDED.policy_pending,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.conn.ExecContext(ctx, query,
		string(record.AccountID),
		string(record.Status),
		string(record.Type),
		record.Reason,
		nullTime(record.BlockedAt),
		nullTimePtr(record.ExpiresAt),
		record.PerformedBy,
		record.RequestsAtBlocking.RequestsToday,
		record.RequestsAtBlocking.RequestsThisMonth,
		record.PolicyPending,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert block record %q: %w", record.AccountID, err)
	}
	return nil
}

func (r *BlockRecordRepository) ListExpired(ctx context.Context, now time.Time) ([]domain.BlockRecord, error) {
	var rows []blockRow
	query := `SELECT ` + blockColumns + ` FROM block_records
		WHERE status = 'BLOCKED' AND expires_at IS NOT NULL AND expires_at <= $1
		ORDER BY expires_at`
	if err := r.db.conn.SelectContext(ctx, &rows, query, now); err != nil {
		return nil, fmt.Errorf("select expired block records: %w", err)
	}

	records := make([]domain.BlockRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toDomain())
	}
	return records, nil
}

func (r *BlockRecordRepository) ListPolicyPending(ctx context.Context) ([]domain.BlockRecord, error) {
	var rows []blockRow
	query := `SELECT ` + blockColumns + ` FROM block_records
		WHERE status = 'ACTIVE' AND policy_pending
		ORDER BY updated_at`
	if err := r.db.conn.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("select policy pending block records: %w", err)
	}

	records := make([]domain.BlockRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toDomain())
	}
	return records, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return nullTime(*t)
}
