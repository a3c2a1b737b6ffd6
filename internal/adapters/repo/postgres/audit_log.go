package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bnema/quotaguard/internal/domain"
	"github.com/bnema/quotaguard/internal/ports"
)

type AuditLog struct {
	db *DB
}

var _ ports.AuditLog = (*AuditLog)(nil)

func NewAuditLog(db *DB) *AuditLog {
	return &AuditLog{db: db}
}

type auditRow struct {
	ID                  string    `db:"id"`
	AccountID           string    `db:"account_id"`
	Operation           string    `db:"operation"`
	Reason              string    `db:"reason"`
	PerformedBy         string    `db:"performed_by"`
	RecordedAt          time.Time `db:"recorded_at"`
	PolicySyncSucceeded bool      `db:"policy_sync_succeeded"`
	NotificationSent    bool      `db:"notification_sent"`
	Steps               []byte    `db:"steps"`
}

type stepJSON struct {
	Step  string `json:"step"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Append inserts one row; rows are never updated.
func (a *AuditLog) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	steps := make([]stepJSON, 0, len(entry.Steps))
	for _, s := range entry.Steps {
		steps = append(steps, stepJSON{Step: string(s.Step), OK: s.OK, Error: s.Error})
	}
	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("encode audit steps: %w", err)
	}

	query := `INSERT INTO block_audit_log
		(id, account_id, operation, reason, performed_by, recorded_at, policy_sync_succeeded, notification_sent, steps)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = a.db.conn.ExecContext(ctx, query,
		entry.ID,
		string(entry.AccountID),
		string(entry.Operation),
		entry.Reason,
		entry.PerformedBy,
		entry.Timestamp,
		entry.PolicySyncSucceeded,
		entry.NotificationSent,
		stepsJSON,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns the newest limit entries in chronological order.
func (a *AuditLog) List(ctx context.Context, id domain.AccountID, limit int) ([]domain.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []auditRow
	query := `SELECT id, account_id, operation, reason, performed_by, recorded_at, policy_sync_succeeded, notification_sent, steps
		FROM block_audit_log WHERE account_id = $1 ORDER BY recorded_at DESC LIMIT $2`
	if err := a.db.conn.SelectContext(ctx, &rows, query, string(id), limit); err != nil {
		return nil, fmt.Errorf("select audit entries: %w", err)
	}

	entries := make([]domain.AuditLogEntry, len(rows))
	for i, row := range rows {
		var steps []stepJSON
		if len(row.Steps) > 0 {
			if err := json.Unmarshal(row.Steps, &steps); err != nil {
				return nil, fmt.Errorf("decode audit steps for %s: %w", row.ID, err)
			}
		}
		entry := domain.AuditLogEntry{
			ID:                  row.ID,
			AccountID:           domain.AccountID(row.AccountID),
			Operation:           domain.AuditOperation(row.Operation),
			Reason:              row.Reason,
			PerformedBy:         row.PerformedBy,
			Timestamp:           row.RecordedAt,
			PolicySyncSucceeded: row.PolicySyncSucceeded,
			NotificationSent:    row.NotificationSent,
		}
		for _, s := range steps {
			entry.Steps = append(entry.Steps, domain.StepOutcome{Step: domain.Step(s.Step), OK: s.OK, Error: s.Error})
		}
		entries[len(rows)-1-i] = entry
	}
	return entries, nil
}
