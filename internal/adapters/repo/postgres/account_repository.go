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

type AccountRepository struct {
	db *DB
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

type accountRow struct {
	AccountID                string    `db:"account_id"`
	DailyLimit               int       `db:"daily_limit"`
	MonthlyLimit             int       `db:"monthly_limit"`
	AdministrativeProtection bool      `db:"administrative_protection"`
	Email                    string    `db:"email"`
	WarnedOn                 string    `db:"warned_on"`
	UpdatedAt                time.Time `db:"updated_at"`
}

func (r accountRow) toDomain() domain.Account {
	return domain.Account{
		ID:                       domain.AccountID(r.AccountID),
		DailyLimit:               r.DailyLimit,
		MonthlyLimit:             r.MonthlyLimit,
		AdministrativeProtection: r.AdministrativeProtection,
		Email:                    r.Email,
		WarnedOn:                 r.WarnedOn,
		UpdatedAt:                r.UpdatedAt,
	}
}

const accountColumns = `account_id, daily_limit, monthly_limit, administrative_protection, email, warned_on, updated_at`

func (r *AccountRepository) Get(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	var row accountRow
	query := `SELECT ` + accountColumns + ` FROM account_limits WHERE account_id = $1`
	if err := r.db.conn.GetContext(ctx, &row, query, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("select account %q: %w", id, err)
	}
	return row.toDomain(), nil
}

func (r *AccountRepository) Save(ctx context.Context, account domain.Account) error {
	query := `INSERT INTO account_limits (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id) DO UPDATE SET
			daily_limit = EXCLUDED.daily_limit,
			monthly_limit = EXCLUDED.monthly_limit,
			administrative_protection = EXCLUDED.administrative_protection,
			email = EXCLUDED.email,
			warned_on = EXCLUDED.warned_on,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.conn.ExecContext(ctx, query,
		string(account.ID),
		account.DailyLimit,
		account.MonthlyLimit,
		account.AdministrativeProtection,
		account.Email,
		account.WarnedOn,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert account %q: %w", account.ID, err)
	}
	return nil
}

func (r *AccountRepository) ListProtected(ctx context.Context) ([]domain.Account, error) {
	var rows []accountRow
	query := `SELECT ` + accountColumns + ` FROM account_limits WHERE administrative_protection = TRUE ORDER BY account_id`
	if err := r.db.conn.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("select protected accounts: %w", err)
	}

	accounts := make([]domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, row.toDomain())
	}
	return accounts, nil
}
