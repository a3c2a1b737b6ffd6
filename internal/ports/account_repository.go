package ports

import (
	"context"

	"github.com/bnema/quotaguard/internal/domain"
)

// AccountRepository stores limit and protection configuration. Get returns
// domain.ErrAccountNotFound for an unconfigured account.
type AccountRepository interface {
	Get(ctx context.Context, id domain.AccountID) (domain.Account, error)
	Save(ctx context.Context, account domain.Account) error
	ListProtected(ctx context.Context) ([]domain.Account, error)
}
