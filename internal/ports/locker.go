package ports

import (
	"context"

	"github.com/bnema/quotaguard/internal/domain"
)

// AccountLocker serializes transitions for one account. The returned func
// releases the lock and is safe to call once.
type AccountLocker interface {
	Lock(ctx context.Context, id domain.AccountID) (func(), error)
}
