package ports

import (
	"context"
	"time"

	"github.com/bnema/quotaguard/internal/domain"
)

// BlockRecordRepository upserts the single current record per account.
type BlockRecordRepository interface {
	Get(ctx context.Context, id domain.AccountID) (domain.BlockRecord, error)
	Save(ctx context.Context, record domain.BlockRecord) error
	// ListExpired returns blocked records whose non-null expiry is at or before now.
	ListExpired(ctx context.Context, now time.Time) ([]domain.BlockRecord, error)
	// ListPolicyPending returns active records whose deny removal is still owed.
	ListPolicyPending(ctx context.Context) ([]domain.BlockRecord, error)
}
