package ports

import (
	"context"
	"time"

	"github.com/bnema/quotaguard/internal/domain"
)

type UsageReader interface {
	// CountRequests counts requests in [from, to).
	CountRequests(ctx context.Context, id domain.AccountID, from, to time.Time) (int64, error)
}

type UsageRecorder interface {
	RecordRequest(ctx context.Context, id domain.AccountID, at time.Time) error
}
