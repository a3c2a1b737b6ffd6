package ports

import (
	"context"

	"github.com/bnema/quotaguard/internal/domain"
)

type AuditLog interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) error
	List(ctx context.Context, id domain.AccountID, limit int) ([]domain.AuditLogEntry, error)
}
