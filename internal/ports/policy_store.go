package ports

import (
	"context"

	"github.com/bnema/quotaguard/internal/domain"
)

// PolicyStore reads and writes the external per-account authorization
// document. Get returns domain.ErrPolicyNotFound when none exists.
type PolicyStore interface {
	Get(ctx context.Context, id domain.AccountID) (domain.PolicyDocument, error)
	Put(ctx context.Context, id domain.AccountID, doc domain.PolicyDocument) error
}
