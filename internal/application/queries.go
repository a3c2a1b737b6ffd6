package application

import (
	"time"

	"github.com/bnema/quotaguard/internal/domain"
)

type AccountStatus struct {
	Account   domain.Account
	Record    domain.BlockRecord
	BlockType domain.BlockType
	Usage     *domain.UsageSnapshot
	AsOf      time.Time
}

func (s AccountStatus) IsBlocked() bool {
	return s.Record.IsBlocked()
}

// SweepReport counts the per-account outcomes of the sweep passes.
type SweepReport struct {
	StartedAt         time.Time
	Duration          time.Duration
	Unblocked         int
	UnblockFailed     int
	PolicyReconciled  int
	PolicyFailed      int
	ProtectionCleared int
	ProtectionFailed  int
	Skipped           int
}

func (r SweepReport) Failed() int {
	return r.UnblockFailed + r.PolicyFailed + r.ProtectionFailed
}
