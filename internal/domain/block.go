package domain

import (
	"fmt"
	"strings"
	"time"
)

type BlockStatus string

const (
	StatusActive  BlockStatus = "ACTIVE"
	StatusBlocked BlockStatus = "BLOCKED"
)

type BlockType string

const (
	BlockTypeAuto   BlockType = "AUTO"
	BlockTypeManual BlockType = "MANUAL"
	BlockTypeNone   BlockType = "NONE"
)

const PerformedBySystem = "system"

const (
	ReasonDailyLimitExceeded   = "Daily limit exceeded"
	ReasonMonthlyLimitExceeded = "Monthly limit exceeded"
)

// BlockRecord is the single current block state of an account. History is kept
// in the audit log.
type BlockRecord struct {
	AccountID          AccountID
	Status             BlockStatus
	Type               BlockType
	Reason             string
	BlockedAt          time.Time
	ExpiresAt          *time.Time
	PerformedBy        string
	RequestsAtBlocking UsageSnapshot
	// PolicyPending marks an active record whose deny statement could not be
	// removed; the sweeper retries the removal.
	PolicyPending bool
	UpdatedAt     time.Time
}

// ActiveRecord is the implicit state of an account never seen before.
func ActiveRecord(id AccountID) BlockRecord {
	return BlockRecord{AccountID: id, Status: StatusActive, Type: BlockTypeNone}
}

func (r BlockRecord) IsBlocked() bool {
	return r.Status == StatusBlocked
}

// Expired reports whether a blocked record with a finite expiry is due.
// Indefinite blocks never expire.
func (r BlockRecord) Expired(now time.Time) bool {
	return r.IsBlocked() && r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// EffectiveType returns the stored discriminator, falling back to the
// midnight-boundary inference for records written without one.
func (r BlockRecord) EffectiveType(loc *time.Location) BlockType {
	if !r.IsBlocked() {
		return BlockTypeNone
	}
	if r.Type == BlockTypeAuto || r.Type == BlockTypeManual {
		return r.Type
	}
	if r.PerformedBy == PerformedBySystem && r.ExpiresAt != nil && IsResetBoundary(*r.ExpiresAt, loc) {
		return BlockTypeAuto
	}
	return BlockTypeManual
}

func (r BlockRecord) Validate() error {
	if err := r.AccountID.Validate(); err != nil {
		return err
	}
	switch r.Status {
	case StatusActive:
		return nil
	case StatusBlocked:
		if strings.TrimSpace(r.Reason) == "" {
			return fmt.Errorf("blocked record for %q has no reason", r.AccountID)
		}
		if r.BlockedAt.IsZero() {
			return fmt.Errorf("blocked record for %q has no blocked_at", r.AccountID)
		}
		return nil
	default:
		return fmt.Errorf("unknown block status %q", r.Status)
	}
}

// LastUpdate returns the newest of the two updated_at stamps.
func LastUpdate(account Account, record BlockRecord) time.Time {
	if account.UpdatedAt.After(record.UpdatedAt) {
		return account.UpdatedAt
	}
	return record.UpdatedAt
}
