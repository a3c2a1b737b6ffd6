package domain

import "time"

type AuditOperation string

const (
	OperationBlock             AuditOperation = "BLOCK"
	OperationUnblock           AuditOperation = "UNBLOCK"
	OperationProtectionCleared AuditOperation = "PROTECTION_CLEARED"
	OperationPolicyReconciled  AuditOperation = "POLICY_RECONCILED"
)

type Step string

const (
	StepLock       Step = "lock"
	StepLoad       Step = "load"
	StepUsageRead  Step = "usage_read"
	StepStoreWrite Step = "store_write"
	StepPolicySync Step = "policy_sync"
	StepMarkPolicy Step = "mark_policy_pending"
	StepAuditWrite Step = "audit_write"
	StepNotify     Step = "notify"
)

// StepOutcome is the persisted form of one transition step.
type StepOutcome struct {
	Step  Step
	OK    bool
	Error string
}

// AuditLogEntry is immutable once appended.
type AuditLogEntry struct {
	ID                  string
	AccountID           AccountID
	Operation           AuditOperation
	Reason              string
	PerformedBy         string
	Timestamp           time.Time
	PolicySyncSucceeded bool
	NotificationSent    bool
	Steps               []StepOutcome
}
