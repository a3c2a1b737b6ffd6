package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Accounts []accountSchema `toml:"accounts"`
	Blocks   []blockSchema   `toml:"blocks"`
	Audit    []auditSchema   `toml:"audit"`
	Usage    []usageSchema   `toml:"usage"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported state schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type accountSchema struct {
	ID                       string `toml:"id"`
	DailyLimit               int    `toml:"daily_limit"`
	MonthlyLimit             int    `toml:"monthly_limit"`
	AdministrativeProtection bool   `toml:"administrative_protection"`
	Email                    string `toml:"email,omitempty"`
	WarnedOn                 string `toml:"warned_on,omitempty"`
	UpdatedAt                string `toml:"updated_at,omitempty"`
}

type blockSchema struct {
	AccountID         string `toml:"account_id"`
	Status            string `toml:"status"`
	Type              string `toml:"block_type,omitempty"`
	Reason            string `toml:"reason,omitempty"`
	BlockedAt         string `toml:"blocked_at,omitempty"`
	ExpiresAt         string `toml:"expires_at,omitempty"`
	PerformedBy       string `toml:"performed_by,omitempty"`
	RequestsToday     int64  `toml:"requests_today_at_blocking,omitempty"`
	RequestsThisMonth int64  `toml:"requests_month_at_blocking,omitempty"`
	PolicyPending     bool   `toml:"policy_pending,omitempty"`
	UpdatedAt         string `toml:"updated_at,omitempty"`
}

type auditSchema struct {
	ID                  string       `toml:"id"`
	AccountID           string       `toml:"account_id"`
	Operation           string       `toml:"operation"`
	Reason              string       `toml:"reason,omitempty"`
	PerformedBy         string       `toml:"performed_by"`
	Timestamp           string       `toml:"timestamp"`
	PolicySyncSucceeded bool         `toml:"policy_sync_succeeded"`
	NotificationSent    bool         `toml:"notification_sent"`
	Steps               []stepSchema `toml:"steps,omitempty"`
}

type stepSchema struct {
	Step  string `toml:"step"`
	OK    bool   `toml:"ok"`
	Error string `toml:"error,omitempty"`
}

// usageSchema is a per-minute request counter in UTC.
type usageSchema struct {
	AccountID string `toml:"account_id"`
	Minute    string `toml:"minute"`
	Requests  int64  `toml:"requests"`
}
