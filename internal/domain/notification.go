package domain

import "time"

type NotificationKind string

const (
	NotificationUsageWarning   NotificationKind = "usage_warning"
	NotificationBlocked        NotificationKind = "blocked"
	NotificationUnblocked      NotificationKind = "unblocked"
	NotificationAdminBlocked   NotificationKind = "admin_blocked"
	NotificationAdminUnblocked NotificationKind = "admin_unblocked"
)

type Notification struct {
	ID        string
	Kind      NotificationKind
	AccountID AccountID
	Recipient string
	Context   map[string]string
	CreatedAt time.Time
}
