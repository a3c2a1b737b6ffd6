package domain

import "fmt"

// UsageSnapshot is derived from the usage store for a single evaluation.
type UsageSnapshot struct {
	RequestsToday     int64
	RequestsThisMonth int64
}

const DefaultWarningRatio = 0.8

// WarningThreshold returns floor(limit * ratio).
func WarningThreshold(limit int, ratio float64) int64 {
	if ratio <= 0 || ratio >= 1 {
		ratio = DefaultWarningRatio
	}
	return int64(float64(limit) * ratio)
}

// ReachedWarning reports whether today's count is at or past the warning
// threshold while still below the limit. Counts may jump past the threshold
// between evaluations; the once-per-day rule lives on Account.WarnedOn.
func (u UsageSnapshot) ReachedWarning(limit int, ratio float64) bool {
	threshold := WarningThreshold(limit, ratio)
	if threshold <= 0 {
		return false
	}
	return u.RequestsToday >= threshold && u.RequestsToday < int64(limit)
}

func (u UsageSnapshot) TodayCompact() string {
	return compactNumber(u.RequestsToday)
}

func (u UsageSnapshot) MonthCompact() string {
	return compactNumber(u.RequestsThisMonth)
}

func compactNumber(v int64) string {
	if v < 1_000 {
		return fmt.Sprintf("%d", v)
	}

	if v < 1_000_000 {
		return fmt.Sprintf("%.1fk", float64(v)/1_000)
	}

	return fmt.Sprintf("%.1fM", float64(v)/1_000_000)
}
