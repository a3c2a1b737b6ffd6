package domain

import "time"

type Window string

const (
	WindowDay   Window = "day"
	WindowMonth Window = "month"
)

func (w Window) Label() string {
	switch w {
	case WindowDay:
		return "daily"
	case WindowMonth:
		return "monthly"
	default:
		return string(w)
	}
}

// Bounds returns the [start, end) interval of the window containing t in loc.
func (w Window) Bounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	y, m, d := local.Date()

	switch w {
	case WindowMonth:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return start, time.Date(y, m+1, 1, 0, 0, 0, 0, loc)
	default:
		start := time.Date(y, m, d, 0, 0, 0, 0, loc)
		return start, NextResetBoundary(t, loc)
	}
}

// NextResetBoundary returns the first local midnight strictly after t.
func NextResetBoundary(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// DayKey names the local day containing t, as YYYY-MM-DD.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(time.DateOnly)
}

// IsResetBoundary reports whether t falls exactly on a local midnight.
func IsResetBoundary(t time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return local.Hour() == 0 && local.Minute() == 0 && local.Second() == 0 && local.Nanosecond() == 0
}
