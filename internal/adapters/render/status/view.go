package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/quotaguard/internal/application"
	"github.com/bnema/quotaguard/internal/domain"
)

type RenderOptions struct {
	Now      time.Time
	Location *time.Location
	// WarningRatio marks the share of the daily limit drawn in the warning color.
	WarningRatio float64
	BarWidth     int
	// Plain drops all colors, for logs and pipes.
	Plain bool
}

func (o RenderOptions) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

func renderView(statuses []application.AccountStatus, t tally, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Usage Quota Status"),
		s.header.Render(fmt.Sprintf("accounts: %d  blocked: %d  near limit: %d  protected: %d", t.total, t.blocked, t.nearLimit, t.protected)),
	}

	if len(statuses) == 0 {
		lines = append(lines, s.empty.Render("No account statuses available."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, status := range statuses {
		lines = append(lines, s.section.Render(renderAccount(status, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderAccount(status application.AccountStatus, opts RenderOptions, s styles) string {
	parts := []string{
		s.account.Render(accountTitle(status.Account)),
		stateLine(status, opts, s),
	}

	if status.IsBlocked() {
		parts = append(parts, s.detail.Render(fmt.Sprintf("reason: %s (by %s)", status.Record.Reason, status.Record.PerformedBy)))
	}
	if status.Record.PolicyPending {
		parts = append(parts, s.protected.Render("deny removal pending"))
	}

	parts = append(parts, limitLines(status, opts, s)...)

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func accountTitle(account domain.Account) string {
	email := strings.TrimSpace(account.Email)
	if email == "" {
		return string(account.ID)
	}
	return fmt.Sprintf("%s <%s>", account.ID, email)
}

func stateLine(status application.AccountStatus, opts RenderOptions, s styles) string {
	var state string
	if status.IsBlocked() {
		state = s.blocked.Render(fmt.Sprintf("BLOCKED (%s)", status.BlockType)) + " " + s.limitMeta.Render(expiryLabel(status.Record.ExpiresAt, opts))
	} else {
		state = s.active.Render("ACTIVE")
	}

	line := s.limitKey.Render("state:") + " " + state
	if status.Account.AdministrativeProtection {
		line += " " + s.protected.Render("[protected]")
	}
	return line
}

func expiryLabel(expiresAt *time.Time, opts RenderOptions) string {
	if expiresAt == nil {
		return "(indefinite)"
	}
	return fmt.Sprintf("(%s)", formatRelative("expires", expiresAt.In(opts.location()), opts.Now))
}

func limitLines(status application.AccountStatus, opts RenderOptions, s styles) []string {
	if status.Usage == nil {
		return []string{s.detail.Render("usage: n/a")}
	}

	now := opts.Now
	if now.IsZero() {
		now = status.AsOf
	}
	loc := opts.location()
	_, dayEnd := domain.WindowDay.Bounds(now, loc)
	_, monthEnd := domain.WindowMonth.Bounds(now, loc)

	return []string{
		limitLine(domain.WindowDay, status.Usage.RequestsToday, status.Account.DailyLimit, status.Usage.TodayCompact(), dayEnd, now, opts, s),
		limitLine(domain.WindowMonth, status.Usage.RequestsThisMonth, status.Account.MonthlyLimit, status.Usage.MonthCompact(), monthEnd, now, opts, s),
	}
}

func limitLine(window domain.Window, used int64, limit int, compact string, resetsAt, now time.Time, opts RenderOptions, s styles) string {
	percent := 0.0
	if limit > 0 {
		percent = float64(used) * 100 / float64(limit)
	}

	bar := renderProgressBar(percent, opts.WarningRatio*100, opts.BarWidth, s)
	label := s.limitKey.Render(fmt.Sprintf("%s limit:", window.Label()))
	meta := s.limitMeta.Render(fmt.Sprintf("%s/%d (%3.0f%%)", compact, limit, clampPercent(percent)))

	resetStyle := lipgloss.NewStyle()
	if !opts.Plain {
		resetStyle = resetStyle.Foreground(resetTimeColor(resetsAt, now, window))
	}
	reset := resetStyle.Render(fmt.Sprintf("(%s)", formatRelative("resets", resetsAt, now)))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		label,
		" ",
		bar,
		" ",
		meta,
		" ",
		reset,
	)
}

// renderProgressBar fills with consumed quota. The fill turns to the warning
// color at warnPercent and to the over-limit color when full.
func renderProgressBar(usedPercent, warnPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	used := clampPercent(usedPercent)
	filled := int(math.Round(float64(width) * used / 100.0))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	fill := s.barFill
	switch {
	case used >= 100:
		fill = s.barOver
	case warnPercent > 0 && used >= warnPercent:
		fill = s.barWarn
	}
	fillSegment := fill.Render(strings.Repeat("=", filled))
	emptySegment := s.barEmpty.Render(strings.Repeat("-", width-filled))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		fillSegment,
		emptySegment,
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatAt(at, now time.Time) string {
	if at.IsZero() {
		return "unknown"
	}
	if now.IsZero() {
		return at.Format(time.RFC3339)
	}

	yearA, monthA, dayA := now.In(at.Location()).Date()
	yearB, monthB, dayB := at.Date()
	if yearA == yearB && monthA == monthB && dayA == dayB {
		return at.Format("15:04")
	}

	return at.Format("15:04 on 02 Jan")
}

func formatRelative(verb string, at, now time.Time) string {
	if now.IsZero() {
		return verb + " " + formatAt(at, now)
	}

	if !at.After(now) {
		return verb + " now"
	}

	remaining := at.Sub(now)
	if remaining < 24*time.Hour {
		hours := int(math.Ceil(remaining.Hours()))
		if hours < 1 {
			hours = 1
		}
		suffix := "hours"
		if hours == 1 {
			suffix = "hour"
		}
		return fmt.Sprintf("%s in %d %s (%s)", verb, hours, suffix, at.Format("15:04"))
	}

	days := int(math.Ceil(remaining.Hours() / 24))
	suffix := "days"
	if days == 1 {
		suffix = "day"
	}

	return fmt.Sprintf("%s in %d %s (%s)", verb, days, suffix, at.Format("15:04 on 02 Jan"))
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale ramp from 240 (faded) to 255 (bright).
	baseColor := 240.0
	targetColor := 255.0
	colorCode := int(baseColor + (targetColor-baseColor)*normalized)

	return lipgloss.Color(fmt.Sprintf("%d", colorCode))
}

// resetTimeColor brightens as the reset approaches: over a day for the daily
// window and over a month for the monthly one.
func resetTimeColor(resetsAt, now time.Time, window domain.Window) lipgloss.Color {
	if now.IsZero() || resetsAt.Before(now) {
		return lipgloss.Color("255")
	}

	maxDuration := 24 * time.Hour
	if window == domain.WindowMonth {
		maxDuration = 31 * 24 * time.Hour
	}

	inverted := maxDuration.Seconds() - resetsAt.Sub(now).Seconds()
	return interpolateColor(inverted, 0, maxDuration.Seconds())
}
