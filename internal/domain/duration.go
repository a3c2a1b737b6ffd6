package domain

import (
	"fmt"
	"strings"
	"time"
)

type BlockDuration string

const (
	Duration1Day       BlockDuration = "1day"
	Duration30Days     BlockDuration = "30days"
	Duration90Days     BlockDuration = "90days"
	DurationIndefinite BlockDuration = "indefinite"
	DurationCustom     BlockDuration = "custom"
)

func ParseBlockDuration(raw string) (BlockDuration, error) {
	switch d := BlockDuration(strings.ToLower(strings.TrimSpace(raw))); d {
	case "":
		return Duration1Day, nil
	case Duration1Day, Duration30Days, Duration90Days, DurationIndefinite, DurationCustom:
		return d, nil
	default:
		return "", fmt.Errorf("%w: unknown duration %q", ErrInvalidTransitionRequest, raw)
	}
}

// ExpiresAt resolves the expiry for a manual block starting at now. A nil
// result means indefinite.
func (d BlockDuration) ExpiresAt(now time.Time, custom *time.Time) (*time.Time, error) {
	var expires time.Time
	switch d {
	case Duration1Day, "":
		expires = now.AddDate(0, 0, 1)
	case Duration30Days:
		expires = now.AddDate(0, 0, 30)
	case Duration90Days:
		expires = now.AddDate(0, 0, 90)
	case DurationIndefinite:
		return nil, nil
	case DurationCustom:
		if custom == nil || custom.IsZero() {
			return nil, fmt.Errorf("%w: custom duration requires expires_at", ErrInvalidTransitionRequest)
		}
		if !custom.After(now) {
			return nil, fmt.Errorf("%w: expires_at %s is not in the future", ErrInvalidTransitionRequest, custom.Format(time.RFC3339))
		}
		expires = *custom
	default:
		return nil, fmt.Errorf("%w: unknown duration %q", ErrInvalidTransitionRequest, d)
	}

	return &expires, nil
}
