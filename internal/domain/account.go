package domain

import (
	"strings"
	"time"
)

type AccountID string

const (
	DefaultDailyLimit   = 350
	DefaultMonthlyLimit = 5000
)

// Account holds the limit and protection configuration for one quota-controlled
// principal.
type Account struct {
	ID                       AccountID
	DailyLimit               int
	MonthlyLimit             int
	AdministrativeProtection bool
	Email                    string
	// WarnedOn is the DayKey of the last usage warning sent.
	WarnedOn  string
	UpdatedAt time.Time
}

// Limits are the operational defaults applied when an account has no stored
// configuration.
type Limits struct {
	Daily   int
	Monthly int
}

func DefaultLimits() Limits {
	return Limits{Daily: DefaultDailyLimit, Monthly: DefaultMonthlyLimit}
}

// DefaultAccount returns the value used for an account that was never
// configured. It is never persisted by a read.
func DefaultAccount(id AccountID, limits Limits) Account {
	if limits.Daily <= 0 {
		limits.Daily = DefaultDailyLimit
	}
	if limits.Monthly <= 0 {
		limits.Monthly = DefaultMonthlyLimit
	}

	return Account{
		ID:           id,
		DailyLimit:   limits.Daily,
		MonthlyLimit: limits.Monthly,
	}
}

// WarnedToday reports whether the usage warning already went out for the
// local day containing now.
func (a Account) WarnedToday(now time.Time, loc *time.Location) bool {
	return a.WarnedOn != "" && a.WarnedOn == DayKey(now, loc)
}

// Normalize fills non-positive limits from defaults.
func (a Account) Normalize(limits Limits) Account {
	defaults := DefaultAccount(a.ID, limits)
	if a.DailyLimit <= 0 {
		a.DailyLimit = defaults.DailyLimit
	}
	if a.MonthlyLimit <= 0 {
		a.MonthlyLimit = defaults.MonthlyLimit
	}
	return a
}

func (id AccountID) Validate() error {
	if strings.TrimSpace(string(id)) == "" {
		return ErrEmptyAccountID
	}
	return nil
}
