package application

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/quotaguard/internal/domain"
)

func TestParseCommand(t *testing.T) {
	expires := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  RawCommand
		want Command
	}{
		{
			name: "block defaults",
			raw:  RawCommand{Action: "block", AccountID: "acct-1"},
			want: BlockRequest{AccountID: "acct-1", Reason: "Manual block", PerformedBy: "admin", Duration: domain.Duration1Day},
		},
		{
			name: "block drops expiry for fixed durations",
			raw:  RawCommand{Action: "Block", AccountID: "acct-1", Duration: "90DAYS", ExpiresAt: &expires, Reason: " fraud ", PerformedBy: "ops"},
			want: BlockRequest{AccountID: "acct-1", Reason: "fraud", PerformedBy: "ops", Duration: domain.Duration90Days},
		},
		{
			name: "expiry implies custom",
			raw:  RawCommand{Action: "block", AccountID: "acct-1", ExpiresAt: &expires},
			want: BlockRequest{AccountID: "acct-1", Reason: "Manual block", PerformedBy: "admin", Duration: domain.DurationCustom, ExpiresAt: &expires},
		},
		{
			name: "unblock defaults",
			raw:  RawCommand{Action: "unblock", AccountID: "acct-1"},
			want: UnblockRequest{AccountID: "acct-1", Reason: "Manual unblock", PerformedBy: "admin"},
		},
		{
			name: "status",
			raw:  RawCommand{Action: " check_status ", AccountID: "acct-1"},
			want: StatusRequest{AccountID: "acct-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, domain.AccountID("acct-1"), got.Account())
		})
	}
}

func TestParseCommandErrors(t *testing.T) {
	long := make([]byte, 257)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name string
		raw  RawCommand
		want string
	}{
		{name: "empty", raw: RawCommand{}, want: "action is required; account_id is required"},
		{name: "blank account", raw: RawCommand{Action: "block", AccountID: "   "}, want: "account_id is required"},
		{name: "long account", raw: RawCommand{Action: "block", AccountID: string(long)}, want: "account_id exceeds 256 characters"},
		{name: "bad action", raw: RawCommand{Action: "purge", AccountID: "acct-1"}, want: "action must be one of [block unblock check_status]"},
		{name: "custom without expiry", raw: RawCommand{Action: "block", AccountID: "acct-1", Duration: "custom"}, want: "custom duration requires expires_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCommand(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidTransitionRequest))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
