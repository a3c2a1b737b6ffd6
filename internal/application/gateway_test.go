package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/quotaguard/internal/domain"
)

func TestHandleCommandBlockAndStatus(t *testing.T) {
	e := newEngine(t, testLimits)
	e.addUsage(t, "acct-1", 2, testStart.Add(-time.Hour))

	resp, code := e.gateway.HandleCommand(context.Background(), RawCommand{
		Action:      "block",
		AccountID:   "acct-1",
		Reason:      "abuse",
		PerformedBy: "ops",
		Duration:    "30days",
	})
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, ResponseSuccess, resp.Status)
	assert.True(t, resp.IsBlocked)
	assert.Equal(t, domain.BlockTypeManual, resp.BlockType)
	assert.Equal(t, "ops", resp.PerformedBy)
	require.NotNil(t, resp.ExpiresAt)
	assert.True(t, resp.ExpiresAt.Equal(testStart.AddDate(0, 0, 30)))
	assert.Equal(t, "block applied", resp.Message)

	resp, code = e.gateway.HandleCommand(context.Background(), RawCommand{Action: "check_status", AccountID: "acct-1"})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.IsBlocked)
	assert.Equal(t, "abuse", resp.Message)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, int64(2), resp.Usage.RequestsToday)
	assert.Equal(t, 10, resp.Usage.DailyLimit)

	resp, code = e.gateway.HandleCommand(context.Background(), RawCommand{Action: "block", AccountID: "acct-1"})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.AlreadyBlocked)
	assert.Equal(t, "account already blocked", resp.Message)
}

func TestHandleCommandUnblock(t *testing.T) {
	e := newEngine(t, testLimits)
	_, err := e.machine.AutoBlock(context.Background(), "acct-1", domain.ReasonDailyLimitExceeded, domain.UsageSnapshot{})
	require.NoError(t, err)

	resp, code := e.gateway.HandleCommand(context.Background(), RawCommand{Action: "UNBLOCK", AccountID: " acct-1 "})
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.False(t, resp.IsBlocked)
	assert.Equal(t, domain.BlockTypeNone, resp.BlockType)
	assert.Equal(t, "admin", resp.PerformedBy)
	assert.Equal(t, "acct-1", resp.AccountID)

	resp, code = e.gateway.HandleCommand(context.Background(), RawCommand{Action: "unblock", AccountID: "acct-2"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "account already active; protection applied", resp.Message)
}

func TestHandleCommandValidation(t *testing.T) {
	e := newEngine(t, testLimits)

	tests := []struct {
		name string
		raw  RawCommand
		want string
	}{
		{name: "unknown action", raw: RawCommand{Action: "delete", AccountID: "acct-1"}, want: "action must be one of"},
		{name: "missing account", raw: RawCommand{Action: "block"}, want: "account_id is required"},
		{name: "unknown duration", raw: RawCommand{Action: "block", AccountID: "acct-1", Duration: "2days"}, want: "duration must be one of"},
		{name: "custom without expiry", raw: RawCommand{Action: "block", AccountID: "acct-1", Duration: "custom"}, want: "custom duration requires expires_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, code := e.gateway.HandleCommand(context.Background(), tt.raw)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, ResponseFailure, resp.Status)
			assert.Contains(t, resp.Message, tt.want)
		})
	}
}

func TestHandleCommandPastCustomExpiryIsBadRequest(t *testing.T) {
	e := newEngine(t, testLimits)
	past := testStart.Add(-time.Hour)

	resp, code := e.gateway.HandleCommand(context.Background(), RawCommand{Action: "block", AccountID: "acct-1", ExpiresAt: &past})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Message, "not in the future")
}

func TestHandleCommandPolicyFailureIsServerError(t *testing.T) {
	e := newEngine(t, testLimits)
	e.policy.addErr = errors.New("iam throttled")

	resp, code := e.gateway.HandleCommand(context.Background(), RawCommand{Action: "block", AccountID: "acct-1"})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, ResponseFailure, resp.Status)
	assert.Contains(t, resp.Message, "iam throttled")
	assert.NotEmpty(t, resp.Steps)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusCode(nil))
	assert.Equal(t, http.StatusBadRequest, StatusCode(fmt.Errorf("wrap: %w", domain.ErrInvalidTransitionRequest)))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(domain.ErrStoreWriteFailed))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(domain.ErrLockNotAcquired))
}

func TestHandleUsageEventBlocksAtLimit(t *testing.T) {
	e := newEngine(t, domain.Limits{Daily: 3, Monthly: 100})

	for i := range 2 {
		outcome, err := e.gateway.HandleUsageEvent(context.Background(), UsageEvent{AccountID: "acct-1"})
		require.NoError(t, err)
		assert.False(t, outcome.ShouldBlock, "event %d", i)
		assert.Nil(t, outcome.Block)
	}

	outcome, err := e.gateway.HandleUsageEvent(context.Background(), UsageEvent{AccountID: "acct-1", Timestamp: testStart})
	require.NoError(t, err)
	assert.True(t, outcome.ShouldBlock)
	assert.Equal(t, domain.ReasonDailyLimitExceeded, outcome.Reason)
	assert.Equal(t, int64(3), outcome.Snapshot.RequestsToday)
	require.NotNil(t, outcome.Block)
	assert.Equal(t, OutcomeApplied, outcome.Block.Outcome)
	assert.Equal(t, int64(3), e.record(t, "acct-1").RequestsAtBlocking.RequestsToday)

	// Blocked accounts are not evaluated again.
	outcome, err = e.gateway.HandleUsageEvent(context.Background(), UsageEvent{AccountID: "acct-1"})
	require.NoError(t, err)
	assert.False(t, outcome.ShouldBlock)
	assert.Nil(t, outcome.Block)
	assert.Equal(t, 1, e.policy.adds)
}

func TestHandleUsageEventExpiresDueBlockFirst(t *testing.T) {
	e := newEngine(t, domain.Limits{Daily: 3, Monthly: 100})
	_, err := e.machine.AutoBlock(context.Background(), "acct-1", domain.ReasonDailyLimitExceeded, domain.UsageSnapshot{})
	require.NoError(t, err)

	e.clock.Set(time.Date(2026, 3, 2, 0, 0, 30, 0, time.UTC))
	outcome, err := e.gateway.HandleUsageEvent(context.Background(), UsageEvent{AccountID: "acct-1"})
	require.NoError(t, err)
	require.NotNil(t, outcome.Expired)
	assert.Equal(t, OutcomeApplied, outcome.Expired.Outcome)
	assert.False(t, outcome.ShouldBlock)
	assert.Equal(t, int64(1), outcome.Snapshot.RequestsToday)
	assert.False(t, e.record(t, "acct-1").IsBlocked())
	assert.Equal(t, []domain.NotificationKind{domain.NotificationBlocked, domain.NotificationUnblocked}, e.sink.kinds())
}

func TestHandleUsageEventRejectsMissingAccount(t *testing.T) {
	e := newEngine(t, testLimits)

	_, err := e.gateway.HandleUsageEvent(context.Background(), UsageEvent{AccountID: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidTransitionRequest)
	assert.ErrorContains(t, err, "account_id is required")
}

func TestDescribeFailure(t *testing.T) {
	e := newEngine(t, testLimits)
	result := TransitionResult{AccountID: "acct-1", Operation: domain.OperationBlock, Outcome: OutcomeFailed}

	resp := e.gateway.Describe(result, domain.ErrStoreWriteFailed)
	assert.Equal(t, ResponseFailure, resp.Status)
	assert.Equal(t, "acct-1", resp.AccountID)
	assert.Equal(t, domain.ErrStoreWriteFailed.Error(), resp.Message)
}
