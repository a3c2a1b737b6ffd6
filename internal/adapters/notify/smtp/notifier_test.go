package smtp

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/bnema/quotaguard/internal/config"
	"github.com/bnema/quotaguard/internal/domain"
)

func TestNewNotifierRequiresHostAndFrom(t *testing.T) {
	t.Parallel()

	_, err := NewNotifier(config.SMTPConfig{Host: "smtp.example.com"})
	require.Error(t, err)

	n, err := NewNotifier(config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "quota@example.com"})
	require.NoError(t, err)
	assert.NotNil(t, n)
}

func TestNotifierComposesMessage(t *testing.T) {
	t.Parallel()

	var sent *mail.Msg
	n := &Notifier{from: "quota@example.com", send: func(_ context.Context, msg *mail.Msg) error {
		sent = msg
		return nil
	}}

	err := n.Send(context.Background(), domain.Notification{
		Kind:      domain.NotificationBlocked,
		AccountID: "acct-1",
		Recipient: "owner@example.com",
		Context:   map[string]string{"reason": "Daily limit exceeded", "expires_at": "2026-03-02T00:00:00Z"},
	})
	require.NoError(t, err)
	require.NotNil(t, sent)

	var buf bytes.Buffer
	_, err = sent.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "owner@example.com")
	assert.Contains(t, raw, "Account acct-1 blocked: usage limit reached")
	assert.Contains(t, raw, "reason: Daily limit exceeded")
	assert.Contains(t, raw, "expires at: 2026-03-02T00:00:00Z")
}

func TestNotifierRequiresRecipient(t *testing.T) {
	t.Parallel()

	n := &Notifier{from: "quota@example.com", send: func(context.Context, *mail.Msg) error {
		t.Fatal("send must not be called")
		return nil
	}}

	err := n.Send(context.Background(), domain.Notification{Kind: domain.NotificationUnblocked, AccountID: "acct-1"})
	assert.ErrorIs(t, err, domain.ErrNotificationFailed)
}

func TestNotifierWrapsSendError(t *testing.T) {
	t.Parallel()

	n := &Notifier{from: "quota@example.com", send: func(context.Context, *mail.Msg) error {
		return errors.New("connection refused")
	}}

	err := n.Send(context.Background(), domain.Notification{Kind: domain.NotificationUsageWarning, AccountID: "acct-1", Recipient: "owner@example.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotificationFailed)
	assert.ErrorContains(t, err, "connection refused")
}

func TestSubjectPerKind(t *testing.T) {
	t.Parallel()

	cases := map[domain.NotificationKind]string{
		domain.NotificationUsageWarning:   "Usage warning for account a",
		domain.NotificationBlocked:        "Account a blocked: usage limit reached",
		domain.NotificationUnblocked:      "Account a unblocked",
		domain.NotificationAdminBlocked:   "Account a blocked by an administrator",
		domain.NotificationAdminUnblocked: "Account a unblocked by an administrator",
	}
	for kind, want := range cases {
		assert.Equal(t, want, subject(domain.Notification{Kind: kind, AccountID: "a"}))
	}
}
