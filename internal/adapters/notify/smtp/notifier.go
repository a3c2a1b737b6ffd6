// Package smtp sends notifications as plain-text email.
package smtp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/bnema/quotaguard/internal/config"
	"github.com/bnema/quotaguard/internal/domain"
	"github.com/bnema/quotaguard/internal/ports"
)

type sendFunc func(ctx context.Context, msg *mail.Msg) error

type Notifier struct {
	from string
	send sendFunc
}

var _ ports.Notifier = (*Notifier)(nil)

func NewNotifier(cfg config.SMTPConfig) (*Notifier, error) {
	if !cfg.Enabled() {
		return nil, errors.New("smtp host and from address are required")
	}

	opts := []mail.Option{mail.WithTLSPortPolicy(mail.TLSOpportunistic)}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	send := func(ctx context.Context, msg *mail.Msg) error {
		return client.DialAndSendWithContext(ctx, msg)
	}
	return &Notifier{from: cfg.From, send: send}, nil
}

func (n *Notifier) Send(ctx context.Context, notification domain.Notification) error {
	if strings.TrimSpace(notification.Recipient) == "" {
		return fmt.Errorf("%w: account %q has no email recipient", domain.ErrNotificationFailed, notification.AccountID)
	}

	msg, err := n.message(notification)
	if err != nil {
		return err
	}

	if err := n.send(ctx, msg); err != nil {
		return fmt.Errorf("%w: smtp send: %w", domain.ErrNotificationFailed, err)
	}
	return nil
}

func (n *Notifier) message(notification domain.Notification) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return nil, fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(notification.Recipient); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject(notification))
	msg.SetBodyString(mail.TypeTextPlain, body(notification))
	return msg, nil
}

func subject(n domain.Notification) string {
	switch n.Kind {
	case domain.NotificationUsageWarning:
		return fmt.Sprintf("Usage warning for account %s", n.AccountID)
	case domain.NotificationBlocked:
		return fmt.Sprintf("Account %s blocked: usage limit reached", n.AccountID)
	case domain.NotificationUnblocked:
		return fmt.Sprintf("Account %s unblocked", n.AccountID)
	case domain.NotificationAdminBlocked:
		return fmt.Sprintf("Account %s blocked by an administrator", n.AccountID)
	case domain.NotificationAdminUnblocked:
		return fmt.Sprintf("Account %s unblocked by an administrator", n.AccountID)
	default:
		return fmt.Sprintf("Notice for account %s", n.AccountID)
	}
}

func body(n domain.Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", subject(n))

	keys := make([]string, 0, len(n.Context))
	for k := range n.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", strings.ReplaceAll(k, "_", " "), n.Context[k])
	}
	return b.String()
}
