// Package http delivers notifications to the external notification service.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/quotaguard/internal/domain"
	"github.com/bnema/quotaguard/internal/ports"
)

const (
	defaultTimeout   = 5 * time.Second
	maxErrorBodySize = 4 << 10
)

type Notifier struct {
	URL            string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

var _ ports.Notifier = (*Notifier)(nil)

type payload struct {
	ID           string            `json:"id"`
	TemplateKind string            `json:"template_kind"`
	AccountID    string            `json:"account_id"`
	Recipient    string            `json:"recipient,omitempty"`
	Context      map[string]string `json:"context"`
	CreatedAt    time.Time         `json:"created_at"`
}

func NewNotifier(url string, timeout time.Duration) *Notifier {
	return &Notifier{URL: url, RequestTimeout: timeout}
}

func (n *Notifier) Send(ctx context.Context, notification domain.Notification) error {
	if strings.TrimSpace(n.URL) == "" {
		return errors.New("notification service url is empty")
	}

	ctxMap := notification.Context
	if ctxMap == nil {
		ctxMap = map[string]string{}
	}
	body, err := json.Marshal(payload{
		ID:           notification.ID,
		TemplateKind: string(notification.Kind),
		AccountID:    string(notification.AccountID),
		Recipient:    notification.Recipient,
		Context:      ctxMap,
		CreatedAt:    notification.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	requestCtx, cancel := n.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if notification.ID != "" {
		req.Header.Set("Idempotency-Key", notification.ID)
	}

	resp, err := n.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("%w: notification service returned %d: %s",
			domain.ErrNotificationFailed, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))

	return nil
}

func (n *Notifier) httpClient() *http.Client {
	if n.HTTPClient != nil {
		return n.HTTPClient
	}
	return http.DefaultClient
}

func (n *Notifier) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := n.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
