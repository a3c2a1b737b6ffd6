package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/quotaguard/internal/domain"
	"github.com/bnema/quotaguard/internal/ports/mocks"
)

func TestDispatcherDeliversQueuedNotifications(t *testing.T) {
	notifier := mocks.NewMockNotifier(t)
	delivered := make(chan string, 2)
	notifier.EXPECT().Send(mockAnyContext(), mock.AnythingOfType("domain.Notification")).
		RunAndReturn(func(_ context.Context, n domain.Notification) error {
			delivered <- n.ID
			return nil
		}).Twice()

	d := NewDispatcher(notifier, DispatcherOptions{Workers: 1})
	assert.True(t, d.Enqueue(domain.Notification{ID: "n-1", Kind: domain.NotificationBlocked, AccountID: "acct-1"}))
	assert.True(t, d.Enqueue(domain.Notification{ID: "n-2", Kind: domain.NotificationUnblocked, AccountID: "acct-1"}))

	require.NoError(t, d.Close(context.Background()))
	close(delivered)

	var ids []string
	for id := range delivered {
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"n-1", "n-2"}, ids)
}

func TestDispatcherDeliveryFailureIsSwallowed(t *testing.T) {
	notifier := mocks.NewMockNotifier(t)
	notifier.EXPECT().Send(mockAnyContext(), mock.AnythingOfType("domain.Notification")).Return(errors.New("smtp down")).Once()

	d := NewDispatcher(notifier, DispatcherOptions{Workers: 1})
	assert.True(t, d.Enqueue(domain.Notification{ID: "n-1", Kind: domain.NotificationBlocked}))
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcherRejectsWhenFull(t *testing.T) {
	notifier := mocks.NewMockNotifier(t)
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	notifier.EXPECT().Send(mockAnyContext(), mock.AnythingOfType("domain.Notification")).
		RunAndReturn(func(context.Context, domain.Notification) error {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
			return nil
		}).Twice()

	d := NewDispatcher(notifier, DispatcherOptions{Workers: 1, QueueSize: 1, Timeout: time.Second})
	require.True(t, d.Enqueue(domain.Notification{ID: "busy"}))
	<-started
	require.True(t, d.Enqueue(domain.Notification{ID: "queued"}))
	assert.False(t, d.Enqueue(domain.Notification{ID: "dropped"}))

	close(release)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(mocks.NewMockNotifier(t), DispatcherOptions{})
	require.NoError(t, d.Close(context.Background()))
	require.NoError(t, d.Close(context.Background()))

	assert.False(t, d.Enqueue(domain.Notification{ID: "late"}))
}

func TestDispatcherCloseHonoursContext(t *testing.T) {
	notifier := mocks.NewMockNotifier(t)
	release := make(chan struct{})
	started := make(chan struct{})
	notifier.EXPECT().Send(mockAnyContext(), mock.AnythingOfType("domain.Notification")).
		RunAndReturn(func(context.Context, domain.Notification) error {
			close(started)
			<-release
			return nil
		}).Once()

	d := NewDispatcher(notifier, DispatcherOptions{Workers: 1})
	require.True(t, d.Enqueue(domain.Notification{ID: "slow"}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, d.Close(context.Background()))
}
