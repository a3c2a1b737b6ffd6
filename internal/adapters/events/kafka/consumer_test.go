package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/quotaguard/internal/application"
	"github.com/bnema/quotaguard/internal/config"
)

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []int64
	fetchErr  error
	commitErr error
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return msg, nil
	}
	fetchErr := r.fetchErr
	r.mu.Unlock()

	if fetchErr != nil {
		return kafka.Message{}, fetchErr
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commitErr != nil {
		return r.commitErr
	}
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type recordingHandler struct {
	mu     sync.Mutex
	events []application.UsageEvent
	err    error
	seen   chan struct{}
}

func (h *recordingHandler) HandleUsageEvent(_ context.Context, event application.UsageEvent) (application.UsageOutcome, error) {
	h.mu.Lock()
	h.events = append(h.events, event)
	h.mu.Unlock()
	if h.seen != nil {
		h.seen <- struct{}{}
	}
	return application.UsageOutcome{}, h.err
}

func TestNewConsumerValidatesConfig(t *testing.T) {
	_, err := NewConsumer(config.KafkaConfig{}, nil, nil)
	assert.ErrorContains(t, err, "broker")

	_, err = NewConsumer(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, nil, nil)
	assert.ErrorContains(t, err, "group id")

	_, err = NewConsumer(config.KafkaConfig{Brokers: []string{"localhost:9092"}, GroupID: "qg"}, nil, nil)
	assert.ErrorContains(t, err, "topic")
}

func TestRunHandlesAndCommitsEveryMessage(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reader := &fakeReader{messages: []kafka.Message{
		{Offset: 1, Value: []byte(`{"account_id":"acct-1","timestamp":"2026-03-01T11:00:00Z"}`)},
		{Offset: 2, Value: []byte(`not json`)},
		{Offset: 3, Key: []byte("acct-2"), Value: []byte(`{}`), Time: at},
	}}
	handler := &recordingHandler{seen: make(chan struct{}, 3)}
	consumer := newConsumer(reader, handler, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	<-handler.seen
	<-handler.seen
	require.Eventually(t, func() bool {
		reader.mu.Lock()
		defer reader.mu.Unlock()
		return len(reader.committed) == 3
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	require.Len(t, handler.events, 2)
	assert.Equal(t, "acct-1", handler.events[0].AccountID)
	assert.Equal(t, "acct-2", handler.events[1].AccountID)
	assert.True(t, at.Equal(handler.events[1].Timestamp))
	assert.Equal(t, []int64{1, 2, 3}, reader.committed)
}

func TestRunCommitsFailedEvaluations(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{{Offset: 7, Value: []byte(`{"account_id":"acct-1"}`)}}}
	handler := &recordingHandler{err: errors.New("store down"), seen: make(chan struct{}, 1)}
	consumer := newConsumer(reader, handler, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	<-handler.seen
	require.Eventually(t, func() bool {
		reader.mu.Lock()
		defer reader.mu.Unlock()
		return len(reader.committed) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestRunReturnsFetchError(t *testing.T) {
	reader := &fakeReader{fetchErr: errors.New("broker unreachable")}
	consumer := newConsumer(reader, &recordingHandler{}, nil)

	err := consumer.Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "broker unreachable")
}

func TestRunReturnsCommitError(t *testing.T) {
	reader := &fakeReader{
		messages:  []kafka.Message{{Offset: 1, Value: []byte(`{"account_id":"acct-1"}`)}},
		commitErr: errors.New("rebalance"),
	}
	consumer := newConsumer(reader, &recordingHandler{}, nil)

	err := consumer.Run(context.Background())
	assert.ErrorContains(t, err, "rebalance")
}

func TestClose(t *testing.T) {
	reader := &fakeReader{}
	require.NoError(t, newConsumer(reader, &recordingHandler{}, nil).Close())
	assert.True(t, reader.closed)
}
