// Package kafka consumes usage events from a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/bnema/quotaguard/internal/application"
	"github.com/bnema/quotaguard/internal/config"
)

// UsageHandler processes one decoded usage event.
type UsageHandler interface {
	HandleUsageEvent(ctx context.Context, event application.UsageEvent) (application.UsageOutcome, error)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader  messageReader
	handler UsageHandler
	logger  *zap.Logger
}

func NewConsumer(cfg config.KafkaConfig, handler UsageHandler, logger *zap.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka consumer requires at least one broker")
	}
	if cfg.GroupID == "" {
		return nil, errors.New("kafka consumer requires group id")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka consumer requires a topic")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return newConsumer(reader, handler, logger), nil
}

func newConsumer(reader messageReader, handler UsageHandler, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{reader: reader, handler: handler, logger: logger}
}

// Run processes messages until ctx ends. Every message is committed after
// handling, including ones that could not be decoded or failed evaluation;
// the next event for the account evaluates again.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch usage event: %w", err)
		}

		c.handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit usage event offset %d: %w", msg.Offset, err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	var event application.UsageEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Warn("discarding undecodable usage event",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
		return
	}
	if event.AccountID == "" && len(msg.Key) > 0 {
		event.AccountID = string(msg.Key)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = msg.Time
	}

	outcome, err := c.handler.HandleUsageEvent(ctx, event)
	if err != nil {
		c.logger.Error("usage event failed",
			zap.String("account_id", event.AccountID),
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
		return
	}
	if outcome.Block != nil {
		c.logger.Info("account blocked by usage event",
			zap.String("account_id", event.AccountID),
			zap.String("reason", outcome.Reason))
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
