// Package kafka publishes and consumes ledger change notifications on a Kafka topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"dailybudget/internal/core"
	"dailybudget/internal/events"
)

const consumerGroup = "dailybudget-sync"

type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			WriteTimeout:           5 * time.Second,
		},
	}
}

// MessageKey partitions messages by period so changes of one period stay ordered.
func MessageKey(key core.PeriodKey) []byte {
	return []byte(key.String())
}

// PublishLedgerChanged implements ports.ChangePublisher.
func (p *Publisher) PublishLedgerChanged(ctx context.Context, key core.PeriodKey, version int64) error {
	data, err := events.NewLedgerChangedMessage(key, version).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: MessageKey(key), Value: data}); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	slog.InfoContext(ctx, "Published ledger changed message",
		"period", key.String(),
		"version", version,
		"topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  consumerGroup,
			MinBytes: 1,
			MaxBytes: 1 << 20,
		}),
	}
}

// ConsumeLedgerChanged delivers messages to handler until ctx is cancelled.
// Offsets are committed only after the handler succeeds; a failing message
// is retried until it succeeds or ctx ends.
func (c *Consumer) ConsumeLedgerChanged(ctx context.Context, handler events.Handler) error {
	slog.InfoContext(ctx, "Started consuming ledger changed messages", "topic", c.reader.Config().Topic)
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		msg, err := events.LedgerChangedMessageFromJSON(m.Value)
		if err != nil {
			slog.ErrorContext(ctx, "Dropping undecodable message", "offset", m.Offset, "error", err)
			if err := c.reader.CommitMessages(ctx, m); err != nil {
				return fmt.Errorf("commit message: %w", err)
			}
			continue
		}

		if err := retry(ctx, func() error { return handler(ctx, msg) }); err != nil {
			return err
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			return fmt.Errorf("commit message: %w", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// retry runs fn with a doubling delay capped at 30s until it succeeds or ctx ends.
func retry(ctx context.Context, fn func() error) error {
	delay := time.Second
	for {
		err := fn()
		if err == nil {
			return nil
		}
		slog.ErrorContext(ctx, "Failed to handle message, retrying", "error", err, "delay", delay)
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
}
