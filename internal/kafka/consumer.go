package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, kafka.Message) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
}

// NotificationHandler decodes messages into NotificationEvent. Undecodable
// messages are logged and skipped so one bad message cannot stall the group.
func NotificationHandler(logger *slog.Logger, deliver func(context.Context, NotificationEvent) error) func(context.Context, kafka.Message) error {
	return func(ctx context.Context, msg kafka.Message) error {
		var event NotificationEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.WarnContext(ctx, "skip undecodable notification", "offset", msg.Offset, "error", err)
			return nil
		}
		if event.RecipientID == "" {
			logger.WarnContext(ctx, "skip notification without recipient", "event_id", event.ID)
			return nil
		}
		if err := deliver(ctx, event); err != nil {
			if errors.Is(err, ErrPermanent) {
				logger.WarnContext(ctx, "drop undeliverable notification", "event_id", event.ID, "error", err)
				return nil
			}
			return err
		}
		return nil
	}
}

// ErrPermanent marks delivery errors that should be logged and skipped
// instead of stopping the consumer.
var ErrPermanent = errors.New("permanent delivery failure")
