package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// NotificationEvent is the wire form of domain.Notification.
type NotificationEvent struct {
	ID                string    `json:"id"`
	Type              string    `json:"type"`
	BookingID         string    `json:"booking_id"`
	RecipientID       string    `json:"recipient_id"`
	RecipientRole     string    `json:"recipient_role"`
	Message           string    `json:"message"`
	BookingReferences []string  `json:"booking_references,omitempty"`
	BookingRooms      []string  `json:"booking_rooms,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

func NewNotificationEvent(n domain.Notification, now time.Time) NotificationEvent {
	rooms := make([]string, 0, len(n.BookingRooms))
	for _, id := range n.BookingRooms {
		rooms = append(rooms, id.String())
	}
	return NotificationEvent{
		ID:                uuid.NewString(),
		Type:              string(n.Type),
		BookingID:         n.BookingID.String(),
		RecipientID:       n.RecipientID.String(),
		RecipientRole:     string(n.Role),
		Message:           n.Message,
		BookingReferences: n.BookingReferences,
		BookingRooms:      rooms,
		OccurredAt:        now.UTC(),
	}
}

type Producer struct {
	brokers []string
	writer  *kafka.Writer
	logger  *slog.Logger
}

func NewProducer(brokers []string, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &Producer{
		brokers: brokers,
		writer:  writer,
		logger:  logger,
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	p.logger.DebugContext(ctx, "published to kafka", "topic", topic, "key", key)
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// CheckConnection dials the first broker.
func (p *Producer) CheckConnection(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Brokers(); err != nil {
		return fmt.Errorf("failed to read brokers: %w", err)
	}
	return nil
}
