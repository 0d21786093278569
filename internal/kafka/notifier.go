package kafka

import (
	"context"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Notifier publishes notifications keyed by booking id, first to the audit
// topic and then to the delivery topic. Empty topics are skipped.
type Notifier struct {
	publisher          Publisher
	bookingEventsTopic string
	notificationsTopic string
	now                func() time.Time
}

func NewNotifier(publisher Publisher, bookingEventsTopic, notificationsTopic string) *Notifier {
	return &Notifier{
		publisher:          publisher,
		bookingEventsTopic: bookingEventsTopic,
		notificationsTopic: notificationsTopic,
		now:                time.Now,
	}
}

func (n *Notifier) Notify(ctx context.Context, notification domain.Notification) error {
	if n.publisher == nil {
		return nil
	}
	event := NewNotificationEvent(notification, n.now())
	key := event.BookingID
	if n.bookingEventsTopic != "" {
		if err := n.publisher.Publish(ctx, n.bookingEventsTopic, key, event); err != nil {
			return err
		}
	}
	if n.notificationsTopic != "" {
		return n.publisher.Publish(ctx, n.notificationsTopic, key, event)
	}
	return nil
}
