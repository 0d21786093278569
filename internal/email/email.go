package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/kafka"
)

// Sender renders notification events into messages. Delivery itself is a
// structured log line until a mail provider is configured.
type Sender struct {
	logger *slog.Logger
}

func NewSender(logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, event kafka.NotificationEvent) error {
	subject, err := Subject(event)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "send notification",
		"recipient_id", event.RecipientID,
		"recipient_role", event.RecipientRole,
		"subject", subject,
		"body", Body(event),
	)
	return nil
}

func Subject(event kafka.NotificationEvent) (string, error) {
	switch domain.NotificationType(event.Type) {
	case domain.NotificationBookingCanceled:
		return fmt.Sprintf("Booking %s canceled", event.BookingID), nil
	case domain.NotificationBookingPartiallyCanceled:
		return fmt.Sprintf("Booking %s partially canceled", event.BookingID), nil
	default:
		return "", fmt.Errorf("%w: unknown notification type %q", kafka.ErrPermanent, event.Type)
	}
}

func Body(event kafka.NotificationEvent) string {
	var b strings.Builder
	b.WriteString(event.Message)
	if len(event.BookingReferences) > 0 {
		fmt.Fprintf(&b, "\nFlight references: %s", strings.Join(event.BookingReferences, ", "))
	}
	if len(event.BookingRooms) > 0 {
		fmt.Fprintf(&b, "\nRooms: %d", len(event.BookingRooms))
	}
	return b.String()
}
