package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

var (
	bookingID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	userID    = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func TestNotifier_PublishesToBothTopics(t *testing.T) {
	publisher := &MockPublisher{}
	notifier := NewNotifier(publisher, "booking_events", "notifications")
	notifier.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	ctx := context.Background()
	matchEvent := mock.MatchedBy(func(e NotificationEvent) bool {
		return e.Type == "booking_canceled" && e.RecipientID == userID.String() && e.RecipientRole == "customer"
	})
	publisher.On("Publish", ctx, "booking_events", bookingID.String(), matchEvent).Return(nil).Once()
	publisher.On("Publish", ctx, "notifications", bookingID.String(), matchEvent).Return(nil).Once()

	err := notifier.Notify(ctx, domain.Notification{
		Type:        domain.NotificationBookingCanceled,
		BookingID:   bookingID,
		RecipientID: userID,
		Role:        domain.RecipientCustomer,
	})

	assert.NoError(t, err)
	publisher.AssertExpectations(t)
}

func TestNotifier_StopsOnAuditFailure(t *testing.T) {
	publisher := &MockPublisher{}
	notifier := NewNotifier(publisher, "booking_events", "notifications")

	ctx := context.Background()
	publisher.On("Publish", ctx, "booking_events", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	err := notifier.Notify(ctx, domain.Notification{BookingID: bookingID, RecipientID: userID})

	assert.EqualError(t, err, "broker down")
	publisher.AssertNotCalled(t, "Publish", ctx, "notifications", mock.Anything, mock.Anything)
}

func TestNewNotificationEvent(t *testing.T) {
	room := uuid.New()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))

	event := NewNotificationEvent(domain.Notification{
		Type:              domain.NotificationBookingPartiallyCanceled,
		BookingID:         bookingID,
		RecipientID:       userID,
		Role:              domain.RecipientHotelOwner,
		BookingReferences: []string{"ABC123"},
		BookingRooms:      []uuid.UUID{room},
	}, now)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, []string{room.String()}, event.BookingRooms)
	assert.Equal(t, time.UTC, event.OccurredAt.Location())
}

func TestNotificationHandler(t *testing.T) {
	ctx := context.Background()
	var delivered []NotificationEvent
	handler := NotificationHandler(testLogger(), func(_ context.Context, e NotificationEvent) error {
		delivered = append(delivered, e)
		if e.Type == "unknown" {
			return ErrPermanent
		}
		if e.Type == "retry" {
			return errors.New("smtp timeout")
		}
		return nil
	})

	valid, err := json.Marshal(NotificationEvent{ID: "1", Type: "booking_canceled", RecipientID: userID.String()})
	require.NoError(t, err)
	unknown, _ := json.Marshal(NotificationEvent{ID: "2", Type: "unknown", RecipientID: userID.String()})
	transient, _ := json.Marshal(NotificationEvent{ID: "3", Type: "retry", RecipientID: userID.String()})
	noRecipient, _ := json.Marshal(NotificationEvent{ID: "4", Type: "booking_canceled"})

	assert.NoError(t, handler(ctx, kafka.Message{Value: valid}))
	assert.NoError(t, handler(ctx, kafka.Message{Value: []byte("{not json")}))
	assert.NoError(t, handler(ctx, kafka.Message{Value: noRecipient}))
	assert.NoError(t, handler(ctx, kafka.Message{Value: unknown}))
	assert.Error(t, handler(ctx, kafka.Message{Value: transient}))
	assert.Len(t, delivered, 3)
}
