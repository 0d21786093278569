package cancellation

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) GetOwnerID(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockBookingRepository) GetWithItems(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) CancelFlightsByReference(ctx context.Context, bookingID uuid.UUID, reference string) ([]uuid.UUID, error) {
	args := m.Called(ctx, bookingID, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockBookingRepository) CancelRoom(ctx context.Context, bookingID, bookingRoomID uuid.UUID) error {
	args := m.Called(ctx, bookingID, bookingRoomID)
	return args.Error(0)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, bookingID uuid.UUID, status domain.BookingStatus) error {
	args := m.Called(ctx, bookingID, status)
	return args.Error(0)
}

func (m *MockBookingRepository) SyncStatus(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) HotelOwnerIDs(ctx context.Context, bookingID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockReservationClient struct {
	mock.Mock
}

func (m *MockReservationClient) CancelByReference(ctx context.Context, reference, lastName string) (map[string]any, error) {
	args := m.Called(ctx, reference, lastName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) AcquireBookingLock(ctx context.Context, bookingID uuid.UUID, ttl time.Duration) (string, error) {
	args := m.Called(ctx, bookingID, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockLocker) ReleaseBookingLock(ctx context.Context, bookingID uuid.UUID, token string) error {
	args := m.Called(ctx, bookingID, token)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, notification domain.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
