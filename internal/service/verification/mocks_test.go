package verification

import (
	"context"
	"io"
	"log/slog"

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
	return nil, args.Error(1)
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
	return nil, args.Error(1)
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

func (m *MockReservationClient) RetrieveByReference(ctx context.Context, reference, lastName string) ([]domain.AFSFlight, error) {
	args := m.Called(ctx, reference, lastName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AFSFlight), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
