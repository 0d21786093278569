package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/repository"
	"github.com/Domenick1991/tripbooking/internal/service/aggregate"
	"github.com/Domenick1991/tripbooking/internal/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seeded is one booking with flights R1 (two rows), R2 (one row) and two rooms
// in a hotel owned by ownerID.
type seeded struct {
	userID    uuid.UUID
	ownerID   uuid.UUID
	bookingID uuid.UUID
	r1        []uuid.UUID
	r2        uuid.UUID
	roomA     uuid.UUID
	roomB     uuid.UUID
}

func mustExec(t *testing.T, pool *pgxpool.Pool, sql string, args ...any) {
	t.Helper()
	_, err := pool.Exec(context.Background(), sql, args...)
	require.NoError(t, err)
}

func seedUser(t *testing.T, pool *pgxpool.Pool, lastName string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	mustExec(t, pool, `INSERT INTO users (id, first_name, last_name, email) VALUES ($1, 'Jane', $2, $3)`,
		id, lastName, id.String()+"@example.com")
	return id
}

func seedBooking(t *testing.T, pool *pgxpool.Pool) seeded {
	t.Helper()
	s := seeded{
		userID:    seedUser(t, pool, "Doe"),
		ownerID:   seedUser(t, pool, "Owner"),
		bookingID: uuid.New(),
		r1:        []uuid.UUID{uuid.New(), uuid.New()},
		r2:        uuid.New(),
		roomA:     uuid.New(),
		roomB:     uuid.New(),
	}
	hotelID, roomID := uuid.New(), uuid.New()
	mustExec(t, pool, `INSERT INTO hotels (id, owner_id, name) VALUES ($1, $2, 'Seaside')`, hotelID, s.ownerID)
	mustExec(t, pool, `INSERT INTO rooms (id, hotel_id, name) VALUES ($1, $2, 'Double')`, roomID, hotelID)
	mustExec(t, pool, `INSERT INTO bookings (id, user_id, status, total_price) VALUES ($1, $2, 'confirmed', 1234.50)`,
		s.bookingID, s.userID)
	for i, id := range s.r1 {
		mustExec(t, pool, `INSERT INTO booking_flights (id, booking_id, flight_id, booking_reference, status) VALUES ($1, $2, $3, 'R1', 'confirmed')`,
			id, s.bookingID, []string{"AF1", "AF2"}[i])
	}
	mustExec(t, pool, `INSERT INTO booking_flights (id, booking_id, flight_id, booking_reference, status) VALUES ($1, $2, 'AF3', 'R2', 'confirmed')`,
		s.r2, s.bookingID)
	for _, id := range []uuid.UUID{s.roomA, s.roomB} {
		mustExec(t, pool, `INSERT INTO booking_rooms (id, booking_id, room_id, quantity, status) VALUES ($1, $2, $3, 1, 'confirmed')`,
			id, s.bookingID, roomID)
	}
	return s
}

func TestPGBookingRepository_GetWithItems(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := repository.NewBookingRepository(pool)
	s := seedBooking(t, pool)
	ctx := context.Background()

	owner, err := repo.GetOwnerID(ctx, s.bookingID)
	require.NoError(t, err)
	assert.Equal(t, s.userID, owner)

	b, err := repo.GetWithItems(ctx, s.bookingID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, b.Status)
	assert.True(t, decimal.RequireFromString("1234.5").Equal(b.TotalPrice))
	assert.Len(t, b.Flights, 3)
	assert.Len(t, b.Rooms, 2)

	_, err = repo.GetWithItems(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPGBookingRepository_CancelFlightsByReferenceCancelsGroup(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := repository.NewBookingRepository(pool)
	s := seedBooking(t, pool)
	other := seedBooking(t, pool)
	ctx := context.Background()

	changed, err := repo.CancelFlightsByReference(ctx, s.bookingID, "R1")
	require.NoError(t, err)
	assert.ElementsMatch(t, s.r1, changed)

	b, err := repo.GetWithItems(ctx, s.bookingID)
	require.NoError(t, err)
	for _, f := range b.Flights {
		if f.BookingReference == "R1" {
			assert.Equal(t, domain.BookingStatusCanceled, f.Status)
		} else {
			assert.Equal(t, domain.BookingStatusConfirmed, f.Status)
		}
	}

	// Same reference on another booking is untouched.
	ob, err := repo.GetWithItems(ctx, other.bookingID)
	require.NoError(t, err)
	for _, f := range ob.Flights {
		assert.Equal(t, domain.BookingStatusConfirmed, f.Status)
	}

	again, err := repo.CancelFlightsByReference(ctx, s.bookingID, "R1")
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestPGBookingRepository_CancelRoom(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := repository.NewBookingRepository(pool)
	s := seedBooking(t, pool)
	other := seedBooking(t, pool)
	ctx := context.Background()

	require.NoError(t, repo.CancelRoom(ctx, s.bookingID, s.roomA))

	err := repo.CancelRoom(ctx, s.bookingID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// A room of another booking cannot be canceled through this one.
	err = repo.CancelRoom(ctx, s.bookingID, other.roomA)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	b, err := repo.GetWithItems(ctx, s.bookingID)
	require.NoError(t, err)
	ra, _ := b.Room(s.roomA)
	rb, _ := b.Room(s.roomB)
	assert.Equal(t, domain.BookingStatusCanceled, ra.Status)
	assert.Equal(t, domain.BookingStatusConfirmed, rb.Status)
}

func TestPGBookingRepository_HotelOwnerIDs(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := repository.NewBookingRepository(pool)
	s := seedBooking(t, pool)

	owners, err := repo.HotelOwnerIDs(context.Background(), s.bookingID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{s.ownerID}, owners)
}

func TestPGBookingRepository_SyncStatus(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := repository.NewBookingRepository(pool)
	s := seedBooking(t, pool)
	ctx := context.Background()

	_, err := repo.CancelFlightsByReference(ctx, s.bookingID, "R1")
	require.NoError(t, err)
	b, err := repo.SyncStatus(ctx, s.bookingID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, b.Status)

	_, err = repo.CancelFlightsByReference(ctx, s.bookingID, "R2")
	require.NoError(t, err)
	require.NoError(t, repo.CancelRoom(ctx, s.bookingID, s.roomA))
	require.NoError(t, repo.CancelRoom(ctx, s.bookingID, s.roomB))

	b, err = repo.SyncStatus(ctx, s.bookingID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCanceled, b.Status)

	stored, err := repo.GetWithItems(ctx, s.bookingID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCanceled, stored.Status)
	assert.True(t, aggregate.Consistent(*stored))

	_, err = repo.SyncStatus(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPGBookingRepository_SyncStatusConcurrentRoomCancels(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := repository.NewBookingRepository(pool)
	s := seedBooking(t, pool)
	ctx := context.Background()

	_, err := repo.CancelFlightsByReference(ctx, s.bookingID, "R1")
	require.NoError(t, err)
	_, err = repo.CancelFlightsByReference(ctx, s.bookingID, "R2")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, room := range []uuid.UUID{s.roomA, s.roomB} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.CancelRoom(ctx, s.bookingID, room); err != nil {
				errs[i] = err
				return
			}
			_, errs[i] = repo.SyncStatus(ctx, s.bookingID)
		}()
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	stored, err := repo.GetWithItems(ctx, s.bookingID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCanceled, stored.Status)
	assert.True(t, aggregate.Consistent(*stored))
}

func TestPGUserRepository_GetByID(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := repository.NewUserRepository(pool)
	id := seedUser(t, pool, "Doe")

	u, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", u.FullName())

	_, err = repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
