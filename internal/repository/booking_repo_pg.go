package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/service/aggregate"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// BookingRepository reads bookings with their items and mutates status
// fields. Rows are never created or deleted here.
type BookingRepository interface {
	// GetOwnerID returns the owning user without loading anything else.
	GetOwnerID(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	GetWithItems(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	// CancelFlightsByReference cancels every active flight of the booking
	// sharing the reference in one statement and returns the changed ids.
	CancelFlightsByReference(ctx context.Context, bookingID uuid.UUID, reference string) ([]uuid.UUID, error)
	CancelRoom(ctx context.Context, bookingID, bookingRoomID uuid.UUID) error
	UpdateStatus(ctx context.Context, bookingID uuid.UUID, status domain.BookingStatus) error
	// SyncStatus re-derives the booking status from the stored items while
	// holding the booking row lock, persists it if it changed and returns the
	// fresh aggregate.
	SyncStatus(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error)
	// HotelOwnerIDs lists the owners of hotels whose rooms are in the booking.
	HotelOwnerIDs(ctx context.Context, bookingID uuid.UUID) ([]uuid.UUID, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) GetOwnerID(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var owner uuid.UUID
	if err := r.db.QueryRow(ctx, `SELECT user_id FROM bookings WHERE id=$1`, id).Scan(&owner); err != nil {
		return uuid.Nil, notFound("repository.GetOwnerID", err)
	}
	return owner, nil
}

// GetWithItems loads the booking and its items from one snapshot.
func (r *PGBookingRepository) GetWithItems(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("repository.GetWithItems: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	b, err := getBooking(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b.Flights, err = listFlights(ctx, tx, id); err != nil {
		return nil, err
	}
	if b.Rooms, err = listRooms(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("repository.GetWithItems: commit: %w", err)
	}
	return b, nil
}

func getBooking(ctx context.Context, q querier, id uuid.UUID) (*domain.Booking, error) {
	row := q.QueryRow(ctx, `SELECT id, user_id, status, payment_status, check_in, check_out, total_price::text, created_at, updated_at FROM bookings WHERE id=$1`, id)
	var (
		b     domain.Booking
		total string
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.Status, &b.PaymentStatus, &b.CheckIn, &b.CheckOut, &total, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, notFound("repository.getBooking", err)
	}
	price, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("repository.getBooking: total price %q: %w", total, err)
	}
	b.TotalPrice = price
	return &b, nil
}

func listFlights(ctx context.Context, q querier, bookingID uuid.UUID) ([]domain.BookingFlight, error) {
	rows, err := q.Query(ctx, `SELECT id, booking_id, flight_id, booking_reference, status FROM booking_flights WHERE booking_id=$1 ORDER BY created_at, id`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("repository.listFlights: %w", err)
	}
	defer rows.Close()

	flights := make([]domain.BookingFlight, 0)
	for rows.Next() {
		var (
			f   domain.BookingFlight
			ref *string
		)
		if err := rows.Scan(&f.ID, &f.BookingID, &f.FlightID, &ref, &f.Status); err != nil {
			return nil, fmt.Errorf("repository.listFlights: scan: %w", err)
		}
		if ref != nil {
			f.BookingReference = *ref
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

func listRooms(ctx context.Context, q querier, bookingID uuid.UUID) ([]domain.BookingRoom, error) {
	rows, err := q.Query(ctx, `SELECT id, booking_id, room_id, quantity, status FROM booking_rooms WHERE booking_id=$1 ORDER BY created_at, id`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("repository.listRooms: %w", err)
	}
	defer rows.Close()

	rooms := make([]domain.BookingRoom, 0)
	for rows.Next() {
		var br domain.BookingRoom
		if err := rows.Scan(&br.ID, &br.BookingID, &br.RoomID, &br.Quantity, &br.Status); err != nil {
			return nil, fmt.Errorf("repository.listRooms: scan: %w", err)
		}
		rooms = append(rooms, br)
	}
	return rooms, rows.Err()
}

func (r *PGBookingRepository) CancelFlightsByReference(ctx context.Context, bookingID uuid.UUID, reference string) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `UPDATE booking_flights SET status=$1, updated_at=now()
		WHERE booking_id=$2 AND booking_reference=$3 AND status <> $1
		RETURNING id`, domain.BookingStatusCanceled, bookingID, reference)
	if err != nil {
		return nil, fmt.Errorf("repository.CancelFlightsByReference: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("repository.CancelFlightsByReference: scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PGBookingRepository) CancelRoom(ctx context.Context, bookingID, bookingRoomID uuid.UUID) error {
	cmd, err := r.db.Exec(ctx, `UPDATE booking_rooms SET status=$1, updated_at=now() WHERE id=$2 AND booking_id=$3`,
		domain.BookingStatusCanceled, bookingRoomID, bookingID)
	if err != nil {
		return fmt.Errorf("repository.CancelRoom: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("repository.CancelRoom: booking room %s: %w", bookingRoomID, domain.ErrNotFound)
	}
	return nil
}

func (r *PGBookingRepository) UpdateStatus(ctx context.Context, bookingID uuid.UUID, status domain.BookingStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE id=$2`, status, bookingID)
	if err != nil {
		return fmt.Errorf("repository.UpdateStatus: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("repository.UpdateStatus: booking %s: %w", bookingID, domain.ErrNotFound)
	}
	return nil
}

// SyncStatus serializes concurrent recomputations on the booking row. Item
// writes commit before their request syncs, so the last sync always sees
// every canceled item.
func (r *PGBookingRepository) SyncStatus(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository.SyncStatus: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM bookings WHERE id=$1 FOR UPDATE`, bookingID).Scan(&locked); err != nil {
		return nil, notFound("repository.SyncStatus", err)
	}

	b, err := getBooking(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Flights, err = listFlights(ctx, tx, bookingID); err != nil {
		return nil, err
	}
	if b.Rooms, err = listRooms(ctx, tx, bookingID); err != nil {
		return nil, err
	}

	updated := aggregate.RecomputeStatus(*b)
	if updated.Status != b.Status {
		if _, err := tx.Exec(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE id=$2`, updated.Status, bookingID); err != nil {
			return nil, fmt.Errorf("repository.SyncStatus: update: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("repository.SyncStatus: commit: %w", err)
	}
	return &updated, nil
}

func (r *PGBookingRepository) HotelOwnerIDs(ctx context.Context, bookingID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT h.owner_id
		FROM booking_rooms br
		JOIN rooms rm ON rm.id = br.room_id
		JOIN hotels h ON h.id = rm.hotel_id
		WHERE br.booking_id=$1`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("repository.HotelOwnerIDs: %w", err)
	}
	defer rows.Close()

	var owners []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("repository.HotelOwnerIDs: scan: %w", err)
		}
		owners = append(owners, id)
	}
	return owners, rows.Err()
}

func notFound(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ BookingRepository = (*PGBookingRepository)(nil)
